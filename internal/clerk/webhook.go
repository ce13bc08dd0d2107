package clerk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// WebhookTolerance bounds how far a signed timestamp may drift from now.
const WebhookTolerance = 5 * time.Minute

var (
	ErrMissingHeaders   = errors.New("missing webhook signature headers")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type WebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type UserData struct {
	ID                    string         `json:"id"`
	Username              string         `json:"username"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	ProfileImageURL       string         `json:"profile_image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

// PrimaryEmail returns the primary address and whether it is verified,
// falling back to the first address listed.
func (u *UserData) PrimaryEmail() (string, bool) {
	if len(u.EmailAddresses) == 0 {
		return "", false
	}
	chosen := u.EmailAddresses[0]
	for _, e := range u.EmailAddresses {
		if e.ID != "" && e.ID == u.PrimaryEmailAddressID {
			chosen = e
			break
		}
	}
	return chosen.EmailAddress, chosen.Verification.Status == "verified"
}

// Avatar prefers image_url over the legacy profile_image_url.
func (u *UserData) Avatar() string {
	if u.ImageURL != "" {
		return u.ImageURL
	}
	return u.ProfileImageURL
}

// VerifySignature checks a Svix-signed Clerk webhook. secret is the
// "whsec_" prefixed signing secret from the Clerk dashboard.
func VerifySignature(secret string, header http.Header, body []byte, now time.Time) error {
	msgID := header.Get("svix-id")
	timestamp := header.Get("svix-timestamp")
	signatures := header.Get("svix-signature")
	if msgID == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > WebhookTolerance || sent.Sub(now) > WebhookTolerance {
		return ErrStaleTimestamp
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("failed to decode webhook secret: %w", err)
	}

	expected := Sign(key, msgID, timestamp, body)

	// The header may carry several space separated "v1,<sig>" entries
	// while a secret is being rotated.
	for _, entry := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign computes the base64 v1 signature for one message.
func Sign(key []byte, msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
