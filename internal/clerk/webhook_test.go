package clerk

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedHeader(t *testing.T, key []byte, body []byte, at time.Time) http.Header {
	t.Helper()
	ts := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set("svix-id", "msg_1")
	h.Set("svix-timestamp", ts)
	h.Set("svix-signature", "v1,stale v1,"+Sign(key, "msg_1", ts, body))
	return h
}

func TestVerifySignature(t *testing.T) {
	key := []byte("super-secret-signing-key")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(key)
	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	now := time.Unix(1_700_000_000, 0)

	header := signedHeader(t, key, body, now)
	assert.NoError(t, VerifySignature(secret, header, body, now))

	assert.ErrorIs(t, VerifySignature(secret, header, []byte(`{"tampered":true}`), now), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(secret, header, body, now.Add(10*time.Minute)), ErrStaleTimestamp)
	assert.ErrorIs(t, VerifySignature(secret, http.Header{}, body, now), ErrMissingHeaders)
}

func TestPrimaryEmail(t *testing.T) {
	var u UserData
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "user_1",
		"primary_email_address_id": "idn_2",
		"email_addresses": [
			{"id": "idn_1", "email_address": "old@example.com", "verification": {"status": "unverified"}},
			{"id": "idn_2", "email_address": "kim@example.com", "verification": {"status": "verified"}}
		],
		"profile_image_url": "https://img.example.com/legacy.png"
	}`), &u))

	email, verified := u.PrimaryEmail()
	assert.Equal(t, "kim@example.com", email)
	assert.True(t, verified)
	assert.Equal(t, "https://img.example.com/legacy.png", u.Avatar())

	email, verified = (&UserData{}).PrimaryEmail()
	assert.Empty(t, email)
	assert.False(t, verified)
}
