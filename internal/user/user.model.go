package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `json:"id"`
	ClerkID          string    `json:"clerkId"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	EmailVerified    bool      `json:"emailVerified"`
	ProfileCompleted bool      `json:"profileCompleted"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasCompleteProfile reports whether the fields that earn the
// profile_complete bonus are all filled in.
func (u *User) HasCompleteProfile() bool {
	return strings.TrimSpace(u.Username) != "" &&
		strings.TrimSpace(u.FirstName) != "" &&
		strings.TrimSpace(u.LastName) != ""
}
