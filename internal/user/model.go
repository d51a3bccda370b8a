package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/exxpenses/exxpenses/internal/plan"
)

// User is the domain model for an account.
type User struct {
	ID                uuid.UUID `json:"id"`
	Firstname         string    `json:"firstname"`
	Lastname          string    `json:"lastname"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // Never expose password hash in JSON
	EmailVerified     bool      `json:"verified_email"`
	PreferredCurrency *string   `json:"preferred_currency,omitempty"`
	Plan              plan.Plan `json:"plan"`
	SignupDate        time.Time `json:"signup_date"`
}

// Field length bounds, mirrored by the schema.
const (
	NameMaxLen  = 30
	EmailMaxLen = 254
)
