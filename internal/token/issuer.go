package token

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a token is malformed, expired, unknown or
// already redeemed. Callers can't tell these cases apart on purpose.
var ErrNotFound = errors.New("token not found")

const (
	VerificationTTL = 24 * time.Hour
	RecoveryTTL     = 1 * time.Hour
)

// Strict v4 UUID shape. Checked before any lookup so malformed input is
// rejected without touching the store.
var tokenPattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// Issuer hands out single-use, time-limited opaque tokens mapping to an email
// address. Storage is Redis with per-key TTL; redemption is a single GETDEL so
// two concurrent redemptions can't both succeed.
type Issuer struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewVerificationIssuer creates the issuer for email verification tokens (24h TTL).
func NewVerificationIssuer(client *redis.Client) *Issuer {
	return &Issuer{client: client, prefix: "verify", ttl: VerificationTTL}
}

// NewRecoveryIssuer creates the issuer for password recovery tokens (1h TTL).
func NewRecoveryIssuer(client *redis.Client) *Issuer {
	return &Issuer{client: client, prefix: "recovery", ttl: RecoveryTTL}
}

func (i *Issuer) key(token string) string {
	return fmt.Sprintf("%s:%s", i.prefix, token)
}

// Issue generates a fresh token for email and stores it with the issuer's TTL.
func (i *Issuer) Issue(ctx context.Context, email string) (string, error) {
	tok := uuid.NewString()

	if err := i.client.Set(ctx, i.key(tok), email, i.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return tok, nil
}

// Peek returns the email for a token without consuming it. Used for UI-side
// validation of recovery links.
func (i *Issuer) Peek(ctx context.Context, tok string) (string, error) {
	if !tokenPattern.MatchString(tok) {
		return "", ErrNotFound
	}

	email, err := i.client.Get(ctx, i.key(tok)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up token: %w", err)
	}

	return email, nil
}

// Redeem consumes a token and returns its email. Exactly one of two
// concurrent redemptions observes the email; the other gets ErrNotFound.
func (i *Issuer) Redeem(ctx context.Context, tok string) (string, error) {
	if !tokenPattern.MatchString(tok) {
		return "", ErrNotFound
	}

	email, err := i.client.GetDel(ctx, i.key(tok)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to redeem token: %w", err)
	}

	return email, nil
}
