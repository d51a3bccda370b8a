package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/exxpenses/exxpenses/internal/plan"
)

var (
	// ErrNotFound means no user matches the lookup key.
	ErrNotFound = errors.New("billing account not found")

	// ErrNoSubscription means the user never had a subscription recorded.
	ErrNoSubscription = errors.New("no subscription on record")
)

// Account is a user's billing view. CustomerID and SubscriptionID are empty
// until the payment provider assigns them.
type Account struct {
	UserID         uuid.UUID
	Email          string
	Name           string
	Plan           plan.Plan
	CustomerID     string
	SubscriptionID string
}

// Store is the persistence capability billing needs. InTx runs fn against a
// transaction-bound Store.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	AccountByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)

	// EnsureCustomer records the provider customer id, creating the billing
	// row on first use.
	EnsureCustomer(ctx context.Context, userID uuid.UUID, customerID string) error

	// SetSubscription writes the user's plan and the subscription id that
	// granted it as one absolute update.
	SetSubscription(ctx context.Context, userID uuid.UUID, subscriptionID string, p plan.Plan) error
}
