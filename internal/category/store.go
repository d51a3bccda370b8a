package category

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/exxpenses/exxpenses/internal/plan"
)

var (
	// ErrNotFound covers both "doesn't exist" and "not owned by the caller";
	// scoped queries make the two indistinguishable on purpose.
	ErrNotFound = errors.New("category not found")

	// ErrDuplicateName is a unique violation on (owner, name).
	ErrDuplicateName = errors.New("category already exists")

	// ErrOwnerNotFound means the owning user row is gone (deleted account).
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrLimitReached means the free-plan category cap would be exceeded.
	ErrLimitReached = errors.New("category limit reached")
)

// Store is the persistence capability the service needs. InTx runs fn against
// a transaction-bound Store; every read inside it observes the same snapshot
// as the final write.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// LockOwner locks the owning user row for the rest of the transaction
	// and returns the user's plan. Serializes concurrent limit checks for
	// the same user.
	LockOwner(ctx context.Context, userID uuid.UUID) (plan.Plan, error)

	CountForOwner(ctx context.Context, userID uuid.UUID) (int, error)
	Insert(ctx context.Context, userID uuid.UUID, name, defaultCurrency string) (*Category, error)
	Update(ctx context.Context, userID uuid.UUID, id int64, name, defaultCurrency string) (bool, error)
	DeleteByName(ctx context.Context, userID uuid.UUID, name string) (bool, error)
	GetByName(ctx context.Context, userID uuid.UUID, name string) (*Category, error)
	ListForOwner(ctx context.Context, userID uuid.UUID) ([]Category, error)
}
