package expense

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exxpenses/exxpenses/internal/plan"
)

var (
	// ErrCategoryNotFound covers both "doesn't exist" and "not owned by the
	// caller"; scoped lookups make the two indistinguishable on purpose.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrLimitReached means the free-plan monthly expense cap would be
	// exceeded for the target category and month.
	ErrLimitReached = errors.New("monthly expense limit reached")
)

// Store is the persistence capability the service needs. InTx runs fn
// against a transaction-bound Store.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	OwnerPlan(ctx context.Context, userID uuid.UUID) (plan.Plan, error)

	// CategoryIDByName resolves a category scoped by (owner, name). With
	// lock set it takes a row lock on the category for the rest of the
	// transaction, serializing concurrent monthly-cap checks.
	CategoryIDByName(ctx context.Context, userID uuid.UUID, name string, lock bool) (int64, error)

	// CountInMonth counts expenses of one category whose stated date falls
	// in [monthStart, monthEnd).
	CountInMonth(ctx context.Context, categoryID int64, monthStart, monthEnd time.Time) (int, error)

	Insert(ctx context.Context, categoryID int64, description *string, price decimal.Decimal, currency string, date time.Time) (*Expense, error)
	Update(ctx context.Context, categoryID int64, id uuid.UUID, description *string, price decimal.Decimal, currency string, date time.Time) (bool, error)
	Delete(ctx context.Context, categoryID int64, id uuid.UUID) (bool, error)

	// ListForCategory returns expenses of one category, newest stated date
	// first, bounded to [since, until]. Zero values leave that bound open.
	ListForCategory(ctx context.Context, categoryID int64, since, until time.Time) ([]Expense, error)
}
