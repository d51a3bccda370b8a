package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/exxpenses/exxpenses/internal/database"
	"github.com/exxpenses/exxpenses/internal/plan"
)

// Repository implements Store on top of bun/Postgres.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// InTx runs fn with a Repository bound to one transaction.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Repository{db: tx})
	})
}

func (r *Repository) AccountByUserID(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return r.account(ctx, "u.id = ?", userID)
}

func (r *Repository) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.account(ctx, "u.email = ?", strings.ToLower(email))
}

func (r *Repository) account(ctx context.Context, where string, arg any) (*Account, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Relation("BillingAccount").
		Where(where, arg).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load billing account: %w", err)
	}

	account := &Account{
		UserID: dbUser.ID,
		Email:  dbUser.Email,
		Name:   dbUser.Firstname + " " + dbUser.Lastname,
		Plan:   plan.Plan(dbUser.Plan),
	}
	if dbUser.BillingAccount != nil {
		account.CustomerID = dbUser.BillingAccount.CustomerID
		account.SubscriptionID = dbUser.BillingAccount.SubscriptionID
	}
	return account, nil
}

// EnsureCustomer upserts the billing row on user_id so retried purchases
// don't create duplicate rows.
func (r *Repository) EnsureCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	dbAccount := &database.BillingAccount{
		UserID:     userID,
		CustomerID: customerID,
	}

	_, err := r.db.NewInsert().
		Model(dbAccount).
		On("CONFLICT (user_id) DO UPDATE").
		Set("customer_id = EXCLUDED.customer_id").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to record customer: %w", err)
	}

	return nil
}

// SetSubscription writes the plan on the user row and the subscription id on
// the billing row. Both writes are absolute, so replayed events settle on
// the same state. The billing row is upserted: a webhook can arrive for an
// account that purchased through a customer this instance never recorded,
// and the conflict guard needs the subscription id on file either way.
func (r *Repository) SetSubscription(ctx context.Context, userID uuid.UUID, subscriptionID string, p plan.Plan) error {
	_, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("plan = ?", int(p)).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}

	dbAccount := &database.BillingAccount{
		UserID:         userID,
		SubscriptionID: subscriptionID,
	}
	_, err = r.db.NewInsert().
		Model(dbAccount).
		On("CONFLICT (user_id) DO UPDATE").
		Set("subscription_id = EXCLUDED.subscription_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record subscription: %w", err)
	}

	return nil
}
