package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func (r *Repository) OwnerPlan(ctx context.Context, userID uuid.UUID) (plan.Plan, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Column("plan").
		Where("id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return plan.Free, ErrCategoryNotFound
		}
		return plan.Free, fmt.Errorf("failed to get owner plan: %w", err)
	}

	return plan.Plan(dbUser.Plan), nil
}

// CategoryIDByName resolves a category scoped by (owner, name). With lock
// set the category row stays locked until the transaction ends.
func (r *Repository) CategoryIDByName(ctx context.Context, userID uuid.UUID, name string, lock bool) (int64, error) {
	dbCategory := new(database.Category)
	query := r.db.NewSelect().
		Model(dbCategory).
		Column("id").
		Where("name = ?", name).
		Where("user_id = ?", userID)

	if lock {
		query = query.For("UPDATE")
	}

	if err := query.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrCategoryNotFound
		}
		return 0, fmt.Errorf("failed to resolve category: %w", err)
	}

	return dbCategory.ID, nil
}

func (r *Repository) CountInMonth(ctx context.Context, categoryID int64, monthStart, monthEnd time.Time) (int, error) {
	count, err := r.db.NewSelect().
		Model((*database.Expense)(nil)).
		Where("category_id = ?", categoryID).
		Where("date >= ?", monthStart).
		Where("date < ?", monthEnd).
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count monthly expenses: %w", err)
	}

	return count, nil
}

func (r *Repository) Insert(ctx context.Context, categoryID int64, description *string, price decimal.Decimal, currency string, date time.Time) (*Expense, error) {
	dbExpense := &database.Expense{
		CategoryID:  categoryID,
		Description: description,
		Price:       price,
		Currency:    currency,
		Date:        date,
	}

	_, err := r.db.NewInsert().
		Model(dbExpense).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}

	return mapDBExpense(dbExpense), nil
}

// Update edits an expense scoped by (id, category). Zero affected rows means
// the expense doesn't exist or lives in another category.
func (r *Repository) Update(ctx context.Context, categoryID int64, id uuid.UUID, description *string, price decimal.Decimal, currency string, date time.Time) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Expense)(nil)).
		Set("description = ?", description).
		Set("price = ?", price).
		Set("currency = ?", currency).
		Set("date = ?", date).
		Where("id = ?", id).
		Where("category_id = ?", categoryID).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to update expense: %w", err)
	}

	return oneRowAffected(result)
}

func (r *Repository) Delete(ctx context.Context, categoryID int64, id uuid.UUID) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*database.Expense)(nil)).
		Where("id = ?", id).
		Where("category_id = ?", categoryID).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to delete expense: %w", err)
	}

	return oneRowAffected(result)
}

func (r *Repository) ListForCategory(ctx context.Context, categoryID int64, since, until time.Time) ([]Expense, error) {
	var dbExpenses []database.Expense
	query := r.db.NewSelect().
		Model(&dbExpenses).
		Where("category_id = ?", categoryID).
		Order("date DESC")

	if !since.IsZero() {
		query = query.Where("date >= ?", since)
	}
	if !until.IsZero() {
		query = query.Where("date <= ?", until)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses := make([]Expense, 0, len(dbExpenses))
	for i := range dbExpenses {
		expenses = append(expenses, *mapDBExpense(&dbExpenses[i]))
	}
	return expenses, nil
}

func oneRowAffected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func mapDBExpense(dbe *database.Expense) *Expense {
	return &Expense{
		ID:          dbe.ID,
		Description: dbe.Description,
		Price:       dbe.Price,
		Currency:    dbe.Currency,
		Date:        dbe.Date,
		CreatedAt:   dbe.CreatedAt,
	}
}
