package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/exxpenses/exxpenses/internal/database"
	"github.com/exxpenses/exxpenses/internal/plan"
)

const pgUniqueViolation = "23505"

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

// LockOwner takes a row lock on the user for the duration of the transaction.
func (r *Repository) LockOwner(ctx context.Context, userID uuid.UUID) (plan.Plan, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Column("plan").
		Where("id = ?", userID).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return plan.Free, ErrOwnerNotFound
		}
		return plan.Free, fmt.Errorf("failed to lock owner: %w", err)
	}

	return plan.Plan(dbUser.Plan), nil
}

func (r *Repository) CountForOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := r.db.NewSelect().
		Model((*database.Category)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}

	return count, nil
}

func (r *Repository) Insert(ctx context.Context, userID uuid.UUID, name, defaultCurrency string) (*Category, error) {
	dbCategory := &database.Category{
		UserID:          userID,
		Name:            name,
		DefaultCurrency: defaultCurrency,
	}

	_, err := r.db.NewInsert().
		Model(dbCategory).
		Returning("*").
		Exec(ctx)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}

	return mapDBCategory(dbCategory), nil
}

// Update edits a category scoped by (id, owner). Exactly one affected row
// signals success; zero rows means not found or not owned.
func (r *Repository) Update(ctx context.Context, userID uuid.UUID, id int64, name, defaultCurrency string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Category)(nil)).
		Set("name = ?", name).
		Set("default_currency = ?", defaultCurrency).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return false, ErrDuplicateName
		}
		return false, fmt.Errorf("failed to update category: %w", err)
	}

	return oneRowAffected(result)
}

// DeleteByName removes a category scoped by (name, owner); expenses cascade
// at the storage layer.
func (r *Repository) DeleteByName(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*database.Category)(nil)).
		Where("name = ?", name).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}

	return oneRowAffected(result)
}

func (r *Repository) GetByName(ctx context.Context, userID uuid.UUID, name string) (*Category, error) {
	dbCategory := new(database.Category)
	err := r.db.NewSelect().
		Model(dbCategory).
		Where("name = ?", name).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return mapDBCategory(dbCategory), nil
}

func (r *Repository) ListForOwner(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	var dbCategories []database.Category
	err := r.db.NewSelect().
		Model(&dbCategories).
		Where("user_id = ?", userID).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]Category, 0, len(dbCategories))
	for i := range dbCategories {
		categories = append(categories, *mapDBCategory(&dbCategories[i]))
	}
	return categories, nil
}

func oneRowAffected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func mapDBCategory(dbc *database.Category) *Category {
	return &Category{
		ID:              dbc.ID,
		Name:            dbc.Name,
		DefaultCurrency: dbc.DefaultCurrency,
		UpdatedAt:       dbc.UpdatedAt,
	}
}
