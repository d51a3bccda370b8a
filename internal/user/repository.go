package user

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

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

// Repository handles user data persistence
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. A unique violation on the email column comes
// back as ErrDuplicateEmail.
func (r *Repository) Create(ctx context.Context, firstname, lastname, email, passwordHash string) (*User, error) {
	dbUser := &database.User{
		Firstname:    firstname,
		Lastname:     lastname,
		Email:        email,
		PasswordHash: passwordHash,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkEmailVerified flips the verified flag for a not-yet-verified user.
// Returns false when no matching row exists (unknown email or already verified).
func (r *Repository) MarkEmailVerified(ctx context.Context, email string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("email_verified = ?", true).
		Where("email = ?", email).
		Where("email_verified = ?", false).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to mark email as verified: %w", err)
	}

	return oneRowAffected(result)
}

// UpdatePasswordByEmail replaces the password hash for the account owning email.
func (r *Repository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("email = ?", email).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}

	return oneRowAffected(result)
}

// UpdatePassword replaces the password hash for a user id.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}

	return oneRowAffected(result)
}

// SetPreferredCurrency stores the user's display currency.
func (r *Repository) SetPreferredCurrency(ctx context.Context, id uuid.UUID, currency string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("preferred_currency = ?", currency).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to set preferred currency: %w", err)
	}

	return oneRowAffected(result)
}

// Delete removes the user. Categories, expenses and the billing account go
// with it via storage-level cascades.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}

	return oneRowAffected(result)
}

func oneRowAffected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                dbu.ID,
		Firstname:         dbu.Firstname,
		Lastname:          dbu.Lastname,
		Email:             dbu.Email,
		PasswordHash:      dbu.PasswordHash,
		EmailVerified:     dbu.EmailVerified,
		PreferredCurrency: dbu.PreferredCurrency,
		Plan:              plan.Plan(dbu.Plan),
		SignupDate:        dbu.SignupDate,
	}
}
