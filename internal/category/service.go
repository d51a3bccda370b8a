package category

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/exxpenses/exxpenses/internal/money"
	"github.com/exxpenses/exxpenses/internal/plan"
	"github.com/exxpenses/exxpenses/internal/validate"
)

// Service validates, authorizes and persists category mutations.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func validateNameAndCurrency(name, currency string) *validate.FieldError {
	if ferr := (validate.Text{Field: "name", Value: name, MaxLen: NameMaxLen}).Check(); ferr != nil {
		return ferr
	}
	if !money.ValidCurrency(currency) {
		return validate.NewFieldError("currency", "invalid currency")
	}
	return nil
}

// Add creates a category for userID. The free-plan count check and the
// insert run in one transaction with the owner row locked, so two concurrent
// requests can't jointly pass the limit.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, name, defaultCurrency string) (*Category, error) {
	name = strings.TrimSpace(name)
	defaultCurrency = strings.TrimSpace(defaultCurrency)

	if ferr := validateNameAndCurrency(name, defaultCurrency); ferr != nil {
		return nil, ferr
	}

	var created *Category
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		ownerPlan, err := tx.LockOwner(ctx, userID)
		if err != nil {
			return err
		}

		count, err := tx.CountForOwner(ctx, userID)
		if err != nil {
			return err
		}

		if !plan.CanCreateCategory(ownerPlan, count) {
			return ErrLimitReached
		}

		created, err = tx.Insert(ctx, userID, name, defaultCurrency)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Edit updates a category scoped by (id, owner). Returns false when the
// category doesn't exist or belongs to someone else; no partial-success
// state exists.
func (s *Service) Edit(ctx context.Context, userID uuid.UUID, id int64, name, defaultCurrency string) (bool, error) {
	name = strings.TrimSpace(name)
	defaultCurrency = strings.TrimSpace(defaultCurrency)

	if ferr := validateNameAndCurrency(name, defaultCurrency); ferr != nil {
		return false, ferr
	}

	return s.store.Update(ctx, userID, id, name, defaultCurrency)
}

// Delete removes a category scoped by (name, owner); its expenses cascade.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	return s.store.DeleteByName(ctx, userID, strings.TrimSpace(name))
}

// List returns all categories owned by userID.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	return s.store.ListForOwner(ctx, userID)
}

// Get returns one category scoped by (name, owner).
func (s *Service) Get(ctx context.Context, userID uuid.UUID, name string) (*Category, error) {
	return s.store.GetByName(ctx, userID, strings.TrimSpace(name))
}
