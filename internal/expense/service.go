package expense

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exxpenses/exxpenses/internal/money"
	"github.com/exxpenses/exxpenses/internal/plan"
	"github.com/exxpenses/exxpenses/internal/validate"
)

// CategoryTotals carries the per-currency totals of one category.
type CategoryTotals struct {
	CategoryName string        `json:"category_name"`
	Totals       []money.Total `json:"totals"`
}

// Service validates, authorizes and persists expense operations.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// validateFields checks price, then description, then currency. The order is
// observable through which field a 400 names, so it stays fixed.
func validateFields(price decimal.Decimal, description, currency string) *validate.FieldError {
	if !price.IsPositive() {
		return validate.NewFieldError("price", "price must be greater than zero")
	}
	if ferr := (validate.Text{Field: "description", Value: description, MaxLen: DescriptionMaxLen, Optional: true}).Check(); ferr != nil {
		return ferr
	}
	if !money.ValidCurrency(currency) {
		return validate.NewFieldError("currency", "invalid currency")
	}
	return nil
}

func descriptionPtr(description string) *string {
	if description == "" {
		return nil
	}
	return &description
}

// Add records an expense in the named category. The free-plan monthly cap is
// checked against the calendar month of the expense's stated date, counted
// and inserted in one transaction with the category row locked.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, categoryName, description string, price decimal.Decimal, currency string, date time.Time) (*Expense, error) {
	categoryName = strings.TrimSpace(categoryName)
	description = strings.TrimSpace(description)
	currency = strings.TrimSpace(currency)

	if ferr := validateFields(price, description, currency); ferr != nil {
		return nil, ferr
	}

	monthStart, monthEnd := MonthWindow(date)

	var created *Expense
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		categoryID, err := tx.CategoryIDByName(ctx, userID, categoryName, true)
		if err != nil {
			return err
		}

		ownerPlan, err := tx.OwnerPlan(ctx, userID)
		if err != nil {
			return err
		}

		count, err := tx.CountInMonth(ctx, categoryID, monthStart, monthEnd)
		if err != nil {
			return err
		}

		if !plan.CanCreateExpense(ownerPlan, count) {
			return ErrLimitReached
		}

		created, err = tx.Insert(ctx, categoryID, descriptionPtr(description), price, currency, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Edit updates an expense. The category is resolved scoped by the caller
// first, then the write is scoped by (expense id, category id), so neither
// step can touch another user's rows.
func (s *Service) Edit(ctx context.Context, userID uuid.UUID, categoryName string, id uuid.UUID, description string, price decimal.Decimal, currency string, date time.Time) (bool, error) {
	categoryName = strings.TrimSpace(categoryName)
	description = strings.TrimSpace(description)
	currency = strings.TrimSpace(currency)

	if ferr := validateFields(price, description, currency); ferr != nil {
		return false, ferr
	}

	categoryID, err := s.store.CategoryIDByName(ctx, userID, categoryName, false)
	if err != nil {
		return false, err
	}

	return s.store.Update(ctx, categoryID, id, descriptionPtr(description), price, currency, date)
}

// Delete removes an expense scoped the same two-step way as Edit.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, categoryName string, id uuid.UUID) (bool, error) {
	categoryID, err := s.store.CategoryIDByName(ctx, userID, strings.TrimSpace(categoryName), false)
	if err != nil {
		return false, err
	}

	return s.store.Delete(ctx, categoryID, id)
}

func checkWindow(since, until time.Time) *validate.FieldError {
	if !since.IsZero() && !until.IsZero() && !since.Before(until) {
		return validate.NewFieldError("since", "since must be before until")
	}
	return nil
}

// List returns the expenses of one category, optionally bounded to
// [since, until].
func (s *Service) List(ctx context.Context, userID uuid.UUID, categoryName string, since, until time.Time) ([]Expense, error) {
	if ferr := checkWindow(since, until); ferr != nil {
		return nil, ferr
	}

	categoryID, err := s.store.CategoryIDByName(ctx, userID, strings.TrimSpace(categoryName), false)
	if err != nil {
		return nil, err
	}

	return s.store.ListForCategory(ctx, categoryID, since, until)
}

// TotalCost sums one category's expenses per currency over [since, until].
// Amounts in different currencies are never merged or converted.
func (s *Service) TotalCost(ctx context.Context, userID uuid.UUID, categoryName string, since, until time.Time) ([]money.Total, error) {
	if ferr := checkWindow(since, until); ferr != nil {
		return nil, ferr
	}

	var totals []money.Total
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		var err error
		totals, err = totalsForCategory(ctx, tx, userID, strings.TrimSpace(categoryName), since, until)
		return err
	})
	if err != nil {
		return nil, err
	}

	return totals, nil
}

// TotalCostMultiple aggregates several categories in one transaction so all
// results come from the same snapshot. One unknown name fails the whole
// request; no partial results.
func (s *Service) TotalCostMultiple(ctx context.Context, userID uuid.UUID, categoryNames []string, since, until time.Time) ([]CategoryTotals, error) {
	if ferr := checkWindow(since, until); ferr != nil {
		return nil, ferr
	}

	results := make([]CategoryTotals, 0, len(categoryNames))
	err := s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		for _, name := range categoryNames {
			name = strings.TrimSpace(name)
			totals, err := totalsForCategory(ctx, tx, userID, name, since, until)
			if err != nil {
				return err
			}
			results = append(results, CategoryTotals{CategoryName: name, Totals: totals})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

func totalsForCategory(ctx context.Context, tx Store, userID uuid.UUID, categoryName string, since, until time.Time) ([]money.Total, error) {
	categoryID, err := tx.CategoryIDByName(ctx, userID, categoryName, false)
	if err != nil {
		return nil, err
	}

	expenses, err := tx.ListForCategory(ctx, categoryID, since, until)
	if err != nil {
		return nil, err
	}

	totals := money.NewTotals()
	for i := range expenses {
		totals.Add(expenses[i].Currency, expenses[i].Price)
	}
	return totals.Pairs(), nil
}
