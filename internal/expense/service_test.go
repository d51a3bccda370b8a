package expense

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exxpenses/exxpenses/internal/plan"
	"github.com/exxpenses/exxpenses/internal/validate"
)

type ownedCategory struct {
	userID uuid.UUID
	name   string
}

type fakeStore struct {
	plans      map[uuid.UUID]plan.Plan
	categories map[ownedCategory]int64
	expenses   map[int64][]Expense
	nextID     int64
	listCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:      make(map[uuid.UUID]plan.Plan),
		categories: make(map[ownedCategory]int64),
		expenses:   make(map[int64][]Expense),
		nextID:     1,
	}
}

func (f *fakeStore) addCategory(userID uuid.UUID, name string) int64 {
	id := f.nextID
	f.nextID++
	f.categories[ownedCategory{userID: userID, name: name}] = id
	return id
}

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, f)
}

func (f *fakeStore) OwnerPlan(ctx context.Context, userID uuid.UUID) (plan.Plan, error) {
	p, ok := f.plans[userID]
	if !ok {
		return plan.Free, ErrCategoryNotFound
	}
	return p, nil
}

func (f *fakeStore) CategoryIDByName(ctx context.Context, userID uuid.UUID, name string, lock bool) (int64, error) {
	id, ok := f.categories[ownedCategory{userID: userID, name: name}]
	if !ok {
		return 0, ErrCategoryNotFound
	}
	return id, nil
}

func (f *fakeStore) CountInMonth(ctx context.Context, categoryID int64, monthStart, monthEnd time.Time) (int, error) {
	count := 0
	for _, e := range f.expenses[categoryID] {
		if !e.Date.Before(monthStart) && e.Date.Before(monthEnd) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Insert(ctx context.Context, categoryID int64, description *string, price decimal.Decimal, currency string, date time.Time) (*Expense, error) {
	created := Expense{
		ID:          uuid.New(),
		Description: description,
		Price:       price,
		Currency:    currency,
		Date:        date,
		CreatedAt:   time.Now(),
	}
	f.expenses[categoryID] = append(f.expenses[categoryID], created)
	return &created, nil
}

func (f *fakeStore) Update(ctx context.Context, categoryID int64, id uuid.UUID, description *string, price decimal.Decimal, currency string, date time.Time) (bool, error) {
	for i, e := range f.expenses[categoryID] {
		if e.ID == id {
			f.expenses[categoryID][i] = Expense{ID: id, Description: description, Price: price, Currency: currency, Date: date, CreatedAt: e.CreatedAt}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Delete(ctx context.Context, categoryID int64, id uuid.UUID) (bool, error) {
	for i, e := range f.expenses[categoryID] {
		if e.ID == id {
			f.expenses[categoryID] = append(f.expenses[categoryID][:i], f.expenses[categoryID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListForCategory(ctx context.Context, categoryID int64, since, until time.Time) ([]Expense, error) {
	f.listCalls++
	var out []Expense
	for _, e := range f.expenses[categoryID] {
		if !since.IsZero() && e.Date.Before(since) {
			continue
		}
		if !until.IsZero() && e.Date.After(until) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddExpense(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	store.addCategory(userID, "Food")
	service := NewService(store)

	date := time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)
	created, err := service.Add(ctx, userID, "Food", "  lunch  ", price("12.50"), "USD", date)
	require.NoError(t, err)
	require.NotNil(t, created.Description)
	assert.Equal(t, "lunch", *created.Description, "description should be trimmed")
	assert.True(t, created.Price.Equal(price("12.50")))
}

func TestAddExpenseEmptyDescriptionStoredAsNull(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	store.addCategory(userID, "Food")
	service := NewService(store)

	created, err := service.Add(ctx, userID, "Food", "   ", price("5.00"), "USD", time.Now())
	require.NoError(t, err)
	assert.Nil(t, created.Description)
}

func TestAddExpenseValidationOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	store.addCategory(userID, "Food")
	service := NewService(store)

	tests := []struct {
		testName    string
		description string
		price       decimal.Decimal
		currency    string
		field       string
	}{
		{"zero price", "", price("0"), "USD", "price"},
		{"negative price", "", price("-3.50"), "USD", "price"},
		{"bad price wins over bad currency", "", price("0"), "usd", "price"},
		{"description too long", strings.Repeat("a", DescriptionMaxLen+1), price("1.00"), "USD", "description"},
		{"long description wins over bad currency", strings.Repeat("a", DescriptionMaxLen+1), price("1.00"), "usd", "description"},
		{"empty currency", "", price("1.00"), "", "currency"},
		{"lowercase currency", "", price("1.00"), "usd", "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			_, err := service.Add(ctx, userID, "Food", tt.description, tt.price, tt.currency, time.Now())
			var ferr *validate.FieldError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.field, ferr.Field)
		})
	}
}

func TestAddExpenseUnknownCategory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	service := NewService(store)

	_, err := service.Add(ctx, userID, "Nope", "", price("1.00"), "USD", time.Now())
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestAddExpenseMonthlyLimit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	store.addCategory(userID, "Food")
	service := NewService(store)

	march := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < plan.FreeMaxMonthlyExpenses; i++ {
		_, err := service.Add(ctx, userID, "Food", "", price("1.00"), "USD", march)
		require.NoError(t, err, "expense %d should fit within the monthly cap", i+1)
	}

	_, err := service.Add(ctx, userID, "Food", "", price("1.00"), "USD", march)
	assert.ErrorIs(t, err, ErrLimitReached)

	// The cap buckets by the expense's stated date, so a different month
	// starts a fresh count.
	april := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, err = service.Add(ctx, userID, "Food", "", price("1.00"), "USD", april)
	assert.NoError(t, err)
}

func TestAddExpenseLimitPerCategory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	store.addCategory(userID, "Food")
	store.addCategory(userID, "Rent")
	service := NewService(store)

	march := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < plan.FreeMaxMonthlyExpenses; i++ {
		_, err := service.Add(ctx, userID, "Food", "", price("1.00"), "USD", march)
		require.NoError(t, err)
	}

	_, err := service.Add(ctx, userID, "Rent", "", price("900.00"), "USD", march)
	assert.NoError(t, err, "the monthly cap is per category")
}

func TestAddExpensePremiumUnlimited(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Premium
	store.addCategory(userID, "Food")
	service := NewService(store)

	march := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < plan.FreeMaxMonthlyExpenses+5; i++ {
		_, err := service.Add(ctx, userID, "Food", "", price("1.00"), "USD", march)
		require.NoError(t, err)
	}
}

func TestEditExpenseScoping(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	store := newFakeStore()
	store.plans[owner] = plan.Free
	store.plans[stranger] = plan.Free
	store.addCategory(owner, "Food")
	store.addCategory(stranger, "Food")
	service := NewService(store)

	created, err := service.Add(ctx, owner, "Food", "", price("10.00"), "USD", time.Now())
	require.NoError(t, err)

	// The stranger owns a same-named category, but the write is scoped by
	// the stranger's category id, so it touches nothing.
	ok, err := service.Edit(ctx, stranger, "Food", created.ID, "hijacked", price("1.00"), "EUR", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = service.Edit(ctx, owner, "Food", created.ID, "groceries", price("11.00"), "USD", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteExpenseWrongCategory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	store.addCategory(userID, "Food")
	store.addCategory(userID, "Rent")
	service := NewService(store)

	created, err := service.Add(ctx, userID, "Food", "", price("10.00"), "USD", time.Now())
	require.NoError(t, err)

	ok, err := service.Delete(ctx, userID, "Rent", created.ID)
	require.NoError(t, err)
	assert.False(t, ok, "deleting through the wrong category must report ok=false")

	ok, err = service.Delete(ctx, userID, "Food", created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListRejectsEmptyWindow(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	store.addCategory(userID, "Food")
	service := NewService(store)

	since := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err := service.List(ctx, userID, "Food", since, since)
	var ferr *validate.FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "since", ferr.Field)
	assert.Zero(t, store.listCalls, "an empty window must be rejected before storage")
}

func TestTotalCostPerCurrency(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Premium
	store.addCategory(userID, "Food")
	service := NewService(store)

	date := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err := service.Add(ctx, userID, "Food", "", price("10.00"), "USD", date)
	require.NoError(t, err)
	_, err = service.Add(ctx, userID, "Food", "", price("5.50"), "USD", date)
	require.NoError(t, err)
	_, err = service.Add(ctx, userID, "Food", "", price("20.00"), "EUR", date)
	require.NoError(t, err)

	totals, err := service.TotalCost(ctx, userID, "Food", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "USD", totals[0].Currency)
	assert.True(t, totals[0].Price.Equal(price("15.50")))
	assert.Equal(t, "EUR", totals[1].Currency)
	assert.True(t, totals[1].Price.Equal(price("20.00")))
}

func TestTotalCostExactDecimals(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Premium
	store.addCategory(userID, "Food")
	service := NewService(store)

	date := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err := service.Add(ctx, userID, "Food", "", price("0.10"), "USD", date)
	require.NoError(t, err)
	_, err = service.Add(ctx, userID, "Food", "", price("0.20"), "USD", date)
	require.NoError(t, err)

	totals, err := service.TotalCost(ctx, userID, "Food", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "0.3", totals[0].Price.String(), "0.10 + 0.20 must be exactly 0.3")
}

func TestTotalCostWindow(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Premium
	store.addCategory(userID, "Food")
	service := NewService(store)

	inside := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	outside := time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)
	_, err := service.Add(ctx, userID, "Food", "", price("10.00"), "USD", inside)
	require.NoError(t, err)
	_, err = service.Add(ctx, userID, "Food", "", price("99.00"), "USD", outside)
	require.NoError(t, err)

	since := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	totals, err := service.TotalCost(ctx, userID, "Food", since, until)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.True(t, totals[0].Price.Equal(price("10.00")))
}

func TestTotalCostMultiple(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Premium
	store.addCategory(userID, "Food")
	store.addCategory(userID, "Rent")
	service := NewService(store)

	date := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err := service.Add(ctx, userID, "Food", "", price("12.00"), "USD", date)
	require.NoError(t, err)
	_, err = service.Add(ctx, userID, "Rent", "", price("900.00"), "EUR", date)
	require.NoError(t, err)

	results, err := service.TotalCostMultiple(ctx, userID, []string{"Food", "Rent"}, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Food", results[0].CategoryName)
	assert.True(t, results[0].Totals[0].Price.Equal(price("12.00")))
	assert.Equal(t, "Rent", results[1].CategoryName)
	assert.True(t, results[1].Totals[0].Price.Equal(price("900.00")))
}

func TestTotalCostMultipleAllOrNothing(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Premium
	store.addCategory(userID, "Food")
	service := NewService(store)

	date := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err := service.Add(ctx, userID, "Food", "", price("12.00"), "USD", date)
	require.NoError(t, err)

	results, err := service.TotalCostMultiple(ctx, userID, []string{"Food", "Nope"}, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.Nil(t, results, "one unknown category must fail the whole request")
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(time.Date(2024, time.March, 14, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), end)

	// December rolls into January of the next year.
	start, end = MonthWindow(time.Date(2024, time.December, 31, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}
