package category

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exxpenses/exxpenses/internal/plan"
	"github.com/exxpenses/exxpenses/internal/validate"
)

type fakeStore struct {
	plans      map[uuid.UUID]plan.Plan
	categories map[uuid.UUID][]Category
	nextID     int64
	lockCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:      make(map[uuid.UUID]plan.Plan),
		categories: make(map[uuid.UUID][]Category),
		nextID:     1,
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, f)
}

func (f *fakeStore) LockOwner(ctx context.Context, userID uuid.UUID) (plan.Plan, error) {
	f.lockCalls++
	p, ok := f.plans[userID]
	if !ok {
		return plan.Free, ErrOwnerNotFound
	}
	return p, nil
}

func (f *fakeStore) CountForOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(f.categories[userID]), nil
}

func (f *fakeStore) Insert(ctx context.Context, userID uuid.UUID, name, defaultCurrency string) (*Category, error) {
	for _, c := range f.categories[userID] {
		if c.Name == name {
			return nil, ErrDuplicateName
		}
	}
	created := Category{ID: f.nextID, Name: name, DefaultCurrency: defaultCurrency, UpdatedAt: time.Now()}
	f.nextID++
	f.categories[userID] = append(f.categories[userID], created)
	return &created, nil
}

func (f *fakeStore) Update(ctx context.Context, userID uuid.UUID, id int64, name, defaultCurrency string) (bool, error) {
	for i, c := range f.categories[userID] {
		if c.ID == id {
			f.categories[userID][i].Name = name
			f.categories[userID][i].DefaultCurrency = defaultCurrency
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DeleteByName(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	for i, c := range f.categories[userID] {
		if c.Name == name {
			f.categories[userID] = append(f.categories[userID][:i], f.categories[userID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetByName(ctx context.Context, userID uuid.UUID, name string) (*Category, error) {
	for _, c := range f.categories[userID] {
		if c.Name == name {
			found := c
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) ListForOwner(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	return f.categories[userID], nil
}

func TestAddCategory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	service := NewService(store)

	created, err := service.Add(ctx, userID, "  Groceries  ", "USD")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", created.Name, "name should be trimmed before persisting")
	assert.Equal(t, "USD", created.DefaultCurrency)
	assert.Equal(t, 1, store.lockCalls, "limit check must lock the owner row")
}

func TestAddCategoryValidation(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	service := NewService(store)

	tests := []struct {
		testName string
		name     string
		currency string
		field    string
	}{
		{"empty name", "   ", "USD", "name"},
		{"name too long", strings.Repeat("a", NameMaxLen+1), "USD", "name"},
		{"empty currency", "Food", "", "currency"},
		{"lowercase currency", "Food", "usd", "currency"},
		{"currency too long", "Food", "ABCDEFGHIJK", "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			_, err := service.Add(ctx, userID, tt.name, tt.currency)
			var ferr *validate.FieldError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.field, ferr.Field)
			assert.Zero(t, store.lockCalls, "validation failures must not reach storage")
		})
	}
}

func TestAddCategoryFreeLimit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	service := NewService(store)

	for i := 0; i < plan.FreeMaxCategories; i++ {
		_, err := service.Add(ctx, userID, "Category"+string(rune('A'+i)), "USD")
		require.NoError(t, err, "category %d should fit within the free cap", i+1)
	}

	_, err := service.Add(ctx, userID, "OneTooMany", "USD")
	assert.ErrorIs(t, err, ErrLimitReached)

	categories, err := service.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, categories, plan.FreeMaxCategories)
}

func TestAddCategoryPremiumUnlimited(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Premium
	service := NewService(store)

	for i := 0; i < plan.FreeMaxCategories*2; i++ {
		_, err := service.Add(ctx, userID, "Category"+string(rune('A'+i)), "USD")
		require.NoError(t, err)
	}
}

func TestAddCategoryDuplicateName(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	service := NewService(store)

	_, err := service.Add(ctx, userID, "Food", "USD")
	require.NoError(t, err)

	_, err = service.Add(ctx, userID, "Food", "EUR")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestAddCategoryOwnerDeleted(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	service := NewService(store)

	_, err := service.Add(ctx, uuid.New(), "Food", "USD")
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestEditCategoryScoping(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	store := newFakeStore()
	store.plans[owner] = plan.Free
	store.plans[stranger] = plan.Free
	service := NewService(store)

	created, err := service.Add(ctx, owner, "Food", "USD")
	require.NoError(t, err)

	ok, err := service.Edit(ctx, stranger, created.ID, "Hijacked", "EUR")
	require.NoError(t, err)
	assert.False(t, ok, "editing someone else's category must report ok=false")

	kept, err := service.Get(ctx, owner, "Food")
	require.NoError(t, err)
	assert.Equal(t, "USD", kept.DefaultCurrency)

	ok, err = service.Edit(ctx, owner, created.ID, "Dining", "EUR")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteCategoryScoping(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	store := newFakeStore()
	store.plans[owner] = plan.Free
	store.plans[stranger] = plan.Free
	service := NewService(store)

	_, err := service.Add(ctx, owner, "Food", "USD")
	require.NoError(t, err)

	ok, err := service.Delete(ctx, stranger, "Food")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = service.Delete(ctx, owner, "Food")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.Delete(ctx, owner, "Food")
	require.NoError(t, err)
	assert.False(t, ok, "second delete of the same category must report ok=false")
}

func TestGetCategoryNotFound(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newFakeStore()
	store.plans[userID] = plan.Free
	service := NewService(store)

	_, err := service.Get(ctx, userID, "Nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
