package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is one spending record inside a category. Price is an exact
// decimal; float arithmetic never touches money here.
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DescriptionMaxLen bounds expense descriptions, mirrored by the schema.
const DescriptionMaxLen = 60

// MonthWindow returns the UTC calendar month containing date as a
// [start, end) pair. The free-plan monthly cap buckets by the expense's
// stated date, not by when the request arrives.
func MonthWindow(date time.Time) (time.Time, time.Time) {
	date = date.UTC()
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
