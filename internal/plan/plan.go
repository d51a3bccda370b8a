package plan

// Plan is the user's subscription tier. The ordinal encodes a total order:
// a higher value always means a better plan, which the subscription
// reconciler relies on when deciding whether a stale event may downgrade.
type Plan int

const (
	Free    Plan = 0
	Premium Plan = 1
)

// Limits applied to Free accounts. Premium has none.
const (
	FreeMaxCategories      = 8
	FreeMaxMonthlyExpenses = 20
)

func (p Plan) String() string {
	switch p {
	case Free:
		return "free"
	case Premium:
		return "premium"
	default:
		return "unknown"
	}
}

// CanCreateCategory reports whether a user on plan p with categoryCount
// existing categories may create another one. The count must be read in the
// same transaction as the subsequent insert.
func CanCreateCategory(p Plan, categoryCount int) bool {
	if p != Free {
		return true
	}
	return categoryCount < FreeMaxCategories
}

// CanCreateExpense reports whether a user on plan p may add another expense
// to a category that already has monthCount expenses within the calendar
// month of the new expense's stated date.
func CanCreateExpense(p Plan, monthCount int) bool {
	if p != Free {
		return true
	}
	return monthCount < FreeMaxMonthlyExpenses
}
