package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// User is the persistence model for an account. Plan is the raw tier ordinal
// (0 = free, 1 = premium); the domain packages wrap it in plan.Plan.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Firstname         string    `bun:"firstname,notnull"`
	Lastname          string    `bun:"lastname,notnull"`
	Email             string    `bun:"email,notnull,unique"`
	PasswordHash      string    `bun:"password_hash,notnull"`
	EmailVerified     bool      `bun:"email_verified,notnull,default:false"`
	PreferredCurrency *string   `bun:"preferred_currency"`
	Plan              int       `bun:"plan,notnull,default:0"`
	SignupDate        time.Time `bun:"signup_date,nullzero,notnull,default:current_timestamp"`

	BillingAccount *BillingAccount `bun:"rel:has-one,join:id=user_id"`
	Categories     []*Category     `bun:"rel:has-many,join:id=user_id"`
}

// BillingAccount links a user to the payment provider. Created lazily on the
// first subscription purchase; SubscriptionID stays empty until a webhook
// records one.
type BillingAccount struct {
	bun.BaseModel `bun:"table:billing_accounts,alias:ba"`

	ID             uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID         uuid.UUID `bun:"user_id,notnull,unique,type:uuid"`
	CustomerID     string    `bun:"customer_id,notnull"`
	SubscriptionID string    `bun:"subscription_id,notnull,default:''"`
}

// Category groups expenses. (user_id, name) is unique so a user can't own
// two categories with the same name.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID              int64     `bun:"id,pk,autoincrement"`
	UserID          uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Name            string    `bun:"name,notnull"`
	DefaultCurrency string    `bun:"default_currency,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Expenses []*Expense `bun:"rel:has-many,join:id=category_id"`
}

// Expense belongs to exactly one category. Price is numeric(12,2) and scans
// into an exact decimal, never a float.
type Expense struct {
	bun.BaseModel `bun:"table:expenses,alias:e"`

	ID          uuid.UUID       `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	CategoryID  int64           `bun:"category_id,notnull"`
	Description *string         `bun:"description"`
	Price       decimal.Decimal `bun:"price,notnull,type:numeric(12,2)"`
	Currency    string          `bun:"currency,notnull"`
	Date        time.Time       `bun:"date,notnull"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
