package category

import "time"

// Category is a user-owned expense bucket. Ownership is enforced by scoped
// queries, so the owner id never leaves the storage layer.
type Category struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NameMaxLen bounds category names, mirrored by the schema.
const NameMaxLen = 30
