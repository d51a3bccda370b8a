package validate

import "fmt"

// FieldError is a user-correctable validation failure tagged with the input
// field it belongs to. It is returned directly to the caller and is never
// treated as exceptional.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewFieldError creates a field-tagged validation error.
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// Text describes length rules for a single string input. The value is expected
// to be trimmed by the caller before validation.
type Text struct {
	Field    string
	Value    string
	MaxLen   int
	Optional bool // empty value allowed when true
}

// Check validates the rule. The length bound is checked before emptiness so a
// caller always learns about an oversized input first.
func (t Text) Check() *FieldError {
	if t.MaxLen > 0 && len(t.Value) > t.MaxLen {
		return NewFieldError(t.Field, fmt.Sprintf("can't be longer than %d characters", t.MaxLen))
	}
	if !t.Optional && len(t.Value) == 0 {
		return NewFieldError(t.Field, "can't be empty")
	}
	return nil
}

// Texts runs a set of rules in order and returns the first failure.
func Texts(rules ...Text) *FieldError {
	for _, r := range rules {
		if err := r.Check(); err != nil {
			return err
		}
	}
	return nil
}
