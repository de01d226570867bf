package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
)

// Fallback colors applied when a category is saved without one.
const (
	DefaultIncomeColor  = "#2e7d32"
	DefaultExpenseColor = "#c62828"
)

// DefaultListLimit caps ListOptions when no limit is given.
const DefaultListLimit = 50

type (
	CategoryType string

	Category struct {
		ID        int64
		Name      string
		Type      CategoryType
		Color     string // hex code, e.g. #c62828
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		Description string
		Amount      Money
		OccurredOn  string // YYYY-MM-DD
		CategoryID  *int64
		CreatedAt   time.Time

		// Joined from the linked category; nil when uncategorized.
		CategoryName *string
		CategoryType *CategoryType
	}

	CategoryInput struct {
		Name  string       `json:"name" validate:"notblank"`
		Type  CategoryType `json:"type" validate:"oneof=income expense"`
		Color string       `json:"color" validate:"omitempty,hexcolor"`
	}

	TransactionInput struct {
		Description string          `json:"description" validate:"notblank"`
		Amount      decimal.Decimal `json:"amount"`
		OccurredOn  string          `json:"occurredOn" validate:"omitempty,datetime=2006-01-02"`
		CategoryID  *int64          `json:"categoryId"`
		// Type is used for sign normalization when CategoryID is nil or stale.
		Type CategoryType `json:"type" validate:"omitempty,oneof=income expense"`
	}

	ListOptions struct {
		// Limit defaults to DefaultListLimit when zero or negative.
		Limit int
	}

	MonthOptions struct {
		// Target selects the month; the zero value means the current month.
		Target time.Time
	}
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t CategoryType) String() string {
	return string(t)
}

// DefaultColor returns the fallback color for the type.
func (t CategoryType) DefaultColor() string {
	if t == Income {
		return DefaultIncomeColor
	}
	return DefaultExpenseColor
}

// ParseCategoryType accepts income/expense in any case.
func ParseCategoryType(s string) (CategoryType, error) {
	t := CategoryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ValidationError{Field: "type", Message: "type must be income or expense"}
	}
	return t, nil
}

// Normalize trims the input, applies the color fallback and validates it.
func (in CategoryInput) Normalize() (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.Name == "" {
		return in, &ValidationError{Field: "name", Message: "name is required"}
	}
	if err := validateStruct(in); err != nil {
		return in, err
	}
	if in.Color == "" {
		in.Color = in.Type.DefaultColor()
	}
	return in, nil
}

// Normalize trims the input, defaults the date to today and validates it.
func (in TransactionInput) Normalize(now time.Time) (TransactionInput, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.OccurredOn = strings.TrimSpace(in.OccurredOn)
	if in.Description == "" {
		return in, &ValidationError{Field: "description", Message: "description is required"}
	}
	if err := validateStruct(in); err != nil {
		return in, err
	}
	if in.OccurredOn == "" {
		in.OccurredOn = FormatDay(now)
	}
	return in, nil
}

// EffectiveLimit resolves the configured limit.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Month returns the window selected by the options.
func (o MonthOptions) Month() DateRange {
	target := o.Target
	if target.IsZero() {
		target = time.Now()
	}
	return MonthBounds(target)
}
