package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldDuration    = "duration_ms"
	FieldCategoryID  = "category_id"
	FieldCategory    = "category"
	FieldType        = "type"
	FieldTxnID       = "transaction_id"
	FieldAmountCents = "amount_cents"
	FieldOccurredOn  = "occurred_on"
	FieldMonth       = "month"
	FieldEventID     = "event_id"
	FieldCount       = "count"
)

const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentCLI     = "cli"
)

const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeDatabase   = "database_error"
	ErrorTypeNetwork    = "network_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error, errType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errType
	}
	return f
}

func (f LogFields) WithCategory(id int64, name, typ string) LogFields {
	f[FieldCategoryID] = id
	f[FieldCategory] = name
	f[FieldType] = typ
	return f
}

func (f LogFields) WithTransaction(id, amountCents int64, occurredOn string) LogFields {
	f[FieldTxnID] = id
	f[FieldAmountCents] = amountCents
	f[FieldOccurredOn] = occurredOn
	return f
}

func (f LogFields) WithMonth(month string) LogFields {
	f[FieldMonth] = month
	return f
}

// ToSlice converts LogFields to slog key/value pairs, sorted by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
