package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldBudgetID    = "budget_id"
	FieldEntityID    = "entity_id"
	FieldDeviceID    = "device_id"
	FieldMonth       = "month"
	FieldKnowledge   = "knowledge"
	FieldRows        = "rows"
	FieldQueries     = "queries"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldDiffFile    = "diff_file"
	FieldAmountCents = "amount_cents"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentKnowledge = "knowledge"
	ComponentCalc      = "calc"
	ComponentEngine    = "engine"
	ComponentDiff      = "diff"
	ComponentAMQP      = "amqp"
	ComponentBridge    = "bridge"
	ComponentWorker    = "worker"
)

// Operations defines standard operation names
const (
	OpInitialize = "initialize"
	OpLoad       = "load"
	OpSave       = "save"
	OpSync       = "sync"
	OpCalculate  = "calculate"
	OpProject    = "project"
	OpExport     = "export"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithBudget adds budget ID field
func (f LogFields) WithBudget(budgetID string) LogFields {
	f[FieldBudgetID] = budgetID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithKnowledge adds the knowledge stamp assigned to a write batch
func (f LogFields) WithKnowledge(stamp int64) LogFields {
	f[FieldKnowledge] = stamp
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
