package log

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorKind  = "error_kind"
	FieldOperation  = "operation"

	FieldRecords          = "records"
	FieldCoercionFailures = "coercion_failures"
	FieldSnapshotVersion  = "snapshot_version"
	FieldGroupBy          = "group_by"
	FieldView             = "view"
	FieldMode             = "mode"
	FieldGroup            = "group"
	FieldMutationID       = "mutation_id"
	FieldMutationOp       = "mutation_op"
	FieldBeneficiaryID    = "beneficiary_id"
	FieldAttempts         = "attempts"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLoader    = "loader"
	ComponentReport    = "report"
	ComponentExport    = "export"
	ComponentUpstream  = "upstream"
	ComponentSheets    = "sheets"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentService   = "service"
)

const (
	OpFetch    = "fetch"
	OpRefresh  = "refresh"
	OpChart    = "chart"
	OpDetail   = "detail"
	OpExport   = "export"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpLookup   = "lookup"
	OpSync     = "sync"
	OpSweep    = "sweep"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields is a chainable set of slog attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(id string) LogFields {
	if id != "" {
		f[FieldRequestID] = id
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError records the message; nil is ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithSnapshot(version uint64, records, coercionFailures int) LogFields {
	f[FieldSnapshotVersion] = version
	f[FieldRecords] = records
	f[FieldCoercionFailures] = coercionFailures
	return f
}

func (f LogFields) WithReport(groupBy, view, mode string) LogFields {
	f[FieldGroupBy] = groupBy
	f[FieldView] = view
	f[FieldMode] = mode
	return f
}

func (f LogFields) WithMutation(id, op, beneficiaryID string) LogFields {
	f[FieldMutationID] = id
	f[FieldMutationOp] = op
	if beneficiaryID != "" {
		f[FieldBeneficiaryID] = beneficiaryID
	}
	return f
}

func (f LogFields) WithHTTP(method, path, query string, status int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	f[FieldSuccess] = status < 400
	return f
}

// ToSlice flattens the fields into slog's key/value form.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
