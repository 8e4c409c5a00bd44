package logger

// Standard field names for consistent structured logging across vanadev.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldJobID = "job_id"
	FieldEnv   = "env"
	FieldHook  = "hook"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldCommand   = "command"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError    = "error"
	FieldExitCode = "exit_code"

	// Counts and sizes
	FieldCount = "count"
	FieldFiles = "files"
)
