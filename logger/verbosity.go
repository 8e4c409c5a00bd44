package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// These levels control WHAT categories of output are shown, not just log severity.
//
// Example usage:
//
//	if logger.ShouldOutput(verbosity, logger.OutputCommandLines) {
//	    fmt.Printf("  $ %s\n", cmdline)
//	}
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + progress, env provisioning steps, hook status
	VerbosityDebug = 2 // -vv: + command lines, timing, config details
	VerbosityTrace = 3 // -vvv: + pip/interpreter output, SQL
	VerbosityAll   = 4 // -vvvv: + full captured stdout/stderr of every command
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels
//
//	0 (none)  -> WarnLevel  (errors and warnings only)
//	1 (-v)    -> InfoLevel  (+ informational messages)
//	2+ (-vv)  -> DebugLevel (+ debug messages)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch verbosity {
	case VerbosityUser:
		return zapcore.WarnLevel
	case VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - always shown
	OutputResults    OutputCategory = iota // Run results, command output summaries
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - informational
	OutputProgress   // Progress indicators ("installing 12 packages...")
	OutputStartup    // Startup banners, config summary
	OutputHookStatus // Hook installed/skipped/matched-file counts
	OutputEnvSteps   // Environment provisioning steps

	// Level 2 (-vv) - detailed
	OutputCommandLines // Exact command lines executed in each env
	OutputTiming       // Operation timing ("env py310 took 42s")
	OutputConfig       // Config values loaded/applied

	// Level 3 (-vvv) - debug
	OutputToolOutput // pip/interpreter stdout+stderr forwarding
	OutputSQLQueries // Individual SQL queries executed

	// Level 4 (-vvvv) - full dump
	OutputDataDump // Full captured output and data structure contents
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress:   VerbosityInfo,
	OutputStartup:    VerbosityInfo,
	OutputHookStatus: VerbosityInfo,
	OutputEnvSteps:   VerbosityInfo,

	OutputCommandLines: VerbosityDebug,
	OutputTiming:       VerbosityDebug,
	OutputConfig:       VerbosityDebug,

	OutputToolOutput: VerbosityTrace,
	OutputSQLQueries: VerbosityTrace,

	OutputDataDump: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the
// current verbosity level.
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return false
	}
	return verbosity >= minLevel
}

// ShouldLogTrace returns true for verbosity >= 3 (-vvv)
func ShouldLogTrace(verbosity int) bool {
	return verbosity >= VerbosityTrace
}
