package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{3, zapcore.DebugLevel},
		{4, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestShouldOutput(t *testing.T) {
	// Results always visible
	if !ShouldOutput(0, OutputResults) {
		t.Error("results should be shown at verbosity 0")
	}
	// Command lines only from -vv
	if ShouldOutput(1, OutputCommandLines) {
		t.Error("command lines should not be shown at -v")
	}
	if !ShouldOutput(2, OutputCommandLines) {
		t.Error("command lines should be shown at -vv")
	}
	// Tool output only from -vvv
	if ShouldOutput(2, OutputToolOutput) {
		t.Error("tool output should not be shown at -vv")
	}
	if !ShouldOutput(3, OutputToolOutput) {
		t.Error("tool output should be shown at -vvv")
	}
}

func TestInitializeSetsGlobal(t *testing.T) {
	if err := Initialize(false, VerbosityInfo); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if Logger == nil {
		t.Fatal("Logger should be non-nil after Initialize")
	}
	// Safe to call through package-level helpers
	Infow("logger initialized", FieldComponent, "test")
	Cleanup()
}
