package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Color palette (gruvbox dark: warm, muted, easy on eyes)
const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"

	colorFg       = "\x1b[38;5;223m" // Soft cream
	colorAqua     = "\x1b[38;5;108m" // Muted cyan-green
	colorOrange   = "\x1b[38;5;208m" // Warm orange
	colorYellow   = "\x1b[38;5;214m" // Soft yellow
	colorGreen    = "\x1b[38;5;142m" // Muted green
	colorBlue     = "\x1b[38;5;109m" // Soft blue
	colorRed      = "\x1b[38;5;167m" // Warm red
	colorRedBg    = "\x1b[48;5;88m"
	colorYellowBg = "\x1b[48;5;58m"
)

// minimalEncoder implements a calm, compact console encoder
// Format: "13:04:35  runner  env py310 passed  3 commands 42s"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	// Base JSON encoder handles With()-attached field serialization
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	// Time
	final.AppendString(colorAqua)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only shown for WARN/ERROR with bold + background
	if ent.Level != zapcore.InfoLevel && ent.Level != zapcore.DebugLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	// Component name (abbreviated) for visual grouping
	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(componentColor(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	// Message
	final.AppendString("  ")
	final.AppendString(messageColor(ent.Message))
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	// Fields: extract and color the values people actually scan for
	if len(fields) > 0 {
		if vals := extractFieldValues(fields); vals != "" {
			final.AppendString("  ")
			final.AppendString(vals)
		}
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + colorYellowBg + colorYellow + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorRedBg + colorRed + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + colorRedBg + colorRed + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// abbreviateName shortens component names: runner -> runner, pulse.worker -> p.worker
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// componentColor picks a stable color per component so related lines group visually
func componentColor(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	if hash%2 == 0 {
		return colorOrange
	}
	return colorYellow
}

// messageColor applies a rough semantic color based on message content
func messageColor(msg string) string {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "passed") || strings.Contains(lower, "completed") ||
		strings.Contains(lower, "installed") {
		return colorGreen
	}
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		return colorRed
	}
	if strings.Contains(lower, "starting") || strings.Contains(lower, "provisioning") ||
		strings.Contains(lower, "config") {
		return colorOrange
	}
	return colorFg
}

// getFieldValue extracts the value from a zap field, handling different field types
func getFieldValue(field zapcore.Field) string {
	if field.Type == zapcore.StringType {
		return field.String
	}

	switch field.Type {
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	}

	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}

	return ""
}

// extractFieldValues pulls just the values from structured fields.
// Input:  {"env": "py310", "commands": 3, "duration_ms": 42180}
// Output: "py310 (3 commands) 42180ms" with colored IDs and numbers
func extractFieldValues(fields []zapcore.Field) string {
	var values []string

	for _, field := range fields {
		switch field.Key {
		case FieldEnv, FieldJobID, FieldHook:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorBlue+val+colorReset)
			}
		case FieldCount, "commands", FieldFiles:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorFg+"("+colorGreen+val+colorReset+colorFg+" "+field.Key+")"+colorReset)
			}
		case FieldDurationMS:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorGreen+val+colorReset+"ms")
			}
		case FieldExitCode:
			if val := getFieldValue(field); val != "" && val != "0" {
				values = append(values, colorRed+"exit "+val+colorReset)
			}
		}
	}

	return strings.Join(values, " ")
}
