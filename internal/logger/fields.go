package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldRunID identifies one reconciliation in the logs.
	FieldRunID = "run_id"
	// FieldCVRecords is the number of CV records a run received.
	FieldCVRecords = "cv_records"
	// FieldPFRecords is the number of PF records a run received.
	FieldPFRecords = "pf_records"
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RunFields describes a reconciliation run. An empty run ID is omitted.
func RunFields(runID string, cvRecords, pfRecords int) []zap.Field {
	fields := StringFields(StringField{Key: FieldRunID, Value: runID})
	return append(fields,
		zap.Int(FieldCVRecords, cvRecords),
		zap.Int(FieldPFRecords, pfRecords),
	)
}

// ProviderFields returns fields that describe the AI provider and model.
// Empty values are ignored to keep log entries compact when information is missing.
func ProviderFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithProviderFields attaches the provider fields to the provided logger.
func WithProviderFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, ProviderFields(provider, model)...)
}
