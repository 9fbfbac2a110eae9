package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

// Field keys shared by every component.
const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldSource   = "source"
	FieldFailure  = "failure"
)

// StringField is a key/value pair rendered as a zap string field.
type StringField struct {
	Key   string
	Value string
}

// StringFields trims keys and values and skips pairs where either is blank.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger. A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the language model behind a ranking or parsing call.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// SourceFields names a candidate source.
func SourceFields(source string) []zap.Field {
	return StringFields(StringField{Key: FieldSource, Value: source})
}

func WithSource(logger *zap.Logger, source string) *zap.Logger {
	return WithFields(logger, SourceFields(source)...)
}

// FailureFields tags err with its failure class. A nil error yields no fields.
func FailureFields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	return append(
		StringFields(StringField{Key: FieldFailure, Value: sourcing.FailureTag(err)}),
		zap.Error(err),
	)
}
