package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"wlchewing/internal/ime"
)

// KeyboardLayouts lists the keyboard type names libchewing accepts.
var KeyboardLayouts = []string{
	"KB_DEFAULT",
	"KB_HSU",
	"KB_IBM",
	"KB_GIN_YIEH",
	"KB_ET",
	"KB_ET26",
	"KB_DVORAK",
	"KB_DVORAK_HSU",
	"KB_DACHEN_CP26",
	"KB_HANYU_PINYIN",
	"KB_THL_PINYIN",
	"KB_MPS2_PINYIN",
	"KB_CARPALX",
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig checks every section and returns all problems found, or
// nil.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	if _, err := ime.ParseSym(c.ToggleKey); err != nil {
		errs = append(errs, ValidationError{Field: "toggle_key", Message: err.Error()})
	}

	errs = append(errs, validateEngine(&c.Engine)...)
	errs = append(errs, validatePanel(&c.Panel)...)
	errs = append(errs, validateRepeat(&c.Repeat)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateEngine(e *EngineConfig) ValidationErrors {
	var errs ValidationErrors

	if !slices.Contains(KeyboardLayouts, e.KeyboardLayout) {
		errs = append(errs, ValidationError{
			Field:   "engine.keyboard_layout",
			Message: fmt.Sprintf("unknown keyboard layout %q", e.KeyboardLayout),
		})
	}
	if e.CandidatesPerPage < 1 || e.CandidatesPerPage > ime.WindowSize {
		errs = append(errs, *RangeError("engine.candidates_per_page", 1, ime.WindowSize))
	}
	return errs
}

func validatePanel(p *PanelConfig) ValidationErrors {
	if p.MaxColumns < 10 || p.MaxColumns > 1000 {
		return ValidationErrors{*RangeError("panel.max_columns", 10, 1000)}
	}
	return nil
}

func validateRepeat(r *RepeatConfig) ValidationErrors {
	var errs ValidationErrors

	if r.RateOverride < 0 || r.RateOverride > 100 {
		errs = append(errs, *RangeError("repeat.rate_override", 0, 100))
	}
	if r.DelayMsOverride < 0 || r.DelayMsOverride > 5000 {
		errs = append(errs, *RangeError("repeat.delay_ms_override", 0, 5000))
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
		// Valid formats
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
