package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a structured logger for the environment. Production logs
// JSON, everything else logs to the console. The returned level can be
// changed at runtime.
func NewLogger(level, environment string) (*zap.Logger, zap.AtomicLevel, error) {
	atom := zap.NewAtomicLevel()
	if err := SetLevel(atom, level); err != nil {
		return nil, atom, err
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = atom

	logger, err := cfg.Build()
	if err != nil {
		return nil, atom, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, atom, nil
}

// SetLevel parses level ("debug", "info", ...) into atom.
func SetLevel(atom zap.AtomicLevel, level string) error {
	if level == "" {
		level = "info"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	atom.SetLevel(lvl)
	return nil
}
