package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the production JSON logger in production and the
// development console logger otherwise. The returned level can be changed
// at runtime.
func NewLogger(environment, level string) (*zap.Logger, zap.AtomicLevel, error) {
	atom := zap.NewAtomicLevel()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, atom, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		atom.SetLevel(parsed)
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
