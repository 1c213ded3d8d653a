package logger

import (
	"go.uber.org/zap"
)

// New builds a zap logger appropriate for the given environment.
// "prod" gets JSON output, "test" gets the deterministic example
// logger, everything else gets the human-readable development logger.
func New(environment string) (*zap.Logger, error) {
	switch environment {
	case "prod":
		return zap.NewProduction()
	case "test":
		return zap.NewExample(), nil
	default:
		return zap.NewDevelopment()
	}
}

func MustNew(environment string) *zap.Logger {
	l, err := New(environment)
	if err != nil {
		panic(err)
	}
	return l
}
