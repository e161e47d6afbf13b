package core

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// LogInf logs informational events.
	LogInf = zap.NewNop().Sugar()
	// LogWrn logs warning events.
	LogWrn = zap.NewNop().Sugar()
	// LogErr logs error events.
	LogErr = zap.NewNop().Sugar()
)

// LogParams represents various logging options.
type LogParams struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string

	// Format is either "json" or "console". Defaults to "json".
	Format string

	// Path is an optional log file. Logs go to stderr if empty.
	Path string

	// Service is attached to every record as the service_name field.
	Service string
}

// SetupLog builds the zap logger and installs it for all package loggers.
//
// Remarks:
//   - Should be called once, before any goroutine starts logging.
func SetupLog(params LogParams) (*zap.Logger, error) {
	level, err := parseLevel(params.Level)
	if err != nil {
		return nil, err
	}

	var config zap.Config

	if params.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	if params.Path != "" {
		config.OutputPaths = []string{params.Path}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	if params.Service != "" {
		logger = logger.With(zap.String("service_name", params.Service))
	}

	SetLogger(logger)

	return logger, nil
}

// SetLogger installs the logger for all package loggers.
func SetLogger(logger *zap.Logger) {
	sugar := logger.Sugar()

	LogInf = sugar
	LogWrn = sugar
	LogErr = sugar
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
