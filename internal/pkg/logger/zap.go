package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the service logger is built.
type Config struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json or console
	Development bool   `yaml:"development"`
}

// NewZapLogger builds the service-wide zap logger.
func NewZapLogger(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch cfg.Level {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "log.level"
	encoderConfig.MessageKey = "message"

	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	log := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))

	if cfg.Development {
		log = log.WithOptions(zap.AddCaller())
	}

	return log, nil
}

// Default returns a production JSON logger for callers without config.
func Default() *zap.Logger {
	log, err := NewZapLogger(Config{Level: "info", Format: "json"})
	if err != nil {
		return zap.NewExample()
	}
	return log
}
