package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cityvibe/internal/config"
)

// New builds the process logger. An unknown level falls back to info
// rather than failing startup; the scrapers should keep running even
// when the log config is sloppy.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoding := strings.ToLower(cfg.Encoding)
	if encoding == "" {
		encoding = "console"
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	// Scrape runs are correlated with run rows by timestamp, so JSON
	// output uses readable ISO 8601 instead of epoch floats.
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}

	return zc.Build()
}
