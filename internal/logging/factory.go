package logging

import (
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects and tunes a Logger implementation.
type Options struct {
	Backend string // "zap" (default) or "slog"
	Level   string // debug, info, warn, error
	Format  string // "json" (default) or "console"
	Output  io.Writer
}

// New builds a Logger from opts. An unparsable level falls back to info.
func New(opts Options) (Logger, error) {
	if opts.Backend == "slog" {
		return newSlog(opts), nil
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = "json"
	if opts.Format == "console" {
		zapCfg.Encoding = "console"
	}

	if opts.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(opts.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}

	if opts.Output != nil {
		core := zapcore.NewCore(newZapEncoder(zapCfg), zapcore.AddSync(opts.Output), zapCfg.Level)
		return NewZapLogger(zap.New(core)), nil
	}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(l), nil
}

func newZapEncoder(cfg zap.Config) zapcore.Encoder {
	if cfg.Encoding == "console" {
		return zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}
	return zapcore.NewJSONEncoder(cfg.EncoderConfig)
}

func newSlog(opts Options) *SlogLogger {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
		lvl = slog.LevelInfo
	}

	hopts := &slog.HandlerOptions{Level: lvl}
	if opts.Format == "console" {
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, hopts)))
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, hopts)))
}
