// Package logger builds the zap logger used across appcheck.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where log output goes.
type Options struct {
	Dir     string    // directory for test_<ts>.log and error_<ts>.log; empty disables files
	Console io.Writer // defaults to os.Stderr
	Verbose bool      // console at DEBUG instead of INFO
	Now     func() time.Time
}

// Files are the log files opened by New.
type Files struct {
	Full  string
	Error string
}

// New returns a logger that tees a full DEBUG log file, an ERROR-only log
// file and the console. The returned close func syncs and closes the files.
func New(opts Options) (*zap.Logger, Files, func(), error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	consoleLevel := zapcore.InfoLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleCfg := encCfg
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), consoleLevel),
	}

	var files Files
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Sync()
			_ = f.Close()
		}
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, files, nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		ts := now().Format("20060102_150405")
		files.Full = filepath.Join(opts.Dir, "test_"+ts+".log")
		files.Error = filepath.Join(opts.Dir, "error_"+ts+".log")

		full, err := os.OpenFile(files.Full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, files, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		opened = append(opened, full)

		errs, err := os.OpenFile(files.Error, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			closeAll()
			return nil, files, nil, fmt.Errorf("failed to create error log file: %w", err)
		}
		opened = append(opened, errs)

		fileEnc := zapcore.NewConsoleEncoder(encCfg)
		cores = append(cores,
			zapcore.NewCore(fileEnc, zapcore.AddSync(full), zapcore.DebugLevel),
			zapcore.NewCore(fileEnc, zapcore.AddSync(errs), zapcore.ErrorLevel),
		)
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return log, files, func() {
		_ = log.Sync()
		closeAll()
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
