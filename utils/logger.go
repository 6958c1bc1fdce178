package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/amirphl/Susanoo/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigureLogger sets up the global logrus logger from cfg. When file output
// is requested it returns the rotating writer so the caller can close it on
// shutdown.
func ConfigureLogger(cfg config.LoggingConfig) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetReportCaller(cfg.EnableCaller)

	if cfg.Format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	var rotating *lumberjack.Logger
	if cfg.Output == "file" || cfg.Output == "both" {
		if dir := filepath.Dir(cfg.FilePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		rotating = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}

	switch {
	case rotating != nil && cfg.Output == "both":
		logrus.SetOutput(io.MultiWriter(os.Stdout, rotating))
	case rotating != nil:
		logrus.SetOutput(rotating)
	default:
		logrus.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}
	return rotating, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
