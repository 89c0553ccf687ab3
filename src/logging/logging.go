// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
	// Optional rotated log file, written in addition to stdout.
	File       string `envconfig:"LOG_FILE"`
	MaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"100"`
	MaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" default:"14"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}

// Setup applies cfg to the standard logger. The returned closer releases the
// log file, if any.
func Setup(cfg *Config) io.Closer {
	return apply(logger.StandardLogger(), cfg, os.Stdout)
}

func apply(l *logger.Logger, cfg *Config, stdout io.Writer) io.Closer {
	level, err := logger.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logger.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logger.JSONFormatter{})
	default:
		l.SetFormatter(&logger.TextFormatter{
			FullTimestamp: true,
		})
	}

	if cfg.File == "" {
		l.SetOutput(stdout)
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	l.SetOutput(io.MultiWriter(stdout, file))
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
