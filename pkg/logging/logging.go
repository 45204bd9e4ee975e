// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Settings struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	WithCaller bool   `mapstructure:"with-caller"`
	// FileOnly drops the stderr writer, for when the terminal belongs to the TUI.
	FileOnly bool `mapstructure:"-"`
}

func DefaultSettings() Settings {
	return Settings{
		Level:  "info",
		Format: "text",
	}
}

func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	}
	return zerolog.InfoLevel, errors.Errorf("unknown log level %q", level)
}

// NewWriter builds the output the logger writes to.
func NewWriter(s Settings) io.Writer {
	var writers []io.Writer
	if !s.FileOnly || s.File == "" {
		if s.Format == "json" {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
		}
	}
	if s.File != "" {
		writers = append(writers, zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   s.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			},
		})
	}
	if len(writers) == 1 {
		return writers[0]
	}
	return io.MultiWriter(writers...)
}

func InitLogger(s Settings) error {
	level, err := ParseLevel(s.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(NewWriter(s)).With().Timestamp()
	if s.WithCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()
	return nil
}
