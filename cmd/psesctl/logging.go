package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a slog logger rendered by charmbracelet/log.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "psesctl",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})

	return slog.New(handler), nil
}
