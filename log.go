package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// setupLog wires the default logger. With a log file configured (config
// key log_file or CASCADE_LOG) everything down to debug lands there;
// otherwise only warnings and up reach stderr. The returned closer flushes
// the file sink.
func setupLog() (func() error, error) {
	logFile := os.Getenv("CASCADE_LOG")
	if logFile == "" {
		logFile = viper.GetString("log_file")
	}

	if logFile == "" {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.WarnLevel)
		return func() error { return nil }, nil
	}

	path, err := homedir.Expand(logFile)
	if err != nil {
		return nil, fmt.Errorf("unable to expand log path: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return f.Close, nil
}

// muteLog drops all logging, used while the dashboard owns the terminal
// and no file sink is configured.
func muteLog() {
	if os.Getenv("CASCADE_LOG") == "" && viper.GetString("log_file") == "" {
		log.SetOutput(io.Discard)
	}
}
