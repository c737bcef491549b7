package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# write strategy: write-through, fastest-only, or write-behind
strategy: "write-through"

# cache layers, fastest first. kind is memory or mock; mock stands in for
# external tiers like Redis or Mongo and simulates their latency.
layers:
  - name: "L1-Memory"
    kind: "memory"
    priority: 0
    latency: "1us"
    max_size: "100MiB"
  - name: "L2-Redis"
    kind: "mock"
    priority: 1
    latency: "2ms"
    max_size: "256MiB"
  - name: "L3-Mongo"
    kind: "mock"
    priority: 2
    latency: "10ms"
    max_size: "1GiB"

# demo traffic
workload:
  # operations per second
  rate: 50
  # distinct keys, zipf-distributed
  keys: 200
  # TTL applied to written values (0 disables expiry)
  ttl: "2m"

monitor:
  # waveform samples kept per channel
  waveform: 60
  # dashboard refresh rate
  fps: 30

# write everything down to debug here (also settable via CASCADE_LOG)
# log_file: "~/.cache/cascade.log"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the cascade config file",
	Long:    paragraph(fmt.Sprintf("\n%s the cascade config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("cascade config\ncascade config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Cascade", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
