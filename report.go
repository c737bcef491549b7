package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/cascade/cache"
	"github.com/dgnsrekt/cascade/monitor"
)

// report is the YAML summary written after a run.
type report struct {
	RunID           string        `yaml:"run_id"`
	Strategy        string        `yaml:"strategy"`
	Duration        string        `yaml:"duration"`
	Operations      int64         `yaml:"operations"`
	EventsPerSecond int           `yaml:"events_per_second"`
	Layers          []layerReport `yaml:"layers"`
}

// layerReport summarizes one layer.
type layerReport struct {
	Name      string  `yaml:"name"`
	Priority  int     `yaml:"priority"`
	Hits      uint64  `yaml:"hits"`
	Misses    uint64  `yaml:"misses"`
	HitRate   float64 `yaml:"hit_rate"`
	Size      int64   `yaml:"size_bytes"`
	SizeHuman string  `yaml:"size"`
	MaxSize   int64   `yaml:"max_size_bytes"`
	MaxHuman  string  `yaml:"max_size"`
}

// buildReport snapshots the run into a report. mon may be nil in headless
// runs without a monitor attached.
func buildReport(w *workload, m *cache.Manager, mon *monitor.Monitor, elapsed time.Duration) report {
	r := report{
		RunID:      w.RunID(),
		Strategy:   m.Strategy().String(),
		Duration:   elapsed.Round(time.Millisecond).String(),
		Operations: w.Operations(),
	}
	if mon != nil {
		r.EventsPerSecond = mon.EventsPerSecond()
	}

	stats := m.Stats()
	for _, info := range m.Layers() {
		s := stats[info.Name]
		r.Layers = append(r.Layers, layerReport{
			Name:      info.Name,
			Priority:  info.Priority,
			Hits:      s.Hits,
			Misses:    s.Misses,
			HitRate:   s.HitRate,
			Size:      info.CurrentSize,
			SizeHuman: humanize.IBytes(uint64(info.CurrentSize)),
			MaxSize:   info.MaxSize,
			MaxHuman:  humanize.IBytes(uint64(info.MaxSize)),
		})
	}
	return r
}

// YAML renders the report.
func (r report) YAML() (string, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("unable to marshal report: %w", err)
	}
	return string(out), nil
}

// write stores the report at path.
func (r report) write(path string) error {
	out, err := r.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write report: %w", err)
	}
	return nil
}
