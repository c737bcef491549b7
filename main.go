// Package main provides the entry point for the cascade CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/dgnsrekt/cascade/cache"
	"github.com/dgnsrekt/cascade/cache/mock"
	"github.com/dgnsrekt/cascade/monitor"
	"github.com/dgnsrekt/cascade/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	strategyName string
	opsRate      float64
	runDuration  time.Duration
	headless     bool
	reportPath   string

	rootCmd = &cobra.Command{
		Use:   "cascade",
		Short: "Run a multi-tier cache and watch it work",
		Long: paragraph(
			fmt.Sprintf("\nDrive traffic through a %s cache stack and watch hits, misses, and evictions ripple across the tiers.", keyword("multi-tier")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          execute,
	}
)

// layerSpec is one entry of the config's layers list.
type layerSpec struct {
	Name     string        `mapstructure:"name"`
	Kind     string        `mapstructure:"kind"` // memory or mock
	Priority int           `mapstructure:"priority"`
	Latency  time.Duration `mapstructure:"latency"`
	MaxSize  string        `mapstructure:"max_size"`
}

// buildLayers turns the configured layer specs into cache layers sharing
// one pulse stream. Without configuration a three-tier demo stack is built.
func buildLayers(stream *cache.PulseStream) ([]cache.Layer, error) {
	var specs []layerSpec
	if err := viper.UnmarshalKey("layers", &specs); err != nil {
		return nil, fmt.Errorf("unable to parse layers config: %w", err)
	}
	if len(specs) == 0 {
		specs = []layerSpec{
			{Name: "L1-Memory", Kind: "memory", Priority: 0, Latency: time.Microsecond, MaxSize: "100MiB"},
			{Name: "L2-Redis", Kind: "mock", Priority: 1, Latency: 2 * time.Millisecond, MaxSize: "256MiB"},
			{Name: "L3-Mongo", Kind: "mock", Priority: 2, Latency: 10 * time.Millisecond, MaxSize: "1GiB"},
		}
	}

	layers := make([]cache.Layer, 0, len(specs))
	for _, spec := range specs {
		var maxBytes uint64
		if spec.MaxSize != "" {
			var err error
			maxBytes, err = humanize.ParseBytes(spec.MaxSize)
			if err != nil {
				return nil, fmt.Errorf("layer %s: bad max_size %q: %w", spec.Name, spec.MaxSize, err)
			}
		}

		switch spec.Kind {
		case "", "memory":
			layers = append(layers, cache.NewMemoryLayer(cache.MemoryConfig{
				Name:     spec.Name,
				Priority: spec.Priority,
				Latency:  spec.Latency,
				MaxSize:  int64(maxBytes), //nolint:gosec
				Pulses:   stream,
			}))
		case "mock":
			layers = append(layers, mock.New(mock.Config{
				Name:     spec.Name,
				Priority: spec.Priority,
				Latency:  spec.Latency,
				MaxSize:  int64(maxBytes), //nolint:gosec
				Pulses:   stream,
			}))
		default:
			return nil, fmt.Errorf("layer %s: unknown kind %q", spec.Name, spec.Kind)
		}
	}
	return layers, nil
}

func buildManager() (*cache.Manager, error) {
	stream := cache.NewPulseStream()
	layers, err := buildLayers(stream)
	if err != nil {
		return nil, err
	}

	return cache.New(cache.Config{
		Strategy: cache.ParseWriteStrategy(viper.GetString("strategy")),
		Pulses:   stream,
	}, layers...), nil
}

// watchConfig re-reads the config file on change so the workload rate can
// be tuned while the demo runs. Returns a stop function.
func watchConfig(w *workload) func() {
	used := viper.ConfigFileUsed()
	if used == "" {
		return func() {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config watch unavailable", "error", err)
		return func() {}
	}
	if err := watcher.Add(filepath.Dir(used)); err != nil {
		log.Warn("config watch unavailable", "path", used, "error", err)
		_ = watcher.Close()
		return func() {}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != used || !event.Op.Has(fsnotify.Write) {
					continue
				}
				if err := viper.ReadInConfig(); err != nil {
					log.Warn("config reload failed", "error", err)
					continue
				}
				w.setRate(viper.GetFloat64("workload.rate"))
				log.Info("config reloaded", "rate", viper.GetFloat64("workload.rate"))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watch error", "error", err)
			}
		}
	}()

	return func() { _ = watcher.Close() }
}

func execute(*cobra.Command, []string) error {
	// Dashboards need a terminal; fall back to headless otherwise
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		headless = true
	}

	manager, err := buildManager()
	if err != nil {
		return err
	}

	mon := monitor.New(monitor.Config{
		WaveformSize: viper.GetInt("monitor.waveform"),
	})
	mon.Connect(manager.Pulses())
	defer mon.Disconnect()

	w := newWorkload(
		manager,
		viper.GetFloat64("workload.rate"),
		viper.GetInt("workload.keys"),
		viper.GetDuration("workload.ttl"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	stopWatch := watchConfig(w)
	defer stopWatch()

	start := time.Now()
	if headless {
		err = runHeadless(ctx, w, mon)
	} else {
		err = runDashboard(ctx, manager, mon, w)
	}
	if err != nil {
		return err
	}

	r := buildReport(w, manager, mon, time.Since(start))
	if reportPath == "" {
		reportPath = viper.GetString("report")
	}
	if reportPath != "" {
		if err := r.write(reportPath); err != nil {
			return err
		}
	}
	if headless || reportPath == "" {
		out, err := r.YAML()
		if err != nil {
			return err
		}
		fmt.Print(out)
	}
	return nil
}

// runHeadless drives the workload without a dashboard, ticking the monitor
// so the report still carries an events-per-second figure.
func runHeadless(ctx context.Context, w *workload, mon *monitor.Monitor) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.run(ctx) })
	g.Go(func() error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				mon.Update(now.Sub(last))
				last = now
			}
		}
	})
	return g.Wait() //nolint:wrapcheck
}

// runDashboard owns the terminal until the user quits or the run expires.
func runDashboard(ctx context.Context, manager *cache.Manager, mon *monitor.Monitor, w *workload) error {
	muteLog()

	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	if os.Getenv("CASCADE_FPS") == "" {
		cfg.FPS = viper.GetInt("monitor.fps")
	}
	cfg.Strategy = manager.Strategy().String()
	cfg.Rate = viper.GetFloat64("workload.rate")

	p := ui.NewProgram(cfg, manager, mon)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = w.run(wctx)
	}()
	go func() {
		<-wctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run dashboard: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "write strategy: write-through, fastest-only, or write-behind")
	rootCmd.Flags().Float64VarP(&opsRate, "rate", "r", 0, "workload operations per second")
	rootCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run the workload without the dashboard")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "write the final YAML report to this path")

	// Config bindings
	_ = viper.BindPFlag("strategy", rootCmd.Flags().Lookup("strategy"))
	_ = viper.BindPFlag("workload.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("report", rootCmd.Flags().Lookup("report"))

	viper.SetDefault("strategy", "write-through")
	viper.SetDefault("workload.rate", 50.0)
	viper.SetDefault("workload.keys", 200)
	viper.SetDefault("workload.ttl", 2*time.Minute)
	viper.SetDefault("monitor.waveform", 60)
	viper.SetDefault("monitor.fps", 30)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "cascade")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "cascade")}, dirs...)
	}

	if c := os.Getenv("CASCADE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("cascade")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("cascade")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "cascade.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
