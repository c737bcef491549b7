package ui

// Config contains dashboard-specific configuration.
type Config struct {
	FPS      int  `env:"CASCADE_FPS"       envDefault:"30"`
	ShowKeys bool `env:"CASCADE_SHOW_KEYS" envDefault:"true"`

	// Set by the caller, not the environment
	Strategy string
	Rate     float64
}
