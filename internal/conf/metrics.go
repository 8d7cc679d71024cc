package conf

// Metrics configures internal/metrics.Serve's debug listener.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func (m *Metrics) setDefaults() {
	if m.Addr == "" {
		m.Addr = ":9090"
	}
}

func (m *Metrics) validate() []error { return nil }
