// Package conf loads and validates the daemon's YAML configuration,
// grounded on the teacher's internal/conf.Conf: a flat struct of
// yaml-tagged sub-configs, a LoadFromFile that unmarshals then calls
// setDefaults/validate on each section, and an aggregated multi-error
// report via writeErr (teacher's internal/conf/conf.go). The teacher's
// own sections (SOCKS5, Forward, TUN, Network, Transport, PCAP backend
// selection, per-packet block ciphers) are tunnel/VPN concerns with no
// home in this domain and are not carried — see DESIGN.md for the
// per-section disposition.
package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Conf is the daemon's top-level configuration. At most one of DDC or
// Waterfall may be set — neither set means a Raw pipeline (spec §4.6
// VariantRaw), since the supervisor variant is a direct consequence of
// which DSP stage, if any, is configured.
type Conf struct {
	Log       Log        `yaml:"log"`
	Digitizer Digitizer  `yaml:"digitizer"`
	DDC       *DDC       `yaml:"ddc"`
	Waterfall *Waterfall `yaml:"waterfall"`
	Telemetry *Telemetry `yaml:"telemetry"`
	Capture   *Capture   `yaml:"capture"`
	Metrics   Metrics    `yaml:"metrics"`
}

// LoadFromFile reads, unmarshals, defaults, and validates a Conf.
func LoadFromFile(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conf: read %s: %w", path, err)
	}

	var c Conf
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("conf: parse %s: %w", path, err)
	}

	if c.DDC != nil && c.Waterfall != nil {
		return nil, fmt.Errorf("conf: ddc and waterfall are mutually exclusive (pick one pipeline variant)")
	}

	c.setDefaults()
	if err := c.validate(); err != nil {
		return &c, err
	}
	return &c, nil
}

func (c *Conf) setDefaults() {
	c.Log.setDefaults()
	c.Digitizer.setDefaults()
	if c.DDC != nil {
		c.DDC.setDefaults()
	}
	if c.Waterfall != nil {
		c.Waterfall.setDefaults()
	}
	if c.Telemetry != nil {
		c.Telemetry.setDefaults()
	}
	if c.Capture != nil {
		c.Capture.setDefaults()
	}
	c.Metrics.setDefaults()
}

func (c *Conf) validate() error {
	var allErrors []error
	allErrors = append(allErrors, c.Log.validate()...)
	allErrors = append(allErrors, c.Digitizer.validate()...)
	if c.DDC != nil {
		allErrors = append(allErrors, c.DDC.validate()...)
	}
	if c.Waterfall != nil {
		allErrors = append(allErrors, c.Waterfall.validate()...)
	}
	if c.Telemetry != nil {
		allErrors = append(allErrors, c.Telemetry.validate()...)
	}
	if c.Capture != nil {
		allErrors = append(allErrors, c.Capture.validate()...)
	}
	allErrors = append(allErrors, c.Metrics.validate()...)
	return writeErr(allErrors)
}

// writeErr aggregates a section's validation errors into one reported
// error, the teacher's multi-error-report idiom (internal/conf/conf.go).
func writeErr(allErrors []error) error {
	if len(allErrors) == 0 {
		return nil
	}
	messages := make([]string, len(allErrors))
	for i, err := range allErrors {
		messages[i] = err.Error()
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(messages, "\n  - "))
}
