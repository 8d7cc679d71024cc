package conf

import (
	"fmt"
	"slices"
)

// Telemetry configures the optional monitor export path
// (internal/telemetry): which transport to dial and where.
type Telemetry struct {
	Protocol_ string `yaml:"protocol"`
	Addr      string `yaml:"addr"`
}

// ValidTelemetryProtocols lists the transports internal/telemetry.Dial
// supports.
var ValidTelemetryProtocols = []string{"kcp", "quic", "udp"}

func (t *Telemetry) setDefaults() {
	if t.Protocol_ == "" {
		t.Protocol_ = "udp"
	}
}

func (t *Telemetry) validate() []error {
	var errs []error
	if !slices.Contains(ValidTelemetryProtocols, t.Protocol_) {
		errs = append(errs, fmt.Errorf("telemetry.protocol must be one of %v", ValidTelemetryProtocols))
	}
	if t.Addr == "" {
		errs = append(errs, fmt.Errorf("telemetry.addr is required when telemetry is configured"))
	}
	return errs
}
