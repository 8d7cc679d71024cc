package conf

import (
	"fmt"
	"net"
)

// Digitizer names the remote digitizer's control/payload endpoints
// (spec §3/§6). CtrlAddr/LocalCtrlAddr/PayloadAddr hold the resolved
// form once validate has run.
type Digitizer struct {
	CtrlAddr_      string     `yaml:"ctrl_addr"`
	LocalCtrlAddr_ string     `yaml:"local_ctrl_addr"`
	PayloadAddr_   string     `yaml:"payload_addr"`
	Multicast      *Multicast `yaml:"multicast"`

	CtrlAddr      *net.UDPAddr `yaml:"-"`
	LocalCtrlAddr *net.UDPAddr `yaml:"-"`
	PayloadAddr   *net.UDPAddr `yaml:"-"`
}

// Multicast configures the Receiver's IGMP join (spec §6: "when given a
// group address, the Receiver joins the IGMP group on the specified
// interface at construction and leaves it on drop").
type Multicast struct {
	Group_    string `yaml:"group"`
	Interface string `yaml:"interface"`
	Group     net.IP `yaml:"-"`
}

func (d *Digitizer) setDefaults() {
	if d.LocalCtrlAddr_ == "" {
		d.LocalCtrlAddr_ = "0.0.0.0:3001"
	}
}

func (d *Digitizer) validate() []error {
	var errs []error

	if d.CtrlAddr_ == "" {
		errs = append(errs, fmt.Errorf("digitizer.ctrl_addr is required"))
	} else if a, err := net.ResolveUDPAddr("udp", d.CtrlAddr_); err != nil {
		errs = append(errs, fmt.Errorf("digitizer.ctrl_addr: %w", err))
	} else {
		d.CtrlAddr = a
	}

	if a, err := net.ResolveUDPAddr("udp", d.LocalCtrlAddr_); err != nil {
		errs = append(errs, fmt.Errorf("digitizer.local_ctrl_addr: %w", err))
	} else {
		d.LocalCtrlAddr = a
	}

	if d.PayloadAddr_ == "" {
		errs = append(errs, fmt.Errorf("digitizer.payload_addr is required"))
	} else if a, err := net.ResolveUDPAddr("udp", d.PayloadAddr_); err != nil {
		errs = append(errs, fmt.Errorf("digitizer.payload_addr: %w", err))
	} else {
		d.PayloadAddr = a
	}

	if d.Multicast != nil {
		errs = append(errs, d.Multicast.validate()...)
	}

	return errs
}

func (m *Multicast) validate() []error {
	var errs []error
	ip := net.ParseIP(m.Group_)
	if ip == nil || !ip.IsMulticast() {
		errs = append(errs, fmt.Errorf("digitizer.multicast.group %q is not a multicast address", m.Group_))
	} else {
		m.Group = ip
	}
	if m.Interface == "" {
		errs = append(errs, fmt.Errorf("digitizer.multicast.interface is required when multicast is configured"))
	}
	return errs
}
