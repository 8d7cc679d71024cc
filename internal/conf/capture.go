package conf

import (
	"fmt"
	"slices"
)

// Capture configures internal/capture's disk-dump path
// (cmd/sdrdump). Mode picks between the two rotation policies the
// original's capture binaries used: a perpetual numbered sequence
// ("rolling", capture_pipeline.rs's full_dump_name) or a periodic
// single-shot snapshot ("windowed", its outname/npkt_per_dump). The
// range checks below follow the shape of the teacher's PCAP.validate
// (internal/conf/pcap.go), adapted to frame counts instead of socket
// buffer bytes.
type Capture struct {
	Mode_         string `yaml:"mode"`
	Prefix        string `yaml:"prefix"`
	Path          string `yaml:"path"`
	FramesPerFile int    `yaml:"frames_per_file"`
}

var validCaptureModes = []string{"rolling", "windowed"}

func (c *Capture) setDefaults() {
	if c.Mode_ == "" {
		c.Mode_ = "rolling"
	}
	if c.FramesPerFile == 0 {
		c.FramesPerFile = 1_000_000
	}
}

func (c *Capture) validate() []error {
	var errs []error
	if !slices.Contains(validCaptureModes, c.Mode_) {
		errs = append(errs, fmt.Errorf("capture.mode must be one of %v", validCaptureModes))
	}
	if c.Mode_ == "rolling" && c.Prefix == "" {
		errs = append(errs, fmt.Errorf("capture.prefix is required in rolling mode"))
	}
	if c.Mode_ == "windowed" && c.Path == "" {
		errs = append(errs, fmt.Errorf("capture.path is required in windowed mode"))
	}
	if c.FramesPerFile <= 0 {
		errs = append(errs, fmt.Errorf("capture.frames_per_file must be > 0"))
	}
	return errs
}
