package conf

import "fmt"

// DDC configures the IQ pipeline variant's digital down-converter
// (spec §4.3). Presence of this section (as opposed to Waterfall, or
// neither) selects supervisor.VariantIQ.
type DDC struct {
	Ndec    int     `yaml:"ndec"`
	Ntap    int     `yaml:"ntap"`
	Fcutoff float64 `yaml:"fcutoff"`
	Beta    float64 `yaml:"beta"`
	BatchM  int     `yaml:"batch_m"`
	LoCh    int     `yaml:"lo_ch"`
}

func (d *DDC) setDefaults() {
	if d.Ndec == 0 {
		d.Ndec = 8
	}
	if d.Ntap == 0 {
		d.Ntap = 24
	}
	if d.Fcutoff == 0 {
		d.Fcutoff = 0.5 / float64(d.Ndec)
	}
	if d.Beta == 0 {
		d.Beta = 5.0
	}
	if d.BatchM == 0 {
		d.BatchM = 1
	}
}

func (d *DDC) validate() []error {
	var errs []error
	if d.Ndec <= 0 {
		errs = append(errs, fmt.Errorf("ddc.ndec must be > 0"))
	}
	if d.Ntap <= 0 {
		errs = append(errs, fmt.Errorf("ddc.ntap must be > 0"))
	}
	if d.Fcutoff <= 0 || d.Fcutoff >= 0.5 {
		errs = append(errs, fmt.Errorf("ddc.fcutoff must be in (0, 0.5) cycles/sample"))
	}
	if d.BatchM <= 0 {
		errs = append(errs, fmt.Errorf("ddc.batch_m must be > 0"))
	}
	return errs
}
