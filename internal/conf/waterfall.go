package conf

import "fmt"

// Waterfall configures the Spectrum pipeline variant's FFT/integration
// stage (spec §4.4). Presence of this section selects
// supervisor.VariantSpectrum.
type Waterfall struct {
	Nch    int `yaml:"nch"`
	Nint   int `yaml:"nint"`
	Nbatch int `yaml:"nbatch"`
}

func (w *Waterfall) setDefaults() {
	if w.Nch == 0 {
		w.Nch = 1024
	}
	if w.Nint == 0 {
		w.Nint = 100
	}
	if w.Nbatch == 0 {
		w.Nbatch = w.Nint
	}
}

func (w *Waterfall) validate() []error {
	var errs []error
	if w.Nch <= 0 {
		errs = append(errs, fmt.Errorf("waterfall.nch must be > 0"))
	}
	if w.Nint <= 0 {
		errs = append(errs, fmt.Errorf("waterfall.nint must be > 0"))
	}
	if w.Nbatch <= 0 || w.Nbatch > w.Nint {
		errs = append(errs, fmt.Errorf("waterfall.nbatch must be in (0, nint]"))
	}
	return errs
}
