package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConf(t *testing.T, yamlText string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sdrd.yaml")
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatalf("write temp conf: %v", err)
	}
	return path
}

func TestLoadFromFileRawVariantDefaults(t *testing.T) {
	path := writeTempConf(t, `
digitizer:
  ctrl_addr: "10.0.0.5:3000"
  payload_addr: "0.0.0.0:4000"
`)
	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.DDC != nil || c.Waterfall != nil {
		t.Fatalf("expected a Raw variant (no DDC/Waterfall section)")
	}
	if c.Digitizer.LocalCtrlAddr_ != "0.0.0.0:3001" {
		t.Fatalf("local_ctrl_addr default = %q, want 0.0.0.0:3001", c.Digitizer.LocalCtrlAddr_)
	}
	if c.Digitizer.CtrlAddr == nil || c.Digitizer.PayloadAddr == nil {
		t.Fatalf("expected resolved UDP addrs after validate")
	}
	if c.Log.Level != "info" {
		t.Fatalf("log.level default = %q, want info", c.Log.Level)
	}
}

func TestLoadFromFileDDCSectionDefaults(t *testing.T) {
	path := writeTempConf(t, `
digitizer:
  ctrl_addr: "10.0.0.5:3000"
  payload_addr: "0.0.0.0:4000"
ddc:
  lo_ch: 100
`)
	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.DDC == nil {
		t.Fatalf("expected DDC section to be present")
	}
	if c.DDC.Ndec != 8 || c.DDC.Ntap != 24 || c.DDC.BatchM != 1 {
		t.Fatalf("unexpected DDC defaults: %+v", c.DDC)
	}
	if c.DDC.LoCh != 100 {
		t.Fatalf("lo_ch = %d, want 100", c.DDC.LoCh)
	}
}

func TestLoadFromFileRejectsBothDDCAndWaterfall(t *testing.T) {
	path := writeTempConf(t, `
digitizer:
  ctrl_addr: "10.0.0.5:3000"
  payload_addr: "0.0.0.0:4000"
ddc: {}
waterfall: {}
`)
	if _, err := LoadFromFile(path); err == nil {
		t.Fatalf("expected an error for mutually exclusive ddc/waterfall")
	}
}

func TestLoadFromFileRequiresDigitizerAddrs(t *testing.T) {
	path := writeTempConf(t, `
log:
  level: debug
`)
	if _, err := LoadFromFile(path); err == nil {
		t.Fatalf("expected an error for missing digitizer addresses")
	}
}

func TestLoadFromFileRejectsInvalidLogLevel(t *testing.T) {
	path := writeTempConf(t, `
digitizer:
  ctrl_addr: "10.0.0.5:3000"
  payload_addr: "0.0.0.0:4000"
log:
  level: verbose
`)
	if _, err := LoadFromFile(path); err == nil {
		t.Fatalf("expected an error for invalid log level")
	}
}

func TestWaterfallNbatchMustNotExceedNint(t *testing.T) {
	w := &Waterfall{Nch: 64, Nint: 4, Nbatch: 10}
	errs := w.validate()
	if len(errs) == 0 {
		t.Fatalf("expected a validation error for nbatch > nint")
	}
}
