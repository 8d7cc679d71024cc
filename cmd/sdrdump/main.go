// Command sdrdump runs one pipeline variant and dumps its output frames
// to a pcap file, the Go-native replacement for the original's
// capture_pipeline/capture_ddc/capture_waterfall binaries (see
// SUPPLEMENTED FEATURES).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sdrhost/internal/capture"
	"sdrhost/internal/conf"
	"sdrhost/internal/ctrl"
	"sdrhost/internal/dsp/ddc"
	"sdrhost/internal/dsp/waterfall"
	"sdrhost/internal/fir"
	"sdrhost/internal/flog"
	"sdrhost/internal/payload"
	"sdrhost/internal/receiver"
	"sdrhost/internal/supervisor"
)

func main() {
	var configPath string
	root := &cobra.Command{
		Use:   "sdrdump",
		Short: "Captures pipeline output frames to a pcap file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "sdrdump.yaml", "path to the YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	c, err := conf.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("sdrdump: %w", err)
	}
	if c.Capture == nil {
		return fmt.Errorf("sdrdump: config has no capture section")
	}

	ctrlClient, err := ctrl.NewClient(c.Digitizer.LocalCtrlAddr, []*net.UDPAddr{c.Digitizer.CtrlAddr})
	if err != nil {
		return fmt.Errorf("sdrdump: ctrl client: %w", err)
	}
	payloadConn, err := listenPayload(c)
	if err != nil {
		ctrlClient.Close()
		return fmt.Errorf("sdrdump: payload socket: %w", err)
	}

	var sup *supervisor.Supervisor
	switch {
	case c.DDC != nil:
		coeffs := fir.DesignLowpass(c.DDC.Ntap, c.DDC.Fcutoff, c.DDC.Beta)
		engine := ddc.NewEngine(c.DDC.Ndec, c.DDC.Ntap, coeffs, c.DDC.BatchM, payload.NPtPerFrame)
		engine.SetLO(c.DDC.LoCh)
		sup = supervisor.NewIQ(ctrlClient, payloadConn, engine)
	case c.Waterfall != nil:
		engine := waterfall.NewEngine(c.Waterfall.Nch, c.Waterfall.Nint, c.Waterfall.Nbatch, payload.NPtPerFrame)
		sup = supervisor.NewSpectrum(ctrlClient, payloadConn, engine)
	default:
		sup = supervisor.NewRaw(ctrlClient, payloadConn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup.Start(ctx)
	defer sup.Close()

	return dumpLoop(ctx, sup, c)
}

// listenPayload binds the digitizer payload socket via receiver.Listen,
// which joins the configured IGMP group (if any) on the named interface
// and leaves it automatically on Close (spec §6).
func listenPayload(c *conf.Conf) (*net.UDPConn, error) {
	mc := c.Digitizer.Multicast
	if mc == nil {
		return receiver.Listen(c.Digitizer.PayloadAddr, nil, nil)
	}
	iface, err := net.InterfaceByName(mc.Interface)
	if err != nil {
		return nil, fmt.Errorf("multicast interface %s: %w", mc.Interface, err)
	}
	return receiver.Listen(c.Digitizer.PayloadAddr, mc.Group, iface)
}

// dumpLoop drains whichever output channel the configured variant
// produces and writes it through a rolling or windowed dump, matching
// the original capture_*.rs binaries' single-consumer-loop shape.
func dumpLoop(ctx context.Context, sup *supervisor.Supervisor, c *conf.Conf) error {
	rolling := c.Capture.Mode_ == "rolling"

	var roll *capture.RollingDump
	var win *capture.WindowedDump
	var err error
	if rolling {
		roll, err = capture.NewRollingDump("sdrdump", c.Capture.Prefix, c.Capture.FramesPerFile)
		if err != nil {
			return fmt.Errorf("sdrdump: %w", err)
		}
		defer roll.Close()
	} else {
		win = capture.NewWindowedDump("sdrdump", c.Capture.Path, c.Capture.FramesPerFile)
		defer win.Close()
		if err := win.Trigger(); err != nil {
			return fmt.Errorf("sdrdump: %w", err)
		}
	}

	write := func(data []byte) {
		var err error
		if rolling {
			err = roll.Write(data)
		} else {
			err = win.Write(data)
		}
		if err != nil {
			flog.Warnf("sdrdump: write frame: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case h, ok := <-sup.RawOut():
			if !ok {
				return nil
			}
			frame, err := capture.PayloadFrame(h.Value)
			h.Release()
			if err != nil {
				flog.Warnf("sdrdump: encode payload: %v", err)
				continue
			}
			write(frame)
		case h, ok := <-sup.IQOut():
			if !ok {
				return nil
			}
			write(capture.IQFrame(h.Value))
			h.Release()
		case h, ok := <-sup.SpectrumOut():
			if !ok {
				return nil
			}
			write(capture.SpectrumFrame(h.Value))
			h.Release()
		}
	}
}
