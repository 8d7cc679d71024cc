// Command sdrd runs the digitizer host pipeline: it loads a YAML config
// (spec §2 ambient config, grounded on the teacher's cobra-rooted
// command entrypoint idiom — internal/commands.go registers subcommands
// on a root *cobra.Command; sdrd follows the same shape with a single
// root command plus flags instead of subcommands), builds the
// supervisor variant the config selects, and runs until signaled.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sdrhost/internal/conf"
	"sdrhost/internal/ctrl"
	"sdrhost/internal/dsp/ddc"
	"sdrhost/internal/dsp/waterfall"
	"sdrhost/internal/fir"
	"sdrhost/internal/flog"
	"sdrhost/internal/metrics"
	"sdrhost/internal/payload"
	"sdrhost/internal/receiver"
	"sdrhost/internal/supervisor"
	"sdrhost/internal/telemetry"
)

var logLevels = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "sdrd",
		Short: "Runs the SDR host digitizer pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "sdrd.yaml", "path to the YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	c, err := conf.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("sdrd: %w", err)
	}
	if lvl, ok := logLevels[c.Log.Level]; ok {
		flog.SetLevel(lvl)
	}

	ctrlClient, err := ctrl.NewClient(c.Digitizer.LocalCtrlAddr, []*net.UDPAddr{c.Digitizer.CtrlAddr})
	if err != nil {
		return fmt.Errorf("sdrd: ctrl client: %w", err)
	}

	payloadConn, err := listenPayload(c)
	if err != nil {
		ctrlClient.Close()
		return fmt.Errorf("sdrd: payload socket: %w", err)
	}

	sup, err := buildSupervisor(c, ctrlClient, payloadConn)
	if err != nil {
		ctrlClient.Close()
		payloadConn.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup.Start(ctx)
	defer sup.Close()

	if c.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(c.Metrics.Addr); err != nil {
				flog.Errorf("sdrd: metrics listener stopped: %v", err)
			}
		}()
	}

	var exporter *telemetry.Exporter
	if c.Telemetry != nil {
		stream, err := telemetry.Dial(telemetry.Protocol(c.Telemetry.Protocol_), c.Telemetry.Addr)
		if err != nil {
			flog.Warnf("sdrd: telemetry dial failed, continuing without export: %v", err)
		} else {
			exporter = telemetry.NewExporter(stream)
			defer exporter.Close()
		}
	}

	drainOutput(ctx, sup, exporter)
	return nil
}

func drainOutput(ctx context.Context, sup *supervisor.Supervisor, exporter *telemetry.Exporter) {
	for {
		select {
		case <-ctx.Done():
			return
		case h, ok := <-sup.IQOut():
			if !ok {
				return
			}
			if exporter != nil {
				if err := exporter.SendIQ(h.Value); err != nil {
					flog.Warnf("sdrd: telemetry export failed: %v", err)
				}
			}
			h.Release()
		case h, ok := <-sup.SpectrumOut():
			if !ok {
				return
			}
			if exporter != nil {
				if err := exporter.SendSpectrum(h.Value); err != nil {
					flog.Warnf("sdrd: telemetry export failed: %v", err)
				}
			}
			h.Release()
		case h, ok := <-sup.RawOut():
			if !ok {
				return
			}
			h.Release()
		}
	}
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

func buildSupervisor(c *conf.Conf, ctrlClient *ctrl.Client, payloadConn *net.UDPConn) (*supervisor.Supervisor, error) {
	switch {
	case c.DDC != nil:
		coeffs := fir.DesignLowpass(c.DDC.Ntap, c.DDC.Fcutoff, c.DDC.Beta)
		engine := ddc.NewEngine(c.DDC.Ndec, c.DDC.Ntap, coeffs, c.DDC.BatchM, payload.NPtPerFrame)
		engine.SetLO(c.DDC.LoCh)
		return supervisor.NewIQ(ctrlClient, payloadConn, engine), nil
	case c.Waterfall != nil:
		engine := waterfall.NewEngine(c.Waterfall.Nch, c.Waterfall.Nint, c.Waterfall.Nbatch, payload.NPtPerFrame)
		return supervisor.NewSpectrum(ctrlClient, payloadConn, engine), nil
	default:
		return supervisor.NewRaw(ctrlClient, payloadConn), nil
	}
}
