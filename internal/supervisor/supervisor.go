// Package supervisor builds the pipeline and exposes its public
// operations (spec §4.6): construct the Receiver plus an optional DSP
// stage, wire the Controller, and on Close stop the digitizer stream and
// tear the worker goroutines down.
//
// Grounded on original_source/src/sdr.rs's Sdr::new/Drop for the overall
// shape (own a Controller, own worker threads, join unconditionally on
// teardown) and the teacher's internal/client.Client for the Go
// idiom of a constructor that starts goroutines plus context-driven
// shutdown (paqet/internal/client/client.go's Start/ctx.Done pattern).
package supervisor

import (
	"context"
	"net"
	"sync"

	"sdrhost/internal/ctrl"
	"sdrhost/internal/dsp"
	"sdrhost/internal/dsp/ddc"
	"sdrhost/internal/dsp/waterfall"
	"sdrhost/internal/flog"
	"sdrhost/internal/pool"
	"sdrhost/internal/receiver"
)

// Variant names the two pipeline shapes spec §4.6 describes.
type Variant int

const (
	// VariantRaw has no DSP stage: the Receiver's output is the public
	// output.
	VariantRaw Variant = iota
	// VariantIQ wires Receiver -> DDC.
	VariantIQ
	// VariantSpectrum wires Receiver -> Waterfall. Spec §4.6 names only
	// Raw and IQ explicitly; this variant reuses the same Receiver,
	// Controller, and teardown discipline for the Waterfall stage the
	// way IQ does for the DDC, since nothing about the discipline is
	// DDC-specific.
	VariantSpectrum
)

// Supervisor owns one digitizer's full pipeline: the Controller, the
// Receiver, and (for VariantIQ/VariantSpectrum) one DSP stage. It is the
// only component callers interact with.
type Supervisor struct {
	variant Variant
	ctrl    *ctrl.Client

	recv     *receiver.Receiver
	recvCmds chan receiver.Cmd
	recvOut  chan *receiver.Handle

	ddcStage *ddc.Stage
	ddcCmds  chan ddc.Cmd
	ddcOut   chan *pool.Handle[dsp.IQBuffer]

	wfStage *waterfall.Stage
	wfCmds  chan waterfall.Cmd
	wfOut   chan *pool.Handle[dsp.SpectrumBuffer]

	wg     sync.WaitGroup
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewRaw builds a Raw supervisor: Receiver output is consumed directly,
// with no DSP stage in between.
func NewRaw(ctrlClient *ctrl.Client, payloadConn *net.UDPConn) *Supervisor {
	s := &Supervisor{
		variant:  VariantRaw,
		ctrl:     ctrlClient,
		recv:     receiver.New(payloadConn),
		recvCmds: make(chan receiver.Cmd, 4),
		recvOut:  make(chan *receiver.Handle, receiver.DefaultQueueCapacity),
	}
	return s
}

// NewIQ builds an IQ supervisor: Receiver -> DDC.
func NewIQ(ctrlClient *ctrl.Client, payloadConn *net.UDPConn, engine *ddc.Engine) *Supervisor {
	s := &Supervisor{
		variant:  VariantIQ,
		ctrl:     ctrlClient,
		recv:     receiver.New(payloadConn),
		recvCmds: make(chan receiver.Cmd, 4),
		recvOut:  make(chan *receiver.Handle, receiver.DefaultQueueCapacity),
		ddcCmds:  make(chan ddc.Cmd, 32),
		ddcOut:   make(chan *pool.Handle[dsp.IQBuffer], 8192),
	}
	s.ddcStage = ddc.NewStage(engine, s.recvCmds)
	return s
}

// NewSpectrum builds a Spectrum supervisor: Receiver -> Waterfall.
func NewSpectrum(ctrlClient *ctrl.Client, payloadConn *net.UDPConn, engine *waterfall.Engine) *Supervisor {
	s := &Supervisor{
		variant:  VariantSpectrum,
		ctrl:     ctrlClient,
		recv:     receiver.New(payloadConn),
		recvCmds: make(chan receiver.Cmd, 4),
		recvOut:  make(chan *receiver.Handle, receiver.DefaultQueueCapacity),
		wfCmds:   make(chan waterfall.Cmd, 4),
		wfOut:    make(chan *pool.Handle[dsp.SpectrumBuffer], 4096),
	}
	s.wfStage = waterfall.NewStage(engine, s.recvCmds)
	return s
}

// Start sends an initial StreamStop (original_source/src/sdr.rs's
// Sdr::new does this unconditionally before standing up the pipeline,
// to guarantee the digitizer isn't already streaming into a socket
// nobody is draining yet) and launches the pipeline's worker goroutines.
func (s *Supervisor) Start(ctx context.Context) {
	s.ctrl.StreamStop()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runStage("receiver", func() {
		defer s.wg.Done()
		s.recv.Run(ctx, s.recvOut, s.recvCmds)
	})

	switch s.variant {
	case VariantIQ:
		s.wg.Add(1)
		go s.runStage("ddc", func() {
			defer s.wg.Done()
			s.ddcStage.Run(ctx, s.recvOut, s.ddcOut, s.ddcCmds)
		})
	case VariantSpectrum:
		s.wg.Add(1)
		go s.runStage("waterfall", func() {
			defer s.wg.Done()
			s.wfStage.Run(ctx, s.recvOut, s.wfOut, s.wfCmds)
		})
	}
}

// runStage contains a worker goroutine's panics so they cannot escape
// the supervisor (spec §4.6: "panics in worker threads are logged but
// do not propagate past the supervisor").
func (s *Supervisor) runStage(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			flog.Errorf("supervisor: %s stage panicked: %v", name, r)
		}
	}()
	fn()
}

// RawOut exposes the Receiver's output directly; valid for VariantRaw.
func (s *Supervisor) RawOut() <-chan *receiver.Handle { return s.recvOut }

// IQOut exposes the DDC's output; valid for VariantIQ.
func (s *Supervisor) IQOut() <-chan *pool.Handle[dsp.IQBuffer] { return s.ddcOut }

// SpectrumOut exposes the Waterfall's output; valid for VariantSpectrum.
func (s *Supervisor) SpectrumOut() <-chan *pool.Handle[dsp.SpectrumBuffer] { return s.wfOut }

// SetLO hot-swaps the DDC's LO channel (spec §4.3 Hot LO update); valid
// for VariantIQ.
func (s *Supervisor) SetLO(ch int) {
	select {
	case s.ddcCmds <- ddc.SetLOCmd(ch):
	default:
		flog.Warnf("supervisor: ddc command channel full, dropping LoCh update")
	}
}

// Wakeup, Query, Init, Sync, StreamStart, StreamStop, WaitUntilLocked
// delegate to the Controller (spec §4.5 derived operations, §4.6
// "expose public operations").
func (s *Supervisor) Wakeup() ctrl.ReplySummary             { return s.ctrl.Wakeup() }
func (s *Supervisor) Query() ctrl.ReplySummary              { return s.ctrl.Query() }
func (s *Supervisor) Init() ctrl.ReplySummary               { return s.ctrl.Init() }
func (s *Supervisor) Sync() ctrl.ReplySummary               { return s.ctrl.Sync() }
func (s *Supervisor) StreamStart() ctrl.ReplySummary        { return s.ctrl.StreamStart() }
func (s *Supervisor) StreamStop() ctrl.ReplySummary         { return s.ctrl.StreamStop() }
func (s *Supervisor) WaitUntilLocked(timeoutSec int) bool   { return s.ctrl.WaitUntilLocked(timeoutSec) }

// Close issues StreamStop, then sends Destroy to the DSP stage (for
// VariantRaw there is no DSP stage, so the Receiver is signaled directly —
// the "supervisor must not send Destroy to the Receiver directly" rule in
// spec §9 applies only when a DSP stage exists to do it instead). It then
// cancels the pipeline context and waits for all worker goroutines
// together. The DSP stage forwards Destroy upstream on exit, but the
// Receiver also stops on the canceled context, so the DSP stage is not
// joined before the Receiver: the two may finish in either order.
// Idempotent.
func (s *Supervisor) Close() {
	s.closeOnce.Do(func() {
		s.ctrl.StreamStop()

		switch s.variant {
		case VariantIQ:
			select {
			case s.ddcCmds <- ddc.DestroyCmd():
			default:
			}
		case VariantSpectrum:
			select {
			case s.wfCmds <- waterfall.DestroyCmd():
			default:
			}
		case VariantRaw:
			select {
			case s.recvCmds <- receiver.CmdDestroy:
			default:
			}
		}

		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.ctrl.Close()
	})
}

// Outstanding reports the Receiver's (and, for IQ/Spectrum, the DSP
// stage's) pool outstanding-handle counts, for the "final pool
// outstanding count equals zero" teardown invariant (spec §8).
func (s *Supervisor) Outstanding() map[string]int64 {
	out := map[string]int64{"payload": s.recv.Pool().Outstanding()}
	switch s.variant {
	case VariantIQ:
		out["iqbuffer"] = s.ddcStage.Pool().Outstanding()
	case VariantSpectrum:
		out["spectrumbuffer"] = s.wfStage.Pool().Outstanding()
	}
	return out
}
