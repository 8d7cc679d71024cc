package waterfall

import (
	"context"
	"time"

	"sdrhost/internal/dsp"
	"sdrhost/internal/flog"
	"sdrhost/internal/metrics"
	"sdrhost/internal/pool"
	"sdrhost/internal/receiver"
)

// Cmd is the Waterfall command-channel message union. Unlike the DDC,
// the Waterfall has no runtime-mutable knob beyond teardown (spec §4.4
// names no equivalent of lo_ch), so Cmd carries only Destroy.
type Cmd struct {
	Destroy bool
}

// DestroyCmd builds the Waterfall's one-shot terminal command.
func DestroyCmd() Cmd { return Cmd{Destroy: true} }

const recvTimeout = 1 * time.Second

// Stage wires an Engine into the pipeline: drains Payload handles,
// emits SpectrumBuffer handles, forwards Destroy upstream to the
// Receiver on exit (spec §9).
type Stage struct {
	engine       *Engine
	specPool     *pool.Pool[dsp.SpectrumBuffer]
	upstreamCmds chan<- receiver.Cmd
}

// NewStage builds a Waterfall Stage.
func NewStage(engine *Engine, upstreamCmds chan<- receiver.Cmd) *Stage {
	return &Stage{
		engine: engine,
		specPool: pool.New("spectrumbuffer",
			func() *dsp.SpectrumBuffer { return dsp.NewSpectrumBuffer(engine.nch) },
			dsp.ResetSpectrumBuffer,
		),
		upstreamCmds: upstreamCmds,
	}
}

// Pool exposes the SpectrumBuffer pool so a supervisor can report leaks
// at teardown.
func (s *Stage) Pool() *pool.Pool[dsp.SpectrumBuffer] { return s.specPool }

// Run drains in until ctx is canceled, Destroy arrives on cmds, or in is
// closed, emitting SpectrumBuffer handles on out.
func (s *Stage) Run(ctx context.Context, in <-chan *receiver.Handle, out chan<- *pool.Handle[dsp.SpectrumBuffer], cmds <-chan Cmd) {
	defer flog.Debugf("waterfall: stopped")
	defer s.forwardDestroy()

	timer := time.NewTimer(recvTimeout)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(recvTimeout)

		select {
		case <-ctx.Done():
			return
		case cmd := <-cmds:
			if cmd.Destroy {
				return
			}
		case h, ok := <-in:
			if !ok {
				return
			}
			s.process(out, h)
		case <-timer.C:
		}
	}
}

func (s *Stage) forwardDestroy() {
	select {
	case s.upstreamCmds <- receiver.CmdDestroy:
	default:
	}
}

func (s *Stage) process(out chan<- *pool.Handle[dsp.SpectrumBuffer], h *receiver.Handle) {
	defer h.Release()

	for _, em := range s.engine.Feed(h.Value.Data[:]) {
		buf := s.specPool.Acquire()
		buf.Value.Power = append(buf.Value.Power[:0], em.Power...)

		select {
		case out <- buf:
		default:
			flog.Warnf("waterfall: channel full, discarding")
			metrics.DSPOutputDiscarded.WithLabelValues("waterfall").Inc()
			buf.Release()
		}
	}
}
