package ddc

import (
	"context"
	"time"

	"sdrhost/internal/dsp"
	"sdrhost/internal/flog"
	"sdrhost/internal/metrics"
	"sdrhost/internal/pool"
	"sdrhost/internal/receiver"
)

// Cmd is the DDC command-channel message union (spec §4.3 Configuration),
// grounded on original_source/src/sdr.rs's `DdcCmd::LoCh(k)` send site and
// the Destroy variant the same enum carries.
type Cmd struct {
	SetLO bool
	LoCh  int

	Destroy bool
}

// SetLOCmd builds a command that hot-swaps the LO channel.
func SetLOCmd(ch int) Cmd { return Cmd{SetLO: true, LoCh: ch} }

// DestroyCmd builds the one-shot terminal command (spec §4.3: "DdcCmd::Destroy
// terminates the stage, then propagates Destroy upstream to the Receiver").
func DestroyCmd() Cmd { return Cmd{Destroy: true} }

// recvTimeout is the DSP stage's command-poll interval when idle (spec
// §4.3 Failure: "On recv_timeout of 1 s with no Payload, continue the
// command-poll loop").
const recvTimeout = 1 * time.Second

// Stage wires an Engine into the pipeline: it drains Payload handles,
// emits batched IQBuffer handles, and answers LoCh/Destroy commands.
// Grounded on original_source/src/pipeline.rs's pkt_ddc: a non-blocking
// lo_ch update applied per iteration and the "channel full, discarding"
// failure policy on a saturated outbound channel.
type Stage struct {
	engine       *Engine
	iqPool       *pool.Pool[dsp.IQBuffer]
	upstreamCmds chan<- receiver.Cmd
}

// NewStage builds a DDC Stage. upstreamCmds is the Receiver's command
// channel; Destroy is forwarded to it unconditionally on exit (spec §9:
// "the DSP stage is the only actor authorized to forward Destroy
// upstream").
func NewStage(engine *Engine, upstreamCmds chan<- receiver.Cmd) *Stage {
	return &Stage{
		engine: engine,
		iqPool: pool.New("iqbuffer",
			func() *dsp.IQBuffer { return dsp.NewIQBuffer(engine.NOutPerFrame()) },
			dsp.ResetIQBuffer,
		),
		upstreamCmds: upstreamCmds,
	}
}

// Pool exposes the IQBuffer pool so a supervisor can report leaks at
// teardown.
func (s *Stage) Pool() *pool.Pool[dsp.IQBuffer] { return s.iqPool }

// Run drains in until ctx is canceled, Destroy arrives on cmds, or in is
// closed, emitting batched IQBuffer handles on out. On exit it forwards
// Destroy to the Receiver exactly once (spec §4.6 teardown ordering).
func (s *Stage) Run(ctx context.Context, in <-chan *receiver.Handle, out chan<- *pool.Handle[dsp.IQBuffer], cmds <-chan Cmd) {
	defer flog.Debugf("ddc: stopped")
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
			if cmd.SetLO {
				s.engine.SetLO(cmd.LoCh)
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

func (s *Stage) process(out chan<- *pool.Handle[dsp.IQBuffer], h *receiver.Handle) {
	defer h.Release()

	samples, ready := s.engine.Mix(h.Value.Data[:])
	if !ready {
		return
	}

	buf := s.iqPool.Acquire()
	buf.Value.Samples = append(buf.Value.Samples[:0], samples...)

	select {
	case out <- buf:
	default:
		flog.Warnf("ddc: channel full, discarding")
		metrics.DSPOutputDiscarded.WithLabelValues("ddc").Inc()
		buf.Release()
	}
}
