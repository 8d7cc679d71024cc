package ddc

import (
	"context"
	"testing"
	"time"

	"sdrhost/internal/dsp"
	"sdrhost/internal/fir"
	"sdrhost/internal/payload"
	"sdrhost/internal/pool"
	"sdrhost/internal/receiver"
)

func newTestStage(batchM int) (*Stage, *pool.Pool[payload.Payload]) {
	coeffs := fir.DesignLowpass(24, 0.05, 5.0)
	engine := NewEngine(8, 24, coeffs, batchM, payload.NPtPerFrame)
	upstream := make(chan receiver.Cmd, 1)
	return NewStage(engine, upstream), receiver.NewPool()
}

func TestDestroyForwardsUpstream(t *testing.T) {
	coeffs := fir.DesignLowpass(24, 0.05, 5.0)
	engine := NewEngine(8, 24, coeffs, 1, payload.NPtPerFrame)
	upstream := make(chan receiver.Cmd, 1)
	s := NewStage(engine, upstream)

	in := make(chan *receiver.Handle)
	out := make(chan *pool.Handle[dsp.IQBuffer], 1)
	cmds := make(chan Cmd, 1)
	cmds <- DestroyCmd()

	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), in, out, cmds)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Destroy")
	}

	select {
	case cmd := <-upstream:
		if cmd != receiver.CmdDestroy {
			t.Fatalf("expected CmdDestroy forwarded upstream, got %v", cmd)
		}
	default:
		t.Fatalf("expected Destroy forwarded on upstream channel")
	}
}

func TestFullOutboundChannelDiscardsEmission(t *testing.T) {
	s, ppool := newTestStage(1)

	out := make(chan *pool.Handle[dsp.IQBuffer]) // unbuffered, never drained
	h := ppool.Acquire()
	h.Value.Header = payload.Magic

	s.process(out, h)

	if s.iqPool.Outstanding() != 0 {
		t.Fatalf("discarded buffer must be released back to the pool, outstanding=%d", s.iqPool.Outstanding())
	}
}
