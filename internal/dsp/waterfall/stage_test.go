package waterfall

import (
	"context"
	"testing"
	"time"

	"sdrhost/internal/dsp"
	"sdrhost/internal/payload"
	"sdrhost/internal/pool"
	"sdrhost/internal/receiver"
)

func TestWaterfallDestroyForwardsUpstream(t *testing.T) {
	engine := NewEngine(64, 4, 4, payload.NPtPerFrame)
	upstream := make(chan receiver.Cmd, 1)
	s := NewStage(engine, upstream)

	in := make(chan *receiver.Handle)
	out := make(chan *pool.Handle[dsp.SpectrumBuffer], 1)
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

func TestWaterfallFullOutboundChannelDiscards(t *testing.T) {
	engine := NewEngine(64, 1, 1, payload.NPtPerFrame)
	upstream := make(chan receiver.Cmd, 1)
	s := NewStage(engine, upstream)

	out := make(chan *pool.Handle[dsp.SpectrumBuffer]) // unbuffered, never drained
	ppool := receiver.NewPool()
	h := ppool.Acquire()
	h.Value.Header = payload.Magic

	s.process(out, h)

	if s.specPool.Outstanding() != 0 {
		t.Fatalf("discarded spectrum buffer must be released, outstanding=%d", s.specPool.Outstanding())
	}
}
