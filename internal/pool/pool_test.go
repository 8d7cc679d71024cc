package pool

import "testing"

type widget struct {
	n int
}

func TestAcquireGrowsWhenEmpty(t *testing.T) {
	p := New("widget", func() *widget { return &widget{} }, func(w *widget) { w.n = 0 })

	h1 := p.Acquire()
	h2 := p.Acquire()

	if p.Outstanding() != 2 {
		t.Fatalf("expected 2 outstanding, got %d", p.Outstanding())
	}
	if p.Grown() != 2 {
		t.Fatalf("expected 2 growth events, got %d", p.Grown())
	}
	h1.Release()
	h2.Release()
	if p.Outstanding() != 0 {
		t.Fatalf("expected 0 outstanding after release, got %d", p.Outstanding())
	}
}

func TestReleaseResetsAndRecycles(t *testing.T) {
	p := New("widget", func() *widget { return &widget{} }, func(w *widget) { w.n = 0 })

	h1 := p.Acquire()
	h1.Value.n = 99
	h1.Release()

	h2 := p.Acquire()
	if h2.Value.n != 0 {
		t.Fatalf("expected reset value 0, got %d", h2.Value.n)
	}
	if p.Grown() != 1 {
		t.Fatalf("second acquire should recycle, not grow; grown=%d", p.Grown())
	}
	h2.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := New("widget", func() *widget { return &widget{} }, func(w *widget) { w.n = 0 })
	h := p.Acquire()
	h.Release()
	h.Release()
	if p.Outstanding() != 0 {
		t.Fatalf("double release must not double-decrement, got %d", p.Outstanding())
	}
}
