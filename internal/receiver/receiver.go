// Package receiver implements the lossless, gap-filling UDP packet
// receiver (spec §4.1): it drains the digitizer socket, reconstructs
// monotonic sequence continuity by synthesizing zero-filled placeholders
// for dropped packets, and shuts down cleanly on command.
//
// Grounded on _examples/original_source/src/pipeline.rs (recv_pkt) for the
// drop-fill algorithm, and the teacher's internal/server/udp.go read loop
// (paqet) for the Go structuring: deadline-bounded net.UDPConn.Read, a
// pooled buffer per iteration, and a command-channel check before every
// blocking wait.
package receiver

import (
	"context"
	"net"
	"time"

	"sdrhost/internal/flog"
	"sdrhost/internal/metrics"
	"sdrhost/internal/payload"
	"sdrhost/internal/pool"
)

// Cmd is the one-shot teardown signal a downstream DSP stage forwards
// upstream to the Receiver (spec §9: the DSP stage is the only actor
// authorized to forward Destroy upstream).
type Cmd int

const (
	CmdNone Cmd = iota
	CmdDestroy
)

// DefaultQueueCapacity is the Receiver->DSP channel capacity (spec §4.2).
const DefaultQueueCapacity = 8192

// readTimeout bounds each socket read so the Receiver can periodically
// check its command channel and print status even with no traffic.
const readTimeout = 1 * time.Second

const statusInterval = 2 * time.Second

// Handle is the pooled, owned Payload carried on the output channel.
type Handle = pool.Handle[payload.Payload]

// NewPool constructs the Payload pool the Receiver (and any synthesized
// placeholder) draws from.
func NewPool() *pool.Pool[payload.Payload] {
	return pool.New("payload",
		func() *payload.Payload { return payload.New() },
		func(p *payload.Payload) { p.Reset() },
	)
}

// Receiver owns a bound UDP socket and reconstructs the ordered Payload
// stream from it.
type Receiver struct {
	conn *net.UDPConn
	pool *pool.Pool[payload.Payload]

	nextCnt   uint64
	haveNext  bool
	ndropped  uint64
	lastPrint time.Time
	startedAt time.Time
}

// New wraps an already-bound UDP socket. Multicast group membership, if
// any, must already have been joined by the caller (spec §6 Multicast).
func New(conn *net.UDPConn) *Receiver {
	now := time.Now()
	return &Receiver{conn: conn, pool: NewPool(), lastPrint: now, startedAt: now}
}

// Pool exposes the Payload pool so a supervisor can report leaks at
// teardown (spec §8: "final pool outstanding count equals zero").
func (r *Receiver) Pool() *pool.Pool[payload.Payload] { return r.pool }

// Run drains the socket until ctx is canceled or CmdDestroy is received on
// cmds, emitting ordered Payload handles on out. Run returns when the
// Receiver has shut down; any buffer it was about to send is released.
func (r *Receiver) Run(ctx context.Context, out chan<- *Handle, cmds <-chan Cmd) {
	defer flog.Debugf("receiver: stopped")

	buf := make([]byte, payload.Size)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-cmds:
			if cmd == CmdDestroy {
				return
			}
		default:
		}

		r.maybePrintStatus(out)

		r.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			flog.Errorf("receiver: read error: %v", err)
			continue
		}
		if n != payload.Size {
			// Short reads are discarded without counting (spec §4.1).
			continue
		}

		h := r.pool.Acquire()
		if err := h.Value.Decode(buf); err != nil {
			flog.Debugf("receiver: decode error: %v", err)
			h.Release()
			continue
		}
		metrics.PacketsReceived.Inc()

		if !r.handlePacket(ctx, h, out, cmds) {
			return
		}
	}
}

// handlePacket applies the session/restart logic and gap-fill algorithm of
// spec §4.1 to a single freshly-decoded Payload handle, then emits it (and
// any synthesized placeholders before it). Returns false if the Receiver
// should stop.
func (r *Receiver) handlePacket(ctx context.Context, h *Handle, out chan<- *Handle, cmds <-chan Cmd) bool {
	p := h.Value.PktCnt

	if !r.haveNext || p == 0 {
		if r.haveNext && p == 0 {
			metrics.SessionRestarts.Inc()
		}
		r.nextCnt = p
		r.haveNext = true
		r.ndropped = 0
		now := time.Now().Format("2006-01-02 15:04:05.000")
		flog.Infof("receiver: session start at %s (pkt_cnt=%d)", now, p)
	}

	for r.nextCnt < p {
		placeholder := r.pool.Acquire()
		placeholder.Value.CopyHeader(h.Value)
		placeholder.Value.PktCnt = r.nextCnt
		// Data is already zero from the pool's reset function.

		if !r.send(ctx, placeholder, out, cmds) {
			return false
		}
		r.ndropped++
		metrics.PacketsDropped.Inc()
		r.nextCnt++
	}

	r.nextCnt = p + 1
	return r.send(ctx, h, out, cmds)
}

// send delivers h on out, retrying through backpressure while watching for
// a Destroy command (spec §4.1 Backpressure). It releases h and returns
// false if Destroy arrives or ctx is canceled before delivery.
func (r *Receiver) send(ctx context.Context, h *Handle, out chan<- *Handle, cmds <-chan Cmd) bool {
	for {
		select {
		case out <- h:
			return true
		case cmd := <-cmds:
			if cmd == CmdDestroy {
				h.Release()
				return false
			}
		case <-ctx.Done():
			h.Release()
			return false
		}
	}
}

func (r *Receiver) maybePrintStatus(out chan<- *Handle) {
	now := time.Now()
	if now.Sub(r.lastPrint) < statusInterval {
		return
	}
	r.lastPrint = now

	q := len(out)
	c := cap(out)
	var ratio float64
	total := r.nextCnt
	if total > 0 {
		ratio = float64(r.ndropped) / float64(total)
	}
	flog.Infof("receiver: elapsed=%s dropped=%d queue=%d/%d drop_ratio=%.4f",
		now.Sub(r.startedAt).Round(time.Second), r.ndropped, q, c, ratio)
	metrics.QueueDepth.WithLabelValues("receiver_out").Set(float64(q))
}
