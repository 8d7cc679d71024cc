package ctrl

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"sdrhost/internal/flog"
)

// maxMsgSize bounds a single control-plane datagram; every Msg variant
// fits comfortably within it.
const maxMsgSize = 64

// DefaultTimeout and DefaultRetries mirror original_source/src/sdr.rs's
// send_cmd call sites: a 10-second reply timeout and a single retry.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 1
)

// defaultRetryRate caps a Client's repeated attempts (SendCmd's retries,
// WaitUntilLocked's polling) at a few per second with no burst, pacing
// them instead of firing as fast as a bare for-loop would allow.
const defaultRetryRate = 4

// ReplySummary partitions the replies to one SendCmd call into those
// that match the expected reply type (Normal) and everything else
// (Abnormal) — timeouts contribute to neither list (spec §4.5: "returns
// a summary partitioning responses into normal and abnormal lists").
type ReplySummary struct {
	Normal   []Msg
	Abnormal []Msg
}

// Client is the synchronous control-plane request/reply client (spec
// §4.5). One Client instance is normally owned by a Supervisor and used
// from the Controller thread, which in this implementation is simply
// the calling goroutine — the API is synchronous end to end, as spec §5
// requires ("The Controller thread is the calling thread").
type Client struct {
	conn    *net.UDPConn
	remotes []*net.UDPAddr

	timeout time.Duration
	retries int
	limiter *rate.Limiter

	nextMsgID atomic.Uint32
}

// NewClient binds a local control socket and targets one or more remote
// digitizer control addresses (original_source/src/sdr.rs's send_cmd
// accepts a slice of remotes so one request can address several
// digitizers at once).
func NewClient(local *net.UDPAddr, remotes []*net.UDPAddr) (*Client, error) {
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:    conn,
		remotes: remotes,
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		limiter: rate.NewLimiter(rate.Limit(defaultRetryRate), 1),
	}, nil
}

// Close releases the control socket.
func (c *Client) Close() error { return c.conn.Close() }

// SetTimeout overrides the per-attempt reply timeout.
func (c *Client) SetTimeout(d time.Duration) { c.timeout = d }

// SetRetries overrides the retry count.
func (c *Client) SetRetries(n int) { c.retries = n }

// SetRetryRate overrides the pacing limiter's rate (attempts per second).
func (c *Client) SetRetryRate(perSecond float64) {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
}

// SendCmd transmits cmd to every configured remote, waits up to timeout
// for a reply on each of retries+1 attempts, and partitions what comes
// back (spec §4.5 Contract). cmd.MsgID is assigned here if zero.
func (c *Client) SendCmd(cmd Msg) ReplySummary {
	if cmd.MsgID == 0 {
		cmd.MsgID = c.nextMsgID.Add(1)
	}
	expected := expectedReplyType(cmd.Type)

	var buf bytes.Buffer
	if err := cmd.WriteTo(&buf); err != nil {
		flog.Errorf("ctrl: encode %v: %v", cmd.Type, err)
		return ReplySummary{}
	}
	wire := buf.Bytes()

	var summary ReplySummary
	respBuf := make([]byte, maxMsgSize)

	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.limiter.Wait(context.Background()); err != nil {
			flog.Warnf("ctrl: retry limiter: %v", err)
			return summary
		}
		for _, remote := range c.remotes {
			if _, err := c.conn.WriteToUDP(wire, remote); err != nil {
				flog.Warnf("ctrl: send %v to %s: %v", cmd.Type, remote, err)
			}
		}

		c.conn.SetReadDeadline(time.Now().Add(c.timeout))
		n, _, err := c.conn.ReadFromUDP(respBuf)
		if err != nil {
			continue // timeout: retry
		}

		var reply Msg
		if err := reply.ReadFrom(bytes.NewReader(respBuf[:n])); err != nil {
			flog.Warnf("ctrl: malformed reply to %v: %v", cmd.Type, err)
			continue
		}
		if reply.MsgID != cmd.MsgID {
			continue
		}
		if reply.Type == expected {
			summary.Normal = append(summary.Normal, reply)
			return summary
		}
		summary.Abnormal = append(summary.Abnormal, reply)
	}
	return summary
}

// expectedReplyType names the reply variant send_cmd waits for. Only
// Query has a distinguished reply type in this protocol; the remaining
// commands are fire-and-forget acknowledgements handled the same way by
// the digitizer (it echoes back the request type).
func expectedReplyType(req MsgType) MsgType {
	if req == MsgQuery {
		return MsgQueryReply
	}
	return req
}

// Wakeup issues PwrCtrl{op=1} (spec §4.5 derived operation).
func (c *Client) Wakeup() ReplySummary { return c.SendCmd(PwrCtrl(0, 1)) }

// Query issues Query, expecting one QueryReply.
func (c *Client) Query() ReplySummary { return c.SendCmd(Query(0)) }

// AwakenAndLocked inspects a ReplySummary's first normal reply for the
// awake+locked condition (spec §4.5).
func AwakenAndLocked(s ReplySummary) bool {
	return len(s.Normal) > 0 && s.Normal[0].Awake()
}

// WaitUntilLocked sleeps 6 s, then polls Query once per second up to
// timeoutSec seconds, returning true on the first locked reply (spec
// §4.5: the 6 s initial sleep is this spec's own choice, distinct from
// the 5 s the original implementation used). The poll cadence is paced by
// a one-per-second rate limiter, rather than a bare time.Sleep loop.
func (c *Client) WaitUntilLocked(timeoutSec int) bool {
	time.Sleep(6 * time.Second)
	poll := rate.NewLimiter(rate.Every(time.Second), 1)
	for i := 0; i < timeoutSec; i++ {
		if err := poll.Wait(context.Background()); err != nil {
			return false
		}
		reply := c.Query()
		if len(reply.Normal) > 0 && reply.Normal[0].IsLocked() {
			return true
		}
	}
	return false
}

// Init issues the Init command.
func (c *Client) Init() ReplySummary { return c.SendCmd(Init(0)) }

// Sync issues the Sync command.
func (c *Client) Sync() ReplySummary { return c.SendCmd(Sync(0)) }

// StreamStart issues the StreamStart command.
func (c *Client) StreamStart() ReplySummary { return c.SendCmd(StreamStart(0)) }

// StreamStop issues the StreamStop command. Idempotent: sending it
// against an already-stopped digitizer is safe and expected during
// teardown (spec §4.5, §4.6).
func (c *Client) StreamStop() ReplySummary { return c.SendCmd(StreamStop(0)) }
