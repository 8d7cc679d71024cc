package ctrl

import (
	"bytes"
	"net"
	"testing"
	"time"
)

// fakeDigitizer answers every request on conn with the given reply,
// stamped with the request's msg_id, then stops after n replies.
func fakeDigitizer(t *testing.T, conn *net.UDPConn, reply Msg, n int) {
	t.Helper()
	go func() {
		buf := make([]byte, maxMsgSize)
		for i := 0; i < n; i++ {
			nr, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			var req Msg
			if err := req.ReadFrom(bytes.NewReader(buf[:nr])); err != nil {
				continue
			}
			r := reply
			r.MsgID = req.MsgID
			var out bytes.Buffer
			r.WriteTo(&out)
			conn.WriteToUDP(out.Bytes(), addr)
		}
	}()
}

func newLoopbackPair(t *testing.T) (*net.UDPConn, *net.UDPAddr) {
	t.Helper()
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return serverConn, serverConn.LocalAddr().(*net.UDPAddr)
}

func TestSendCmdReceivesMatchingReply(t *testing.T) {
	server, serverAddr := newLoopbackPair(t)
	defer server.Close()
	fakeDigitizer(t, server, Msg{Type: MsgStreamStart}, 1)

	c, err := NewClient(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}, []*net.UDPAddr{serverAddr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()
	c.SetTimeout(500 * time.Millisecond)

	summary := c.StreamStart()
	if len(summary.Normal) != 1 {
		t.Fatalf("expected 1 normal reply, got %d (abnormal=%d)", len(summary.Normal), len(summary.Abnormal))
	}
}

func TestSendCmdRetriesOnTimeoutThenGivesUp(t *testing.T) {
	// No server listening at all: every attempt times out.
	unreachable := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
	c, err := NewClient(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}, []*net.UDPAddr{unreachable})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()
	c.SetTimeout(50 * time.Millisecond)
	c.SetRetries(1)

	summary := c.Query()
	if len(summary.Normal) != 0 || len(summary.Abnormal) != 0 {
		t.Fatalf("expected an empty summary on exhausted retries, got %+v", summary)
	}
}

func TestAwakenAndLockedReadsFirstNormalReply(t *testing.T) {
	server, serverAddr := newLoopbackPair(t)
	defer server.Close()
	fakeDigitizer(t, server, Msg{Type: MsgQueryReply, TransState: 0b10, Locked: LockedA}, 1)

	c, err := NewClient(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}, []*net.UDPAddr{serverAddr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()
	c.SetTimeout(500 * time.Millisecond)

	summary := c.Query()
	if !AwakenAndLocked(summary) {
		t.Fatalf("expected AwakenAndLocked true")
	}
}
