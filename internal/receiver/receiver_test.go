package receiver

import (
	"context"
	"testing"

	"sdrhost/internal/payload"
)

// feed drives handlePacket directly with a sequence of pkt_cnt values,
// bypassing the socket, to exercise the gap-fill algorithm (spec §8
// scenarios 1 and 2).
func feed(t *testing.T, cnts []uint64) []*Handle {
	t.Helper()
	r := &Receiver{pool: NewPool()}
	out := make(chan *Handle, 1024)
	cmds := make(chan Cmd)
	ctx := context.Background()

	for _, c := range cnts {
		h := r.pool.Acquire()
		h.Value.Header = payload.Magic
		h.Value.PktCnt = c
		if ok := r.handlePacket(ctx, h, out, cmds); !ok {
			t.Fatalf("handlePacket returned false unexpectedly")
		}
	}
	close(out)

	var got []*Handle
	for h := range out {
		got = append(got, h)
	}
	return got
}

func TestContiguousNoDrops(t *testing.T) {
	var cnts []uint64
	for i := uint64(0); i < 10; i++ {
		cnts = append(cnts, i)
	}
	got := feed(t, cnts)
	if len(got) != 10 {
		t.Fatalf("expected 10 emissions, got %d", len(got))
	}
	for i, h := range got {
		if h.Value.PktCnt != uint64(i) {
			t.Fatalf("emission %d: expected pkt_cnt %d, got %d", i, i, h.Value.PktCnt)
		}
	}
}

func TestGapFillEmitsPlaceholders(t *testing.T) {
	got := feed(t, []uint64{0, 1, 4, 5})
	if len(got) != 4 {
		t.Fatalf("expected 4 emissions, got %d", len(got))
	}
	wantCnts := []uint64{0, 1, 2, 3}
	for i := 0; i < 4; i++ {
		if got[i].Value.PktCnt != wantCnts[i] {
			t.Fatalf("emission %d: expected pkt_cnt %d, got %d", i, wantCnts[i], got[i].Value.PktCnt)
		}
	}
	// The two placeholders (positions 2 and 3) must have zero data.
	for _, idx := range []int{2, 3} {
		for _, s := range got[idx].Value.Data {
			if s != 0 {
				t.Fatalf("placeholder at position %d has nonzero data", idx)
			}
		}
	}
}

func TestSessionRestartOnZero(t *testing.T) {
	got := feed(t, []uint64{0, 1, 2, 0, 1})
	if len(got) != 5 {
		t.Fatalf("expected 5 emissions (no placeholders across restart), got %d", len(got))
	}
	want := []uint64{0, 1, 2, 0, 1}
	for i, w := range want {
		if got[i].Value.PktCnt != w {
			t.Fatalf("emission %d: expected pkt_cnt %d, got %d", i, w, got[i].Value.PktCnt)
		}
	}
}
