package payload

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := New()
	p.PktCnt = 42
	p.BaseID = -7
	p.PortID = 3
	p.Data[0] = 123
	p.Data[NPtPerFrame-1] = -1

	var buf [Size]byte
	if err := p.Encode(buf[:]); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var q Payload
	if err := q.Decode(buf[:]); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if q.PktCnt != 42 || q.BaseID != -7 || q.PortID != 3 {
		t.Fatalf("header mismatch: %+v", q)
	}
	if q.Data[0] != 123 || q.Data[NPtPerFrame-1] != -1 {
		t.Fatalf("data mismatch: %d %d", q.Data[0], q.Data[NPtPerFrame-1])
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	var buf [Size]byte
	var q Payload
	if err := q.Decode(buf[:]); err != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	var q Payload
	if err := q.Decode(make([]byte, Size-1)); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}

func TestCopyHeaderPreservesData(t *testing.T) {
	a := New()
	a.PktCnt = 10
	a.BaseID = 99
	a.Data[5] = 77

	b := New()
	b.Data[5] = 1234
	b.CopyHeader(a)

	if b.PktCnt != 10 || b.BaseID != 99 {
		t.Fatalf("header not copied: %+v", b)
	}
	if b.Data[5] != 1234 {
		t.Fatalf("CopyHeader must not touch Data, got %d", b.Data[5])
	}
}

func TestReset(t *testing.T) {
	p := New()
	p.PktCnt = 5
	p.Data[0] = 9
	p.Reset()
	if p.PktCnt != 0 || p.Data[0] != 0 {
		t.Fatalf("reset left stale state: %+v", p)
	}
}
