// Package payload defines the on-wire datagram format produced by the
// remote digitizer (spec §3, §6) and its binary codec.
package payload

import (
	"encoding/binary"
	"errors"
	"io"
)

// NPtPerFrame is the fixed number of samples carried by one datagram.
const NPtPerFrame = 4096

// Magic is the expected header value of every Payload.
const Magic uint32 = 0x12345678

// Size is the fixed wire size of a Payload: 4+4+8+8+8+8+8 header bytes
// plus 4096 16-bit samples.
const Size = 4 + 4 + 8 + 8 + 8 + 8 + 8 + NPtPerFrame*2

// Payload is a fixed-shape record mirroring one UDP datagram from the
// digitizer. Every field except Data is copied by CopyHeader.
type Payload struct {
	Header      uint32
	Version     uint32
	PktCnt      uint64
	BaseID      int64
	PortID      int64
	NPtPerFrame uint64
	Reserved    uint64
	Data        [NPtPerFrame]int16
}

// New returns a Payload with the default header values, ready for reuse
// from a pool.
func New() *Payload {
	return &Payload{
		Header:      Magic,
		NPtPerFrame: NPtPerFrame,
	}
}

// Reset restores a Payload to its pool-default state: zeroed sequence
// number and sample data, header fields left untouched (set by the next
// Decode or CopyHeader call).
func (p *Payload) Reset() {
	p.PktCnt = 0
	for i := range p.Data {
		p.Data[i] = 0
	}
}

// CopyHeader copies every field of rhs except Data, used when synthesizing
// a zero-filled placeholder for a dropped packet (spec §4.1 step 2).
func (p *Payload) CopyHeader(rhs *Payload) {
	p.Header = rhs.Header
	p.Version = rhs.Version
	p.PktCnt = rhs.PktCnt
	p.BaseID = rhs.BaseID
	p.PortID = rhs.PortID
	p.NPtPerFrame = rhs.NPtPerFrame
	p.Reserved = rhs.Reserved
}

var (
	// ErrBadMagic is returned by Decode when the header does not match Magic.
	ErrBadMagic = errors.New("payload: bad magic header")
	// ErrShortBuffer is returned when a buffer is smaller than Size.
	ErrShortBuffer = errors.New("payload: short buffer")
)

// Decode parses a Size-byte little-endian wire buffer into p. The caller is
// expected to have already validated len(buf) == Size (spec §4.1: "short
// reads are discarded without counting").
func (p *Payload) Decode(buf []byte) error {
	if len(buf) != Size {
		return ErrShortBuffer
	}
	p.Header = binary.LittleEndian.Uint32(buf[0:4])
	if p.Header != Magic {
		return ErrBadMagic
	}
	p.Version = binary.LittleEndian.Uint32(buf[4:8])
	p.PktCnt = binary.LittleEndian.Uint64(buf[8:16])
	p.BaseID = int64(binary.LittleEndian.Uint64(buf[16:24]))
	p.PortID = int64(binary.LittleEndian.Uint64(buf[24:32]))
	p.NPtPerFrame = binary.LittleEndian.Uint64(buf[32:40])
	p.Reserved = binary.LittleEndian.Uint64(buf[40:48])
	for i := 0; i < NPtPerFrame; i++ {
		off := 48 + i*2
		p.Data[i] = int16(binary.LittleEndian.Uint16(buf[off : off+2]))
	}
	return nil
}

// Encode serializes p into a Size-byte little-endian wire buffer.
func (p *Payload) Encode(buf []byte) error {
	if len(buf) != Size {
		return ErrShortBuffer
	}
	binary.LittleEndian.PutUint32(buf[0:4], p.Header)
	binary.LittleEndian.PutUint32(buf[4:8], p.Version)
	binary.LittleEndian.PutUint64(buf[8:16], p.PktCnt)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(p.BaseID))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(p.PortID))
	binary.LittleEndian.PutUint64(buf[32:40], p.NPtPerFrame)
	binary.LittleEndian.PutUint64(buf[40:48], p.Reserved)
	for i := 0; i < NPtPerFrame; i++ {
		off := 48 + i*2
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(p.Data[i]))
	}
	return nil
}

// WriteTo implements io.WriterTo, writing p's Size-byte wire encoding to
// w without an intermediate copy beyond the encode buffer.
func (p *Payload) WriteTo(w io.Writer) (int64, error) {
	var buf [Size]byte
	if err := p.Encode(buf[:]); err != nil {
		return 0, err
	}
	n, err := w.Write(buf[:])
	return int64(n), err
}
