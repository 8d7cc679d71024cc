package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"sdrhost/internal/dsp"
)

// frameKind tags an exported frame's payload shape.
type frameKind uint8

const (
	kindIQ       frameKind = 1
	kindSpectrum frameKind = 2
)

// writeTimeout bounds a single frame send so a stalled monitor link
// cannot block the DSP stage it is draining (telemetry export is
// best-effort, same discipline as the DSP stage's own outbound-channel
// policy in spec §4.3/§4.4).
const writeTimeout = 2 * time.Second

// Exporter writes length-prefixed IQBuffer/SpectrumBuffer frames to a
// telemetry Stream: a 1-byte kind tag, a 4-byte little-endian byte length
// of the rest of the frame, then a 4-byte little-endian sample count and
// the raw float32 samples — little-endian throughout, the
// same wire convention as internal/payload (spec §6 names little-endian
// explicitly for the one format it specifies; this keeps that
// convention for every other wire format this module defines).
type Exporter struct {
	stream Stream
}

// NewExporter wraps an already-dialed Stream.
func NewExporter(s Stream) *Exporter { return &Exporter{stream: s} }

// Close closes the underlying stream.
func (e *Exporter) Close() error { return e.stream.Close() }

// SendIQ writes one IQBuffer frame.
func (e *Exporter) SendIQ(buf *dsp.IQBuffer) error {
	payload := make([]byte, 4+8*len(buf.Samples))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(buf.Samples)))
	off := 4
	for _, s := range buf.Samples {
		binary.LittleEndian.PutUint32(payload[off:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(payload[off+4:], math.Float32bits(imag(s)))
		off += 8
	}
	return e.writeFrame(kindIQ, payload)
}

// SendSpectrum writes one SpectrumBuffer frame.
func (e *Exporter) SendSpectrum(buf *dsp.SpectrumBuffer) error {
	payload := make([]byte, 4+4*len(buf.Power))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(buf.Power)))
	off := 4
	for _, v := range buf.Power {
		binary.LittleEndian.PutUint32(payload[off:], math.Float32bits(v))
		off += 4
	}
	return e.writeFrame(kindSpectrum, payload)
}

func (e *Exporter) writeFrame(kind frameKind, payload []byte) error {
	header := make([]byte, 5)
	header[0] = byte(kind)
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))

	if err := e.stream.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("telemetry: set write deadline: %w", err)
	}
	if _, err := e.stream.Write(header); err != nil {
		return fmt.Errorf("telemetry: write frame header: %w", err)
	}
	if _, err := e.stream.Write(payload); err != nil {
		return fmt.Errorf("telemetry: write frame payload: %w", err)
	}
	return nil
}

