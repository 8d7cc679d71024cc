// Package ctrl implements the synchronous request/reply control-plane
// client for the digitizer (spec §4.5): a tagged-union message codec and
// a send_cmd primitive with timeout/retry, plus the derived operations
// (wakeup, query, wait_until_locked, init, sync, stream_start,
// stream_stop) original_source/src/sdr.rs exposes on Sdr.
//
// The tagged-union codec follows the teacher's internal/protocol.Proto
// idiom (paqet): a one-byte type tag dispatching to per-type Read/Write
// methods over encoding/binary, here in big-endian to match the
// teacher's wire convention (the payload codec is little-endian because
// spec §6 names that explicitly for the UDP frame; the control port's
// byte order is left to the implementation, so the teacher's convention
// is kept).
package ctrl

import (
	"encoding/binary"
	"errors"
	"io"
)

// MsgType tags the control message taxonomy (spec §3 "Control message").
type MsgType byte

const (
	MsgQuery MsgType = iota + 1
	MsgPwrCtrl
	MsgInit
	MsgSync
	MsgStreamStart
	MsgStreamStop
	MsgQueryReply
)

// locked values observed in a QueryReply (spec §4.5 awaken_and_locked).
const (
	LockedA = 0x3f
	LockedB = 0x2f
)

// trans_state bit indicating the digitizer is awake (spec §4.5).
const transStateAwake = 0b10

// ErrUnknownMsgType is returned by Read when the wire tag is unrecognized.
var ErrUnknownMsgType = errors.New("ctrl: unknown message type")

// Msg is one control-plane message. Fields not relevant to Type are
// zero. MsgID correlates a reply to its request.
type Msg struct {
	Type  MsgType
	MsgID uint32

	// PwrCtrl
	OpCode uint8

	// Init
	ReservedZeros uint32

	// QueryReply
	FmVer      uint32
	TickCnt1   uint64
	TickCnt2   uint64
	TransState uint8
	Locked     uint8
	Health     uint32
}

// Query builds a Query request.
func Query(msgID uint32) Msg { return Msg{Type: MsgQuery, MsgID: msgID} }

// PwrCtrl builds a PwrCtrl request with the given op code.
func PwrCtrl(msgID uint32, op uint8) Msg { return Msg{Type: MsgPwrCtrl, MsgID: msgID, OpCode: op} }

// Init builds an Init request.
func Init(msgID uint32) Msg { return Msg{Type: MsgInit, MsgID: msgID} }

// Sync builds a Sync request.
func Sync(msgID uint32) Msg { return Msg{Type: MsgSync, MsgID: msgID} }

// StreamStart builds a StreamStart request.
func StreamStart(msgID uint32) Msg { return Msg{Type: MsgStreamStart, MsgID: msgID} }

// StreamStop builds a StreamStop request.
func StreamStop(msgID uint32) Msg { return Msg{Type: MsgStreamStop, MsgID: msgID} }

// Awake reports whether a QueryReply indicates the digitizer is awake
// and locked (spec §4.5 awaken_and_locked): trans_state's bit 1 is set
// and locked is one of the two observed lock sentinels.
func (m Msg) Awake() bool {
	return m.Type == MsgQueryReply &&
		m.TransState&transStateAwake != 0 &&
		(m.Locked == LockedA || m.Locked == LockedB)
}

// IsLocked reports whether a QueryReply's locked field alone indicates a
// locked digitizer (used by wait_until_locked, which polls on locked
// only, not the full awake condition).
func (m Msg) IsLocked() bool {
	return m.Type == MsgQueryReply && (m.Locked == LockedA || m.Locked == LockedB)
}

// WriteTo serializes m as a tagged-union record.
func (m Msg) WriteTo(w io.Writer) error {
	if err := writeByte(w, byte(m.Type)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, m.MsgID); err != nil {
		return err
	}
	switch m.Type {
	case MsgQuery, MsgSync, MsgStreamStart, MsgStreamStop:
		return nil
	case MsgPwrCtrl:
		return binary.Write(w, binary.BigEndian, m.OpCode)
	case MsgInit:
		return binary.Write(w, binary.BigEndian, m.ReservedZeros)
	case MsgQueryReply:
		for _, v := range []any{m.FmVer, m.TickCnt1, m.TickCnt2, m.TransState, m.Locked, m.Health} {
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrUnknownMsgType
	}
}

// ReadFrom deserializes a tagged-union record into m.
func (m *Msg) ReadFrom(r io.Reader) error {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return err
	}
	m.Type = MsgType(tag[0])
	if err := binary.Read(r, binary.BigEndian, &m.MsgID); err != nil {
		return err
	}
	switch m.Type {
	case MsgQuery, MsgSync, MsgStreamStart, MsgStreamStop:
		return nil
	case MsgPwrCtrl:
		return binary.Read(r, binary.BigEndian, &m.OpCode)
	case MsgInit:
		return binary.Read(r, binary.BigEndian, &m.ReservedZeros)
	case MsgQueryReply:
		for _, v := range []any{&m.FmVer, &m.TickCnt1, &m.TickCnt2, &m.TransState, &m.Locked, &m.Health} {
			if err := binary.Read(r, binary.BigEndian, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrUnknownMsgType
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}
