package cabi

/*
#include <stdlib.h>
*/
import "C"

import (
	"bytes"
	"net"
	"testing"
	"unsafe"

	"sdrhost/internal/ctrl"
	"sdrhost/internal/payload"
)

// echoCtrlServer answers every control request with a reply of the same
// type and msg_id, and marks the digitizer as awake and locked for
// Query, standing in for a cooperative digitizer.
func echoCtrlServer(t *testing.T, conn *net.UDPConn) {
	t.Helper()
	go func() {
		buf := make([]byte, 64)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			var req ctrl.Msg
			if err := req.ReadFrom(bytes.NewReader(buf[:n])); err != nil {
				continue
			}
			reply := req
			if req.Type == ctrl.MsgQuery {
				reply = ctrl.Msg{Type: ctrl.MsgQueryReply, MsgID: req.MsgID, TransState: 0b10, Locked: ctrl.LockedA}
			}
			var out bytes.Buffer
			reply.WriteTo(&out)
			conn.WriteToUDP(out.Bytes(), addr)
		}
	}()
}

func cString(t *testing.T, s string) (*C.char, func()) {
	t.Helper()
	cs := C.CString(s)
	return cs, func() { C.free(unsafe.Pointer(cs)) }
}

// reserveUDPPort binds and immediately releases a port so a later bind
// by the code under test can reuse the same number.
func reserveUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()
	return port
}

func TestRawDeviceLifecycleAndFetch(t *testing.T) {
	ctrlServer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 3000})
	if err != nil {
		t.Skipf("cannot bind fixed ctrl port for this test: %v", err)
	}
	defer ctrlServer.Close()
	echoCtrlServer(t, ctrlServer)

	dataPort := reserveUDPPort(t)

	ctrlIP, freeCtrlIP := cString(t, "127.0.0.1")
	defer freeCtrlIP()
	dataIP, freeDataIP := cString(t, "127.0.0.1")
	defer freeDataIP()

	handle := new_sdr_raw_device(ctrlIP, dataIP, C.ushort(dataPort))
	if handle == 0 {
		t.Fatalf("new_sdr_raw_device returned zero handle")
	}
	defer free_sdr_device(handle)

	if _, ok := deviceFor(handle); !ok {
		t.Fatalf("deviceFor: valid handle reported invalid")
	}

	sender, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: dataPort})
	if err != nil {
		t.Fatalf("dial payload socket: %v", err)
	}
	defer sender.Close()

	p := payload.New()
	p.PktCnt = 0
	p.Data[3] = 42
	var wire [payload.Size]byte
	if err := p.Encode(wire[:]); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := sender.Write(wire[:]); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	buf := make([]int16, payload.NPtPerFrame)
	got := fetch_raw_data(handle, (*C.short)(unsafe.Pointer(&buf[0])), C.size_t(len(buf)))
	if int(got) != payload.NPtPerFrame {
		t.Fatalf("fetch_raw_data returned %d samples, want %d", got, payload.NPtPerFrame)
	}
	if buf[3] != 42 {
		t.Fatalf("buf[3] = %d, want 42", buf[3])
	}
}

func TestGetMtuMatchesBatchedFormula(t *testing.T) {
	want := C.size_t(payload.NPtPerFrame * defaultBatchM / defaultNdec)
	if got := get_mtu(); got != want {
		t.Fatalf("get_mtu() = %d, want %d", got, want)
	}
	if got := get_raw_mtu(); got != C.size_t(payload.NPtPerFrame) {
		t.Fatalf("get_raw_mtu() = %d, want %d", got, payload.NPtPerFrame)
	}
}

func TestDeviceForRejectsForgedHandle(t *testing.T) {
	if _, ok := deviceFor(C.uintptr_t(0)); ok {
		t.Fatalf("deviceFor(0) should report invalid")
	}
	if _, ok := deviceFor(C.uintptr_t(^uint64(0))); ok {
		t.Fatalf("deviceFor(garbage) should report invalid")
	}
}

func TestSetLoChAndStopOnInvalidHandleAreNoops(t *testing.T) {
	set_lo_ch(C.uintptr_t(0), 5)
	stop_data_stream(C.uintptr_t(0))
	free_sdr_device(C.uintptr_t(0))
}
