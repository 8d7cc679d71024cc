// Package cabi exposes the pipeline through a flat C ABI (spec §6),
// grounded on the original's original_source/src/c_interface.rs for the
// function set (start_data_receiving/stop_data_receiving/get_mtu renamed
// to new_sdr_device/free_sdr_device/start_data_stream/stop_data_stream/
// get_mtu/fetch_data to match spec §6's naming) but not its ownership
// model: the original kept two parallel `static mut BTreeMap<u32, ...>`
// global tables mapping small integer handles to channel endpoints,
// guarded by nothing (every access is an `unsafe` block). spec §9 calls
// that out as the one thing to modernize. Go already has the modern
// variant: runtime/cgo.Handle turns a Go pointer into an opaque,
// type-safe token with no shared global map for this package to get
// wrong — free_sdr_device deletes exactly the handle it was given, and
// an invalid or already-freed handle fails Value()'s type assertion
// instead of corrupting a shared table.
//
// Building this package as a C shared/archive library is a cmd/-level
// concern (a `package main` importing cabi for its side effects and
// emitting the companion header spec §6 mentions); this package only
// supplies the //export surface.
package cabi

/*
#include <stddef.h>
*/
import "C"

import (
	"context"
	"fmt"
	"net"
	"runtime/cgo"
	"unsafe"

	"sdrhost/internal/ctrl"
	"sdrhost/internal/dsp"
	"sdrhost/internal/dsp/ddc"
	"sdrhost/internal/fir"
	"sdrhost/internal/payload"
	"sdrhost/internal/supervisor"
)

const (
	defaultCtrlPort  = 3000
	defaultLocalCtrl = 3001
	defaultNdec      = 8
	defaultNtap      = 24
	defaultBatchM    = 1
)

// device is the Go-side state behind one opaque handle: the pipeline
// plus whatever decoded output fetch_data/fetch_raw_data hasn't yet
// drained into a caller-supplied buffer.
type device struct {
	sup        *supervisor.Supervisor
	pendingIQ  []dsp.ComplexSample
	pendingRaw []int16
}

func dialCtrl(ctrlAddr, localAddr string) (*ctrl.Client, error) {
	remote, err := net.ResolveUDPAddr("udp", ctrlAddr)
	if err != nil {
		return nil, fmt.Errorf("cabi: resolve ctrl addr %s: %w", ctrlAddr, err)
	}
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("cabi: resolve local ctrl addr %s: %w", localAddr, err)
	}
	return ctrl.NewClient(local, []*net.UDPAddr{remote})
}

func bindPayload(dataAddr string) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", dataAddr)
	if err != nil {
		return nil, fmt.Errorf("cabi: resolve data addr %s: %w", dataAddr, err)
	}
	return net.ListenUDP("udp", addr)
}

// deviceFor recovers the device behind handle, reporting ok=false for a
// stale, freed, or forged handle rather than panicking across the C
// boundary (spec §7: "user-visible failures at the C boundary are
// encoded as null-pointer returns or zero-handle sentinels").
func deviceFor(handle C.uintptr_t) (dev *device, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			dev, ok = nil, false
		}
	}()
	dev, ok = cgo.Handle(handle).Value().(*device)
	return
}

// new_sdr_device builds an IQ pipeline (Receiver -> DDC) against the
// given digitizer, locked onto loCh, and returns an opaque handle. A
// zero return means construction failed (bad address or bind failure).
//
//export new_sdr_device
func new_sdr_device(ctrlIP, dataIP *C.char, dataPort C.ushort, loCh C.long) C.uintptr_t {
	ctrlAddr := fmt.Sprintf("%s:%d", C.GoString(ctrlIP), defaultCtrlPort)
	c, err := dialCtrl(ctrlAddr, fmt.Sprintf("0.0.0.0:%d", defaultLocalCtrl))
	if err != nil {
		return 0
	}

	dataAddr := fmt.Sprintf("%s:%d", C.GoString(dataIP), uint16(dataPort))
	conn, err := bindPayload(dataAddr)
	if err != nil {
		c.Close()
		return 0
	}

	coeffs := fir.DesignLowpass(defaultNtap, 0.5/float64(defaultNdec), 5.0)
	engine := ddc.NewEngine(defaultNdec, defaultNtap, coeffs, defaultBatchM, payload.NPtPerFrame)
	engine.SetLO(int(loCh))

	sup := supervisor.NewIQ(c, conn, engine)
	sup.Start(context.Background())

	return C.uintptr_t(cgo.NewHandle(&device{sup: sup}))
}

// new_sdr_raw_device builds a Raw pipeline (no DDC) against the given
// digitizer, the raw-stream analogue of new_sdr_device.
//
//export new_sdr_raw_device
func new_sdr_raw_device(ctrlIP, dataIP *C.char, dataPort C.ushort) C.uintptr_t {
	ctrlAddr := fmt.Sprintf("%s:%d", C.GoString(ctrlIP), defaultCtrlPort)
	c, err := dialCtrl(ctrlAddr, fmt.Sprintf("0.0.0.0:%d", defaultLocalCtrl))
	if err != nil {
		return 0
	}

	dataAddr := fmt.Sprintf("%s:%d", C.GoString(dataIP), uint16(dataPort))
	conn, err := bindPayload(dataAddr)
	if err != nil {
		c.Close()
		return 0
	}

	sup := supervisor.NewRaw(c, conn)
	sup.Start(context.Background())

	return C.uintptr_t(cgo.NewHandle(&device{sup: sup}))
}

// free_sdr_device tears down the pipeline behind handle and releases the
// handle itself. A stale or already-freed handle is a no-op.
//
//export free_sdr_device
func free_sdr_device(handle C.uintptr_t) {
	dev, ok := deviceFor(handle)
	if !ok {
		return
	}
	dev.sup.Close()
	cgo.Handle(handle).Delete()
}

// set_lo_ch hot-swaps the DDC's LO channel (spec §4.3 Hot LO update). A
// no-op on a Raw device, which has no DDC stage.
//
//export set_lo_ch
func set_lo_ch(handle C.uintptr_t, loCh C.long) {
	if dev, ok := deviceFor(handle); ok {
		dev.sup.SetLO(int(loCh))
	}
}

// start_data_stream runs the wakeup/lock/init/sync/stream_start sequence
// (spec §4.5 derived operations), returning 0 on success and -1 if the
// handle is invalid or the digitizer never locked.
//
//export start_data_stream
func start_data_stream(handle C.uintptr_t) C.int {
	dev, ok := deviceFor(handle)
	if !ok {
		return -1
	}
	dev.sup.Wakeup()
	if !dev.sup.WaitUntilLocked(60) {
		return -1
	}
	dev.sup.Init()
	dev.sup.Sync()
	dev.sup.StreamStart()
	return 0
}

// stop_data_stream issues StreamStop without tearing down the pipeline;
// the device handle remains valid for a subsequent start_data_stream.
//
//export stop_data_stream
func stop_data_stream(handle C.uintptr_t) {
	if dev, ok := deviceFor(handle); ok {
		dev.sup.StreamStop()
	}
}

// get_mtu returns the IQ device's output samples per accumulated batch
// (N_PT_PER_FRAME*M/ndec, spec §6).
//
//export get_mtu
func get_mtu() C.size_t {
	return C.size_t(payload.NPtPerFrame * defaultBatchM / defaultNdec)
}

// get_raw_mtu returns the Raw device's output samples per datagram, the
// raw-stream analogue of get_mtu.
//
//export get_raw_mtu
func get_raw_mtu() C.size_t {
	return C.size_t(payload.NPtPerFrame)
}

// fetch_data drains up to npt complex samples from an IQ device into
// buf, refilling from the DDC output channel as needed (spec §6), and
// returns the number of samples actually written (fewer than npt only
// if the pipeline has been torn down). buf must hold 2*npt float32s,
// interleaved real/imag.
//
//export fetch_data
func fetch_data(handle C.uintptr_t, buf *C.float, npt C.size_t) C.size_t {
	dev, ok := deviceFor(handle)
	if !ok {
		return 0
	}
	n := int(npt)
	out := unsafe.Slice((*float32)(unsafe.Pointer(buf)), 2*n)

	got := 0
	for got < n {
		if len(dev.pendingIQ) == 0 {
			h, open := <-dev.sup.IQOut()
			if !open {
				break
			}
			dev.pendingIQ = append(dev.pendingIQ[:0], h.Value.Samples...)
			h.Release()
		}
		take := min(n-got, len(dev.pendingIQ))
		for i := 0; i < take; i++ {
			s := dev.pendingIQ[i]
			out[2*(got+i)] = real(s)
			out[2*(got+i)+1] = imag(s)
		}
		dev.pendingIQ = dev.pendingIQ[take:]
		got += take
	}
	return C.size_t(got)
}

// fetch_raw_data drains up to npt int16 samples from a Raw device into
// buf, the raw-stream analogue of fetch_data.
//
//export fetch_raw_data
func fetch_raw_data(handle C.uintptr_t, buf *C.short, npt C.size_t) C.size_t {
	dev, ok := deviceFor(handle)
	if !ok {
		return 0
	}
	n := int(npt)
	out := unsafe.Slice((*int16)(unsafe.Pointer(buf)), n)

	got := 0
	for got < n {
		if len(dev.pendingRaw) == 0 {
			h, open := <-dev.sup.RawOut()
			if !open {
				break
			}
			dev.pendingRaw = append(dev.pendingRaw[:0], h.Value.Data[:]...)
			h.Release()
		}
		take := min(n-got, len(dev.pendingRaw))
		copy(out[got:got+take], dev.pendingRaw[:take])
		dev.pendingRaw = dev.pendingRaw[take:]
		got += take
	}
	return C.size_t(got)
}
