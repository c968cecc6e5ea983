package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/avbsrp/srpcore/internal/hostapi"
	"github.com/avbsrp/srpcore/internal/streamid"
)

// parseMAC parses a colon-separated MAC address string such as
// "91:e0:f0:00:00:01".
func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("mac %q: want 6 colon-separated octets", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("mac %q: octet %d: %w", s, i, err)
		}
		mac[i] = byte(v)
	}
	return mac, nil
}

// memDataPlane is an in-memory stand-in for the AVB 1722 data plane
// (spec.md §4.5), recording every call it receives in memory rather
// than touching real hardware.
type memDataPlane struct {
	sourcePort map[int]hostapi.SourcePort
	forwarding map[streamid.ID]bool
}

func newMemDataPlane() *memDataPlane {
	return &memDataPlane{
		sourcePort: make(map[int]hostapi.SourcePort),
		forwarding: make(map[streamid.ID]bool),
	}
}

func (d *memDataPlane) SetSourcePort(streamIndex int, port hostapi.SourcePort) {
	d.sourcePort[streamIndex] = port
}

func (d *memDataPlane) EnableStreamForwarding(id streamid.ID) {
	d.forwarding[id] = true
}

func (d *memDataPlane) DisableStreamForwarding(id streamid.ID) {
	d.forwarding[id] = false
}

func (d *memDataPlane) RemoveStreamFromTable(id streamid.ID) {
	delete(d.forwarding, id)
}

// memAVBHost is an in-memory stand-in for the host AVB source/sink
// facade (spec.md §4.5).
type memAVBHost struct {
	sourceState  []hostapi.SourceState
	sourceVLAN   []uint16
	sinkVLAN     []uint16
	sourceStream []streamid.ID
	sinkStream   []streamid.ID
}

func newMemAVBHost(numSources, numSinks int) *memAVBHost {
	return &memAVBHost{
		sourceState:  make([]hostapi.SourceState, numSources),
		sourceVLAN:   make([]uint16, numSources),
		sinkVLAN:     make([]uint16, numSinks),
		sourceStream: make([]streamid.ID, numSources),
		sinkStream:   make([]streamid.ID, numSinks),
	}
}

// addSource assigns id to the next free source slot and marks it
// POTENTIAL, returning the assigned index.
func (a *memAVBHost) addSource(id streamid.ID) int {
	for i, existing := range a.sourceStream {
		if existing.IsZero() {
			a.sourceStream[i] = id
			a.sourceState[i] = hostapi.SourcePotential
			return i
		}
	}
	a.sourceStream = append(a.sourceStream, id)
	a.sourceState = append(a.sourceState, hostapi.SourcePotential)
	a.sourceVLAN = append(a.sourceVLAN, 0)
	return len(a.sourceStream) - 1
}

func (a *memAVBHost) NumSources() int { return len(a.sourceStream) }
func (a *memAVBHost) NumSinks() int   { return len(a.sinkStream) }

func (a *memAVBHost) GetSourceState(index int) hostapi.SourceState { return a.sourceState[index] }
func (a *memAVBHost) SetSourceState(index int, s hostapi.SourceState) {
	a.sourceState[index] = s
}

func (a *memAVBHost) GetSourceVLAN(index int) uint16 { return a.sourceVLAN[index] }
func (a *memAVBHost) SetSourceVLAN(index int, vlan uint16) {
	a.sourceVLAN[index] = vlan
}

func (a *memAVBHost) GetSinkVLAN(index int) uint16 { return a.sinkVLAN[index] }
func (a *memAVBHost) SetSinkVLAN(index int, vlan uint16) {
	a.sinkVLAN[index] = vlan
}

func (a *memAVBHost) GetSourceStreamIndexFromStreamID(id streamid.ID) (int, bool) {
	for i, s := range a.sourceStream {
		if s == id {
			return i, true
		}
	}
	return 0, false
}

func (a *memAVBHost) GetSinkStreamIndexFromStreamID(id streamid.ID) (int, bool) {
	for i, s := range a.sinkStream {
		if s == id {
			return i, true
		}
	}
	return 0, false
}

// memVLANJoiner logs MVRP VLAN-join requests instead of registering
// them on a real interface.
type memVLANJoiner struct {
	logger *log.Logger
}

func newMemVLANJoiner(logger *log.Logger) *memVLANJoiner {
	return &memVLANJoiner{logger: logger}
}

func (v *memVLANJoiner) JoinVLAN(vlanID uint16, port int) {
	v.logger.Debug("joining VLAN", "vlan", vlanID, "port", port)
}
