package declare

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/avbsrp/srpcore/internal/bandwidth"
	"github.com/avbsrp/srpcore/internal/domain"
	"github.com/avbsrp/srpcore/internal/hostapi"
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/reservation"
	"github.com/avbsrp/srpcore/internal/streamid"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

// fakeDataPlane records the forwarding/source-port calls the
// Declaration State Machine makes, per hostapi.DataPlane.
type fakeDataPlane struct {
	sourcePort map[int]hostapi.SourcePort
	enabled    map[streamid.ID]bool
	removed    map[streamid.ID]bool
}

func newFakeDataPlane() *fakeDataPlane {
	return &fakeDataPlane{
		sourcePort: make(map[int]hostapi.SourcePort),
		enabled:    make(map[streamid.ID]bool),
		removed:    make(map[streamid.ID]bool),
	}
}

func (f *fakeDataPlane) SetSourcePort(streamIndex int, port hostapi.SourcePort) {
	f.sourcePort[streamIndex] = port
}
func (f *fakeDataPlane) EnableStreamForwarding(id streamid.ID)  { f.enabled[id] = true }
func (f *fakeDataPlane) DisableStreamForwarding(id streamid.ID) { f.enabled[id] = false }
func (f *fakeDataPlane) RemoveStreamFromTable(id streamid.ID)   { f.removed[id] = true }

// fakeAVBHost implements hostapi.AVBHost and domain.AVBFacade over
// pre-sized source and sink arrays, sufficient for one-stream scenario
// tests.
type fakeAVBHost struct {
	sourceState []hostapi.SourceState
	sourceVLAN  []uint16
	sinkVLAN    []uint16
	sourceID    []streamid.ID
	sinkID      []streamid.ID
}

func newFakeAVBHost(numSources, numSinks int) *fakeAVBHost {
	return &fakeAVBHost{
		sourceState: make([]hostapi.SourceState, numSources),
		sourceVLAN:  make([]uint16, numSources),
		sinkVLAN:    make([]uint16, numSinks),
		sourceID:    make([]streamid.ID, numSources),
		sinkID:      make([]streamid.ID, numSinks),
	}
}

func (f *fakeAVBHost) NumSources() int { return len(f.sourceState) }
func (f *fakeAVBHost) NumSinks() int   { return len(f.sinkVLAN) }

func (f *fakeAVBHost) GetSourceState(i int) hostapi.SourceState      { return f.sourceState[i] }
func (f *fakeAVBHost) SetSourceState(i int, s hostapi.SourceState)   { f.sourceState[i] = s }
func (f *fakeAVBHost) GetSourceVLAN(i int) uint16                    { return f.sourceVLAN[i] }
func (f *fakeAVBHost) SetSourceVLAN(i int, v uint16)                 { f.sourceVLAN[i] = v }
func (f *fakeAVBHost) GetSinkVLAN(i int) uint16                      { return f.sinkVLAN[i] }
func (f *fakeAVBHost) SetSinkVLAN(i int, v uint16)                   { f.sinkVLAN[i] = v }

func (f *fakeAVBHost) GetSourceStreamIndexFromStreamID(id streamid.ID) (int, bool) {
	for i, sid := range f.sourceID {
		if sid == id {
			return i, true
		}
	}
	return 0, false
}
func (f *fakeAVBHost) GetSinkStreamIndexFromStreamID(id streamid.ID) (int, bool) {
	for i, sid := range f.sinkID {
		if sid == id {
			return i, true
		}
	}
	return 0, false
}

func (f *fakeAVBHost) addSource(i int, id streamid.ID) {
	f.sourceID[i] = id
	f.sourceState[i] = hostapi.SourcePotential
}

// fakeVLANJoiner records JoinVLAN calls.
type fakeVLANJoiner struct {
	joined []struct {
		vlan uint16
		port int
	}
}

func (f *fakeVLANJoiner) JoinVLAN(vlanID uint16, port int) {
	f.joined = append(f.joined, struct {
		vlan uint16
		port int
	}{vlanID, port})
}

// testRig bundles one Machine with its collaborators for tests. numPorts
// 1 builds a single-port (endpoint) Machine; 2 builds a two-port
// (bridge) one.
type testRig struct {
	engine  *mrp.Registry
	table   *reservation.Table
	bw      *bandwidth.Accountant
	domain  *domain.Handler
	data    *fakeDataPlane
	avb     *fakeAVBHost
	vlan    *fakeVLANJoiner
	machine *Machine
}

func newTestRig(numPorts int) *testRig {
	engine := mrp.NewRegistry()
	table := reservation.New(8)
	bw := bandwidth.New(numPorts, nil, testLogger())
	dom := domain.New(numPorts, 2, engine, testLogger())
	dom.Init()
	data := newFakeDataPlane()
	avb := newFakeAVBHost(2, 2)
	vlan := &fakeVLANJoiner{}

	machine := New(numPorts, engine, table, bw, dom, data, avb, vlan, 8000, testLogger())

	return &testRig{engine: engine, table: table, bw: bw, domain: dom, data: data, avb: avb, vlan: vlan, machine: machine}
}

func testID(n uint32) streamid.ID { return streamid.ID{Hi: 0x91e0f000, Lo: n} }
