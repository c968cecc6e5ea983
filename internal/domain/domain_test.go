package domain

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avbsrp/srpcore/internal/mrp"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

type fakeAVB struct {
	sourceVLAN []uint16
	sinkVLAN   []uint16
}

func (f *fakeAVB) NumSources() int             { return len(f.sourceVLAN) }
func (f *fakeAVB) NumSinks() int               { return len(f.sinkVLAN) }
func (f *fakeAVB) GetSourceVLAN(i int) uint16  { return f.sourceVLAN[i] }
func (f *fakeAVB) SetSourceVLAN(i int, v uint16) { f.sourceVLAN[i] = v }
func (f *fakeAVB) GetSinkVLAN(i int) uint16    { return f.sinkVLAN[i] }
func (f *fakeAVB) SetSinkVLAN(i int, v uint16) { f.sinkVLAN[i] = v }

func TestInitAllocatesDomainAttrAndSetsBoundary(t *testing.T) {
	engine := mrp.NewRegistry()
	h := New(2, 2, engine, testLogger())
	h.Init()

	assert.True(t, h.BoundaryPort(0))
	assert.True(t, h.BoundaryPort(1))
	assert.Equal(t, uint16(2), h.CurrentVLAN())
}

func TestOnDomainFirstValueMatchAdoptsVLANOnDefaultClass(t *testing.T) {
	engine := mrp.NewRegistry()
	h := New(1, 2, engine, testLogger())
	h.Init()

	adopted := h.OnDomainFirstValueMatch(SRClassDefault, TSpecPriorityDefault, 42)
	assert.True(t, adopted)
	assert.Equal(t, uint16(42), h.CurrentVLAN())
}

func TestOnDomainFirstValueMatchIgnoresNonDefaultClass(t *testing.T) {
	engine := mrp.NewRegistry()
	h := New(1, 2, engine, testLogger())
	h.Init()

	adopted := h.OnDomainFirstValueMatch(7, TSpecPriorityDefault, 42)
	assert.False(t, adopted)
	assert.Equal(t, uint16(2), h.CurrentVLAN())
}

func TestDomainJoinIndClearsBoundaryAndSetsZeroVLANs(t *testing.T) {
	engine := mrp.NewRegistry()
	h := New(1, 2, engine, testLogger())
	h.Init()

	avb := &fakeAVB{sourceVLAN: []uint16{0, 5}, sinkVLAN: []uint16{0}}
	h.DomainJoinInd(0, avb)

	assert.False(t, h.BoundaryPort(0))
	assert.Equal(t, uint16(2), avb.sourceVLAN[0])
	assert.Equal(t, uint16(5), avb.sourceVLAN[1], "non-zero VLAN must not be overwritten")
	assert.Equal(t, uint16(2), avb.sinkVLAN[0])
}

func TestDomainLeaveIndSetsBoundary(t *testing.T) {
	engine := mrp.NewRegistry()
	h := New(1, 2, engine, testLogger())
	h.Init()
	h.DomainJoinInd(0, &fakeAVB{})
	require.False(t, h.BoundaryPort(0))

	h.DomainLeaveInd(0)
	assert.True(t, h.BoundaryPort(0))
}
