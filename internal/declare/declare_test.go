package declare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avbsrp/srpcore/internal/hostapi"
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/pdu"
	"github.com/avbsrp/srpcore/internal/reservation"
)

// TestEndpointTalkerThenRemoteListenerEnablesSource is spec.md §8's E1:
// an endpoint advertises a Talker, then a remote Listener attribute
// arrives on the wire; the source transitions POTENTIAL -> ENABLED and
// the port's bandwidth exactly matches the accounting formula.
func TestEndpointTalkerThenRemoteListenerEnablesSource(t *testing.T) {
	rig := newTestRig(1)
	id := testID(1)
	rig.avb.addSource(0, id)
	rig.domain.DomainJoinInd(0, rig.avb)

	vlan, err := rig.machine.AdvertiseTalker(reservation.Info{
		StreamID:          id,
		TSpec:             3 << 5,
		TSpecMaxFrameSize: 200,
		TSpecMaxInterval:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(2), vlan)

	err = rig.machine.ProcessIncomingListener(pdu.DecodedListener{StreamID: id, ThreeEvent: mrp.EventJoinIn}, 0)
	require.NoError(t, err)

	assert.Equal(t, hostapi.SourceEnabled, rig.avb.GetSourceState(0))
	// avb_srp_listener_join_ind accounts a single-port delivery with
	// extra=0 (avb_srp.c:495/540); only bridge-relay propagation
	// (avb_srp_map_join) uses extra=1. Matches spec.md §8 E1 exactly.
	assert.Equal(t, int64(15_488_000), rig.bw.PortBandwidth(0))
}

// TestEndpointListenerBeforeTalker is spec.md §8's E2: a Listener joins
// before any Talker exists; no bandwidth is reserved and the source
// stays unreachable until a Talker arrives.
func TestEndpointListenerBeforeTalker(t *testing.T) {
	rig := newTestRig(1)
	id := testID(1)
	rig.avb.addSource(0, id)

	err := rig.machine.JoinListener(id, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rig.bw.PortBandwidth(0))

	err = rig.machine.ProcessIncomingTalker(pdu.DecodedTalker{
		StreamID: id, TSpec: 3 << 5, TSpecMaxFrameSize: 200, TSpecMaxIntervalFrames: 1, Kind: pdu.AttrTalkerAdvertise,
	}, 0)
	require.NoError(t, err)

	rig.domain.DomainJoinInd(0, rig.avb)
	err = rig.machine.ProcessIncomingListener(pdu.DecodedListener{StreamID: id, ThreeEvent: mrp.EventJoinIn}, 0)
	require.NoError(t, err)
	assert.Equal(t, hostapi.SourceEnabled, rig.avb.GetSourceState(0))
}

// TestBoundaryPortForcesAskingFailed is spec.md §8's E3: while a port
// remains at the SR domain boundary, the Listener's four-packed event
// stays Asking Failed and the source never reaches ENABLED, even though
// bandwidth accounting still proceeds (the four-packed event is a wire
// concern layered on top of bandwidth reservation, not a gate on it).
func TestBoundaryPortForcesAskingFailed(t *testing.T) {
	rig := newTestRig(1)
	id := testID(1)
	rig.avb.addSource(0, id)
	// No DomainJoinInd: port 0 remains at the boundary.

	_, err := rig.machine.AdvertiseTalker(reservation.Info{StreamID: id, TSpec: 3 << 5, TSpecMaxFrameSize: 200, TSpecMaxInterval: 1})
	require.NoError(t, err)

	err = rig.machine.ProcessIncomingListener(pdu.DecodedListener{StreamID: id, ThreeEvent: mrp.EventJoinIn}, 0)
	require.NoError(t, err)

	assert.Equal(t, hostapi.SourcePotential, rig.avb.GetSourceState(0))

	h, ok := rig.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 0)
	require.True(t, ok)
	entry := rig.table.Entry(rig.engine.Attr(h).StreamEntryIndex)
	assert.Equal(t, mrp.EventAskingFailed, ListenerFourPackedEvent(entry, rig.domain.BoundaryPort(0)))
}

// TestWrongSRClassPriorityFailsReservation is spec.md §8's E4: a Talker
// advertisement carrying a non-default SR class priority marks the slot
// reservation_failed and leaves the attribute's declared kind untouched.
func TestWrongSRClassPriorityFailsReservation(t *testing.T) {
	rig := newTestRig(1)
	id := testID(1)

	err := rig.machine.ProcessIncomingTalker(pdu.DecodedTalker{
		StreamID: id, TSpec: 7 << 5, TSpecMaxFrameSize: 200, TSpecMaxIntervalFrames: 1, Kind: pdu.AttrTalkerAdvertise,
	}, 0)
	require.NoError(t, err)

	h, ok := rig.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, 0)
	require.True(t, ok)
	entry := rig.table.Entry(rig.engine.Attr(h).StreamEntryIndex)
	assert.True(t, entry.ReservationFailed)
	assert.False(t, entry.TalkerPresent, "a rejected SR class priority must not populate the reservation")
}

// TestBridgePropagatesTalkerToOppositePort is spec.md §8's E5: a Talker
// arriving on port 0 of a bridge gets mirrored onto port 1 as a
// propagated, non-here attribute.
func TestBridgePropagatesTalkerToOppositePort(t *testing.T) {
	rig := newTestRig(2)
	id := testID(1)

	err := rig.machine.ProcessIncomingTalker(pdu.DecodedTalker{
		StreamID: id, TSpec: 3 << 5, TSpecMaxFrameSize: 200, TSpecMaxIntervalFrames: 1, Kind: pdu.AttrTalkerAdvertise,
	}, 0)
	require.NoError(t, err)

	mirror, ok := rig.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, 1)
	require.False(t, ok, "the mirrored attribute is propagated, not non-propagated")

	h, ok := rig.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, 0)
	require.True(t, ok)
	peer, ok := rig.engine.MatchAttrByStreamAndType(h, false, -1)
	require.True(t, ok)
	peerAttr := rig.engine.Attr(peer)
	assert.Equal(t, 1, peerAttr.Port)
	assert.True(t, peerAttr.Propagated)
	assert.False(t, peerAttr.Here)
	_ = mirror
}

// TestBridgeListenerLeaveWithPeerStillListeningClearsHereOnly is spec.md
// §8's E6: in bridge mode, when a Listener leaves on one port but the
// opposite port is still listening, the leaving side's attribute has
// `here` cleared instead of being removed, so propagation is not
// suppressed for a later, genuine leave.
func TestBridgeListenerLeaveWithPeerStillListeningClearsHereOnly(t *testing.T) {
	rig := newTestRig(2)
	id := testID(1)

	// In bridge mode, one JoinListener call registers a local, here=true
	// Listener attribute on every port (no Talker exists yet on either
	// port to join against).
	require.NoError(t, rig.machine.JoinListener(id, 0))
	_, ok := rig.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 0)
	require.True(t, ok)
	_, ok = rig.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 1)
	require.True(t, ok)

	rig.machine.LeaveListener(id)

	h0after, ok := rig.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 0)
	require.True(t, ok, "attribute must still exist, only `here` cleared")
	assert.False(t, rig.engine.Attr(h0after).Here)
}

func TestHostopsAdvertiseTalkerPreallocatesListenerStubInEndpointMode(t *testing.T) {
	rig := newTestRig(1)
	id := testID(1)

	_, err := rig.machine.AdvertiseTalker(reservation.Info{StreamID: id, TSpecMaxFrameSize: 100})
	require.NoError(t, err)

	h, ok := rig.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 0)
	require.True(t, ok)
	assert.False(t, rig.engine.Attr(h).Here)
}

func TestHostopsLeaveListenerEndpointMarksTalkerStubForRemoveAfterNextTx(t *testing.T) {
	rig := newTestRig(1)
	id := testID(1)

	_, err := rig.machine.AdvertiseTalker(reservation.Info{StreamID: id, TSpecMaxFrameSize: 100})
	require.NoError(t, err)
	require.NoError(t, rig.machine.JoinListener(id, 0))

	rig.machine.LeaveListener(id)

	h, ok := rig.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, 0)
	require.True(t, ok)
	a := rig.engine.Attr(h)
	assert.False(t, a.Here)
	assert.True(t, a.RemoveAfterNextTx)
}

func TestCleanupAttributeFreesSlotOnceNoMatchingAttributeRemains(t *testing.T) {
	rig := newTestRig(1)
	id := testID(1)

	_, err := rig.machine.AdvertiseTalker(reservation.Info{StreamID: id, TSpecMaxFrameSize: 100})
	require.NoError(t, err)
	h, ok := rig.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, 0)
	require.True(t, ok)

	// Leave the only other attribute referencing this stream (the
	// pre-allocated Listener stub) so cleanup can tear the slot down.
	stub, ok := rig.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 0)
	require.True(t, ok)
	rig.engine.ChangeApplicantState(stub, mrp.Unused)
	rig.engine.Free(stub)

	rig.engine.MadLeave(h)
	unused := rig.machine.CleanupAttribute(h)
	assert.True(t, unused)

	match, err := rig.table.MatchByID(id)
	require.NoError(t, err)
	assert.False(t, match.Existing, "slot must be torn down once nothing references the stream")
}

func TestCompareTalkersOrdersByStreamEntryIndex(t *testing.T) {
	rig := newTestRig(1)
	idA, idB := testID(1), testID(2)

	_, err := rig.machine.AdvertiseTalker(reservation.Info{StreamID: idA})
	require.NoError(t, err)
	_, err = rig.machine.AdvertiseTalker(reservation.Info{StreamID: idB})
	require.NoError(t, err)

	ha, _ := rig.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, idA, 0)
	hb, _ := rig.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, idB, 0)

	assert.True(t, rig.machine.CompareTalkers(ha, hb))
	assert.False(t, rig.machine.CompareTalkers(hb, ha))
}

func TestCompareListenersOrdersByStreamID(t *testing.T) {
	rig := newTestRig(1)
	idLow, idHigh := testID(1), testID(2)

	require.NoError(t, rig.machine.JoinListener(idHigh, 0))
	require.NoError(t, rig.machine.JoinListener(idLow, 0))

	hHigh, _ := rig.engine.MatchTypeNonPropAttribute(mrp.Listener, idHigh, 0)
	hLow, _ := rig.engine.MatchTypeNonPropAttribute(mrp.Listener, idLow, 0)

	assert.True(t, rig.machine.CompareListeners(hLow, hHigh))
	assert.False(t, rig.machine.CompareListeners(hHigh, hLow))
}
