package pdu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/streamid"
)

func sid(n uint32) streamid.ID { return streamid.ID{Hi: 0xaabbccdd, Lo: n} }

func mac(n byte) [6]byte { return [6]byte{0x91, 0xe0, 0xf0, 0x00, 0x00, n} }

// TestTalkerVectorMergesConsecutiveAttributes matches spec.md §8's E7
// scenario (restated for Talkers): attributes whose base+offset
// reconstruction matches the running vector merge into one vector.
func TestTalkerVectorMergesConsecutiveAttributes(t *testing.T) {
	v := NewTalkerVector(AttrTalkerAdvertise)
	fv1 := TalkerFirstValue{StreamID: sid(1), DestMacAddr: mac(1), VlanID: 2, TSpecMaxFrameSize: 200}
	fv2 := TalkerFirstValue{StreamID: sid(2), DestMacAddr: mac(2), VlanID: 2, TSpecMaxFrameSize: 200}

	require.True(t, v.TryAppend(fv1, mrp.EventJoinIn))
	require.True(t, v.TryAppend(fv2, mrp.EventJoinIn))

	encoded := v.Encode()
	talkers, n, ok := DecodeTalkerVector(encoded)
	require.True(t, ok)
	assert.Equal(t, len(encoded), n)
	require.Len(t, talkers, 2)
	assert.Equal(t, sid(1), talkers[0].StreamID)
	assert.Equal(t, sid(2), talkers[1].StreamID)
	assert.Equal(t, mac(1), talkers[0].DestMacAddr)
	assert.Equal(t, mac(2), talkers[1].DestMacAddr)
}

// TestTalkerVectorRejectsNonConsecutiveMAC matches spec.md §4.6's merge
// rule: a mismatched reconstructed DestMAC must not merge.
func TestTalkerVectorRejectsNonConsecutiveMAC(t *testing.T) {
	v := NewTalkerVector(AttrTalkerAdvertise)
	fv1 := TalkerFirstValue{StreamID: sid(1), DestMacAddr: mac(1), VlanID: 2, TSpecMaxFrameSize: 200}
	fv2 := TalkerFirstValue{StreamID: sid(2), DestMacAddr: mac(9), VlanID: 2, TSpecMaxFrameSize: 200}

	require.True(t, v.TryAppend(fv1, mrp.EventJoinIn))
	assert.False(t, v.TryAppend(fv2, mrp.EventJoinIn))
}

// TestListenerVectorE7 implements spec.md §8's E7 scenario directly:
// two Listener attributes with consecutive StreamIDs merge into one
// vector with NumberOfValuesLow == 2.
func TestListenerVectorE7(t *testing.T) {
	v := NewListenerVector()
	require.True(t, v.TryAppend(ListenerFirstValue{StreamID: sid(1)}, mrp.EventJoinIn, mrp.EventReady))
	require.True(t, v.TryAppend(ListenerFirstValue{StreamID: sid(2)}, mrp.EventJoinIn, mrp.EventReady))

	encoded := v.Encode()
	vh, _, ok := decodeVectorHeader(encoded[msgHeaderLen:])
	require.True(t, ok)
	assert.Equal(t, uint16(2), vh.NumberOfValuesLow)

	listeners, _, ok := DecodeListenerVector(encoded)
	require.True(t, ok)
	require.Len(t, listeners, 2)
	assert.Equal(t, sid(1), listeners[0].StreamID)
	assert.Equal(t, sid(2), listeners[1].StreamID)
}

func TestDomainVectorNeverMerges(t *testing.T) {
	v := NewDomainVector()
	require.True(t, v.TryAppend(DomainFirstValue{SRClassID: 6, SRClassPriority: 3, SRClassVID: 2}, mrp.EventJoinIn))
	assert.False(t, v.TryAppend(DomainFirstValue{SRClassID: 6, SRClassPriority: 3, SRClassVID: 3}, mrp.EventJoinIn))
}

func TestTalkerFailedRoundTripsFailureFields(t *testing.T) {
	v := NewTalkerVector(AttrTalkerFailed)
	fv := TalkerFirstValue{
		StreamID: sid(1), DestMacAddr: mac(1), VlanID: 2, TSpecMaxFrameSize: 200,
		Failed: true, FailureBridgeID: 0x0102030405060708, FailureCode: 9,
	}
	require.True(t, v.TryAppend(fv, mrp.EventJoinIn))
	encoded := v.Encode()

	talkers, _, ok := DecodeTalkerVector(encoded)
	require.True(t, ok)
	require.Len(t, talkers, 1)
	assert.Equal(t, AttrTalkerFailed, talkers[0].Kind)
	assert.Equal(t, uint64(0x0102030405060708), talkers[0].FailureBridgeID)
	assert.Equal(t, uint8(9), talkers[0].FailureCode)
}

// TestCodecRoundTripProperty is spec.md §8 invariant 4: any sequence of
// compatible Listener attributes, encoded and decoded, reproduces the
// original StreamIDs.
func TestCodecRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.Uint32().Draw(rt, "base")
		count := rapid.IntRange(1, 32).Draw(rt, "count")

		v := NewListenerVector()
		var want []streamid.ID
		for i := 0; i < count; i++ {
			id := streamid.ID{Hi: 0x1000, Lo: base}.Add(uint32(i))
			ok := v.TryAppend(ListenerFirstValue{StreamID: id}, mrp.EventJoinIn, mrp.EventReady)
			if !ok {
				break
			}
			want = append(want, id)
		}
		listeners, _, ok := DecodeListenerVector(v.Encode())
		a := assert.New(rt)
		a.True(ok)
		if !a.Len(listeners, len(want)) {
			return
		}
		for i, w := range want {
			a.Equal(w, listeners[i].StreamID)
		}
	})
}
