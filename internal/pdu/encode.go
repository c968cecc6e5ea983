package pdu

import (
	"github.com/avbsrp/srpcore/internal/mrp"
)

func macToUint48(mac [6]byte) uint64 {
	var v uint64
	for _, b := range mac {
		v = v<<8 | uint64(b)
	}
	return v
}

func uint48ToMAC(v uint64) [6]byte {
	var mac [6]byte
	mac[5] = byte(v)
	mac[4] = byte(v >> 8)
	mac[3] = byte(v >> 16)
	mac[2] = byte(v >> 24)
	mac[1] = byte(v >> 32)
	mac[0] = byte(v >> 40)
	return mac
}

// TalkerVector accumulates TalkerAdvertise or TalkerFailed attributes
// into one merged vector, matching encode_talker_message /
// check_talker_firstvalue_merge.
type TalkerVector struct {
	Kind   AttributeType // AttrTalkerAdvertise or AttrTalkerFailed
	base   TalkerFirstValue
	events []mrp.ThreePackedEvent
	count  int
}

// NewTalkerVector starts a vector for the given Talker kind.
func NewTalkerVector(kind AttributeType) *TalkerVector {
	return &TalkerVector{Kind: kind}
}

// TryAppend attempts to merge fv into the open vector, per spec.md §4.6's
// Talker merge rule: the header type must match the attribute's kind,
// and the reconstructed DestMAC/StreamID/VLAN/MaxFrameSize (StreamID and
// DestMAC via base+offset, VLAN and MaxFrameSize by direct equality)
// must equal fv's values. Returns false without mutating v when the
// attribute does not merge; the caller must flush v and start a new
// vector.
func (v *TalkerVector) TryAppend(fv TalkerFirstValue, event mrp.ThreePackedEvent) bool {
	if v.count == 0 {
		v.base = fv
		v.events = append(v.events, event)
		v.count = 1
		return true
	}
	expectedStreamID := v.base.StreamID.Add(uint32(v.count))
	expectedMAC := uint48ToMAC(macToUint48(v.base.DestMacAddr) + uint64(v.count))
	if fv.StreamID != expectedStreamID {
		return false
	}
	if fv.DestMacAddr != expectedMAC {
		return false
	}
	if fv.VlanID != v.base.VlanID {
		return false
	}
	if fv.TSpecMaxFrameSize != v.base.TSpecMaxFrameSize {
		return false
	}
	v.events = append(v.events, event)
	v.count++
	return true
}

// Encode serializes the accumulated vector to wire bytes.
func (v *TalkerVector) Encode() []byte {
	hdr := MsgHeader{AttributeType: v.Kind}
	vh := VectorHeader{NumberOfValuesLow: uint16(v.count)}
	fv := v.base
	fv.Failed = v.Kind == AttrTalkerFailed
	out := append([]byte{}, hdr.encode()...)
	out = append(out, vh.encode()...)
	out = append(out, fv.Encode()...)
	out = append(out, mrp.PackThreeEvents(v.events)...)
	return out
}

// ListenerVector accumulates Listener attributes into one merged
// vector, matching encode_listener_message / check_listener_firstvalue_merge.
type ListenerVector struct {
	base        ListenerFirstValue
	threeEvents []mrp.ThreePackedEvent
	fourEvents  []mrp.FourPackedEvent
	count       int
}

func NewListenerVector() *ListenerVector {
	return &ListenerVector{}
}

// TryAppend attempts to merge fv into the open vector: per spec.md §4.6,
// Listener merges iff StreamID+index matches.
func (v *ListenerVector) TryAppend(fv ListenerFirstValue, three mrp.ThreePackedEvent, four mrp.FourPackedEvent) bool {
	if v.count == 0 {
		v.base = fv
		v.threeEvents = append(v.threeEvents, three)
		v.fourEvents = append(v.fourEvents, four)
		v.count = 1
		return true
	}
	if fv.StreamID != v.base.StreamID.Add(uint32(v.count)) {
		return false
	}
	v.threeEvents = append(v.threeEvents, three)
	v.fourEvents = append(v.fourEvents, four)
	v.count++
	return true
}

func (v *ListenerVector) Encode() []byte {
	hdr := MsgHeader{AttributeType: AttrListener}
	vh := VectorHeader{NumberOfValuesLow: uint16(v.count)}
	out := append([]byte{}, hdr.encode()...)
	out = append(out, vh.encode()...)
	out = append(out, v.base.Encode()...)
	out = append(out, mrp.PackThreeEvents(v.threeEvents)...)
	out = append(out, mrp.PackFourEvents(v.fourEvents)...)
	return out
}

// DomainVector never merges (spec.md §4.6): each Domain attribute gets
// its own vector.
type DomainVector struct {
	fv    DomainFirstValue
	event mrp.ThreePackedEvent
	count int
}

func NewDomainVector() *DomainVector {
	return &DomainVector{}
}

// TryAppend always fails once a value is already present, implementing
// "Domain: never merges".
func (v *DomainVector) TryAppend(fv DomainFirstValue, event mrp.ThreePackedEvent) bool {
	if v.count != 0 {
		return false
	}
	v.fv = fv
	v.event = event
	v.count = 1
	return true
}

func (v *DomainVector) Encode() []byte {
	hdr := MsgHeader{AttributeType: AttrDomain}
	vh := VectorHeader{NumberOfValuesLow: uint16(v.count)}
	out := append([]byte{}, hdr.encode()...)
	out = append(out, vh.encode()...)
	out = append(out, v.fv.Encode()...)
	out = append(out, mrp.PackThreeEvents([]mrp.ThreePackedEvent{v.event})...)
	return out
}
