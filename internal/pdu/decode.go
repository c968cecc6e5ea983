package pdu

import (
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/streamid"
)

// DecodedTalker is one reconstructed TalkerAdvertise/TalkerFailed
// attribute out of a merged vector: StreamID and DestMacAddr carry the
// base+offset reconstruction (spec.md §4.6), every other field is taken
// directly from the vector's single first value. The encoder's merge
// check (TalkerVector.TryAppend) requires equal VlanID and
// TSpecMaxFrameSize but does not compare TSpec, TSpecMaxIntervalFrames
// or AccumulatedLatency, so those decode as the first attribute's values.
type DecodedTalker struct {
	Kind                   AttributeType
	StreamID               streamid.ID
	DestMacAddr            [6]byte
	VlanID                 uint16
	TSpecMaxFrameSize      uint16
	TSpecMaxIntervalFrames uint16
	TSpec                  uint8
	AccumulatedLatency     uint32
	FailureBridgeID        uint64
	FailureCode            uint8
	Event                  mrp.ThreePackedEvent
}

// DecodeTalkerVector reads one Talker vector (header already known to be
// AttrTalkerAdvertise or AttrTalkerFailed) starting at buf[0] and
// returns the expanded per-attribute list plus the number of bytes
// consumed.
func DecodeTalkerVector(buf []byte) ([]DecodedTalker, int, bool) {
	hdr, n, ok := decodeMsgHeader(buf)
	if !ok || (hdr.AttributeType != AttrTalkerAdvertise && hdr.AttributeType != AttrTalkerFailed) {
		return nil, 0, false
	}
	off := n
	vh, n, ok := decodeVectorHeader(buf[off:])
	if !ok {
		return nil, 0, false
	}
	off += n
	failed := hdr.AttributeType == AttrTalkerFailed
	fv, ok := DecodeTalkerFirstValue(buf[off:], failed)
	if !ok {
		return nil, 0, false
	}
	off += fv.Len()
	count := int(vh.NumberOfValuesLow)
	events := mrp.UnpackThreeEvents(buf[off:], count)
	off += threePackedBytes(count)

	out := make([]DecodedTalker, count)
	for i := 0; i < count; i++ {
		out[i] = DecodedTalker{
			Kind:                   hdr.AttributeType,
			StreamID:               fv.StreamID.Add(uint32(i)),
			DestMacAddr:            uint48ToMAC(macToUint48(fv.DestMacAddr) + uint64(i)),
			VlanID:                 fv.VlanID,
			TSpecMaxFrameSize:      fv.TSpecMaxFrameSize,
			TSpecMaxIntervalFrames: fv.TSpecMaxIntervalFrames,
			TSpec:                  fv.TSpec,
			AccumulatedLatency:     fv.AccumulatedLatency,
			FailureBridgeID:        fv.FailureBridgeID,
			FailureCode:            fv.FailureCode,
			Event:                  events[i],
		}
	}
	return out, off, true
}

// DecodedListener is one reconstructed Listener attribute.
type DecodedListener struct {
	StreamID   streamid.ID
	ThreeEvent mrp.ThreePackedEvent
	FourEvent  mrp.FourPackedEvent
}

func DecodeListenerVector(buf []byte) ([]DecodedListener, int, bool) {
	hdr, n, ok := decodeMsgHeader(buf)
	if !ok || hdr.AttributeType != AttrListener {
		return nil, 0, false
	}
	off := n
	vh, n, ok := decodeVectorHeader(buf[off:])
	if !ok {
		return nil, 0, false
	}
	off += n
	fv, ok := DecodeListenerFirstValue(buf[off:])
	if !ok {
		return nil, 0, false
	}
	off += ListenerFirstValueLen
	count := int(vh.NumberOfValuesLow)
	threeEvents := mrp.UnpackThreeEvents(buf[off:], count)
	off += threePackedBytes(count)
	fourEvents := mrp.UnpackFourEvents(buf[off:], count)
	off += fourPackedBytes(count)

	out := make([]DecodedListener, count)
	for i := 0; i < count; i++ {
		out[i] = DecodedListener{
			StreamID:   fv.StreamID.Add(uint32(i)),
			ThreeEvent: threeEvents[i],
			FourEvent:  fourEvents[i],
		}
	}
	return out, off, true
}

// DecodedDomain is one reconstructed Domain attribute. Per avb_srp.c the
// SRClassID and SRClassPriority fields receive the +index offset applied
// across a run while SRClassVID is read directly; in practice Domain
// vectors never merge so index is always 0.
type DecodedDomain struct {
	SRClassID       uint8
	SRClassPriority uint8
	SRClassVID      uint16
	Event           mrp.ThreePackedEvent
}

func DecodeDomainVector(buf []byte) ([]DecodedDomain, int, bool) {
	hdr, n, ok := decodeMsgHeader(buf)
	if !ok || hdr.AttributeType != AttrDomain {
		return nil, 0, false
	}
	off := n
	vh, n, ok := decodeVectorHeader(buf[off:])
	if !ok {
		return nil, 0, false
	}
	off += n
	fv, ok := DecodeDomainFirstValue(buf[off:])
	if !ok {
		return nil, 0, false
	}
	off += DomainFirstValueLen
	count := int(vh.NumberOfValuesLow)
	events := mrp.UnpackThreeEvents(buf[off:], count)
	off += threePackedBytes(count)

	out := make([]DecodedDomain, count)
	for i := 0; i < count; i++ {
		out[i] = DecodedDomain{
			SRClassID:       fv.SRClassID + uint8(i),
			SRClassPriority: fv.SRClassPriority + uint8(i),
			SRClassVID:      fv.SRClassVID,
			Event:           events[i],
		}
	}
	return out, off, true
}

func threePackedBytes(n int) int {
	return (n + 2) / 3
}

func fourPackedBytes(n int) int {
	return (n + 3) / 4
}
