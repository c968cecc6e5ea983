package pdu

import "github.com/avbsrp/srpcore/internal/streamid"

// TalkerFirstValue is the Talker (Advertise/Failed) first-value layout
// from spec.md §6:
//
//	StreamId[8] DestMacAddr[6] VlanID[2] TSpecMaxFrameSize[2]
//	TSpecMaxIntervalFrames[2] TSpec[1] reserved[1] AccumulatedLatency[4]
const TalkerFirstValueLen = 8 + 6 + 2 + 2 + 2 + 1 + 1 + 4 // 26

// TalkerFailedFirstValue appends FailureBridgeId[8] FailureCode[1] to
// TalkerFirstValue.
const TalkerFailedExtraLen = 8 + 1 // 9

type TalkerFirstValue struct {
	StreamID               streamid.ID
	DestMacAddr            [6]byte
	VlanID                 uint16
	TSpecMaxFrameSize      uint16
	TSpecMaxIntervalFrames uint16
	TSpec                  uint8
	AccumulatedLatency     uint32

	// Failed is true when this first value additionally carries
	// FailureBridgeId/FailureCode (spec.md §6, "plus for TalkerFailed").
	Failed          bool
	FailureBridgeID uint64
	FailureCode     uint8
}

func (v TalkerFirstValue) Len() int {
	if v.Failed {
		return TalkerFirstValueLen + TalkerFailedExtraLen
	}
	return TalkerFirstValueLen
}

func (v TalkerFirstValue) Encode() []byte {
	buf := make([]byte, v.Len())
	sid := v.StreamID.Bytes()
	copy(buf[0:8], sid[:])
	copy(buf[8:14], v.DestMacAddr[:])
	putBE16(buf[14:16], v.VlanID)
	putBE16(buf[16:18], v.TSpecMaxFrameSize)
	putBE16(buf[18:20], v.TSpecMaxIntervalFrames)
	buf[20] = v.TSpec
	// buf[21] reserved
	putBE32(buf[22:26], v.AccumulatedLatency)
	if v.Failed {
		failBuf := make([]byte, 8)
		putBE32(failBuf[0:4], uint32(v.FailureBridgeID>>32))
		putBE32(failBuf[4:8], uint32(v.FailureBridgeID))
		copy(buf[26:34], failBuf)
		buf[34] = v.FailureCode
	}
	return buf
}

// DecodeTalkerFirstValue reads a TalkerFirstValue from buf. failed
// selects whether the trailing FailureBridgeId/FailureCode fields are
// present.
func DecodeTalkerFirstValue(buf []byte, failed bool) (TalkerFirstValue, bool) {
	need := TalkerFirstValueLen
	if failed {
		need += TalkerFailedExtraLen
	}
	if len(buf) < need {
		return TalkerFirstValue{}, false
	}
	var sidBytes [8]byte
	copy(sidBytes[:], buf[0:8])
	v := TalkerFirstValue{
		StreamID:               streamid.FromBytes(sidBytes),
		VlanID:                 be16(buf[14:16]),
		TSpecMaxFrameSize:      be16(buf[16:18]),
		TSpecMaxIntervalFrames: be16(buf[18:20]),
		TSpec:                  buf[20],
		AccumulatedLatency:     be32(buf[22:26]),
		Failed:                 failed,
	}
	copy(v.DestMacAddr[:], buf[8:14])
	if failed {
		v.FailureBridgeID = uint64(be32(buf[26:30]))<<32 | uint64(be32(buf[30:34]))
		v.FailureCode = buf[34]
	}
	return v, true
}

// ListenerFirstValue is the Listener first-value layout: StreamId[8].
const ListenerFirstValueLen = 8

type ListenerFirstValue struct {
	StreamID streamid.ID
}

func (v ListenerFirstValue) Encode() []byte {
	b := v.StreamID.Bytes()
	return b[:]
}

func DecodeListenerFirstValue(buf []byte) (ListenerFirstValue, bool) {
	if len(buf) < ListenerFirstValueLen {
		return ListenerFirstValue{}, false
	}
	var b [8]byte
	copy(b[:], buf[0:8])
	return ListenerFirstValue{StreamID: streamid.FromBytes(b)}, true
}

// DomainFirstValue is the Domain first-value layout:
// SRclassID[1] SRclassPriority[1] SRclassVID[2].
const DomainFirstValueLen = 1 + 1 + 2

type DomainFirstValue struct {
	SRClassID       uint8
	SRClassPriority uint8
	SRClassVID      uint16
}

func (v DomainFirstValue) Encode() []byte {
	buf := make([]byte, DomainFirstValueLen)
	buf[0] = v.SRClassID
	buf[1] = v.SRClassPriority
	putBE16(buf[2:4], v.SRClassVID)
	return buf
}

func DecodeDomainFirstValue(buf []byte) (DomainFirstValue, bool) {
	if len(buf) < DomainFirstValueLen {
		return DomainFirstValue{}, false
	}
	return DomainFirstValue{
		SRClassID:       buf[0],
		SRClassPriority: buf[1],
		SRClassVID:      be16(buf[2:4]),
	}, true
}
