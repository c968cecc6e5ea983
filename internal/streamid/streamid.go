// Package streamid defines the 64-bit StreamID carried by every Talker and
// Listener declaration, plus the byte-level helpers used to move it between
// wire format and the reservation table.
//
// Grounded on avb_srp.c's stream_id[2] representation (a pair of 32-bit
// halves with high half first) and the StreamId[8] wire field described in
// spec.md §6.
package streamid

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// ID is a StreamID: the Talker's 48-bit MAC concatenated with a 16-bit
// unique id, carried internally as two 32-bit halves exactly as
// avb_srp.c's stream_id[2] does. The zero value means "empty slot"
// (spec.md §3, invariant 1).
type ID struct {
	Hi uint32
	Lo uint32
}

// Zero is the sentinel empty-slot StreamID.
var Zero = ID{}

// IsZero reports whether id is the empty-slot sentinel.
func (id ID) IsZero() bool {
	return id.Hi == 0 && id.Lo == 0
}

// Less orders two StreamIDs by high half then low half, matching
// avb_srp_compare_listener_attributes.
func (id ID) Less(other ID) bool {
	if id.Hi != other.Hi {
		return id.Hi < other.Hi
	}
	return id.Lo < other.Lo
}

// FromBytes reconstructs a StreamID from its 8-byte big-endian wire
// representation, as read by avb_srp_match_talker_advertise /
// avb_srp_process_new_attribute_from_packet (the `for i:=0;i<8;i++` loop
// there is exactly a big-endian decode).
func FromBytes(b [8]byte) ID {
	return ID{
		Hi: binary.BigEndian.Uint32(b[0:4]),
		Lo: binary.BigEndian.Uint32(b[4:8]),
	}
}

// Bytes encodes the StreamID into its 8-byte big-endian wire representation.
// The encoder byte-reverses each half before writing (avb_srp.c's
// `streamid = byterev(attribute_info->stream_id[0])`); BigEndian.PutUint32
// performs the equivalent transform from a native uint32.
func (id ID) Bytes() [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint32(b[0:4], id.Hi)
	binary.BigEndian.PutUint32(b[4:8], id.Lo)
	return b
}

// Add returns id with offset added as an unsigned 64-bit integer, used by
// the PDU codec's first-value base+offset reconstruction (spec.md §4.6):
// the wire carries one base StreamID per vector, and the i-th attribute's
// real StreamID is base+i.
func (id ID) Add(offset uint32) ID {
	combined := (uint64(id.Hi) << 32) | uint64(id.Lo)
	combined += uint64(offset)
	return ID{Hi: uint32(combined >> 32), Lo: uint32(combined)}
}

// FromMAC builds a canonical local StreamID from a Talker's 48-bit MAC
// address and a 16-bit unique id, matching spec.md §3's "Talker's MAC (48
// bits) concatenated with a 16-bit unique id".
func FromMAC(mac [6]byte, uniqueID uint16) ID {
	hi := uint32(mac[0])<<24 | uint32(mac[1])<<16 | uint32(mac[2])<<8 | uint32(mac[3])
	lo := uint32(mac[4])<<24 | uint32(mac[5])<<16 | uint32(uniqueID)
	return ID{Hi: hi, Lo: lo}
}

// NewLocalUniqueID mints a 16-bit unique id for FromMAC from a fresh
// UUIDv4's low bits, following the domain-stack wiring documented in
// SPEC_FULL.md §B — a concrete, already-idiomatic source of local
// uniqueness for host-initiated Talker advertisements that don't supply
// their own counter.
func NewLocalUniqueID() uint16 {
	u := uuid.New()
	return binary.BigEndian.Uint16(u[14:16])
}
