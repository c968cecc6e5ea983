package mrp

// ThreePackedEvent is one of the six MRP attribute events (New, JoinIn,
// In, JoinMt, Mt, Lv) packed three-to-a-byte on the wire (spec.md §4.6,
// "three-packed event"). Deciding which of the six values applies to a
// given attribute is the MRP applicant/registrar state machine's job
// (out of scope, spec.md §1); the SRP core only asks the engine to
// encode whatever the engine's own state dictates.
type ThreePackedEvent uint8

const (
	EventNew ThreePackedEvent = iota
	EventJoinIn
	EventIn
	EventJoinMt
	EventMt
	EventLv
)

// FourPackedEvent is the Listener-only readiness event packed four-to-a-
// byte (spec.md §4.6, "four-packed event"). Unlike ThreePackedEvent,
// spec.md §4.6 makes *which* value applies the SRP core's own decision
// (Ready iff talker_present && !domain_boundary_port &&
// !reservation_failed; Asking Failed otherwise) — internal/declare's
// ListenerFourPackedEvent computes the value, PackFourEvents only packs it.
type FourPackedEvent uint8

const (
	EventReady FourPackedEvent = iota
	EventReadyFailed
	EventAskingFailed
	EventIgnore
)

// PackThreeEvents packs events three-to-a-byte in base 6, matching the
// MRP three-packed-event wire encoding.
func PackThreeEvents(events []ThreePackedEvent) []byte {
	return packBase(toInts(events), 6, 3)
}

// UnpackThreeEvents is the inverse of PackThreeEvents for n events.
func UnpackThreeEvents(buf []byte, n int) []ThreePackedEvent {
	ints := unpackBase(buf, 6, 3, n)
	out := make([]ThreePackedEvent, n)
	for i, v := range ints {
		out[i] = ThreePackedEvent(v)
	}
	return out
}

// PackFourEvents packs events four-to-a-byte in base 4, matching the MRP
// four-packed-event wire encoding.
func PackFourEvents(events []FourPackedEvent) []byte {
	ints := make([]int, len(events))
	for i, e := range events {
		ints[i] = int(e)
	}
	return packBase(ints, 4, 4)
}

// UnpackFourEvents is the inverse of PackFourEvents for n events.
func UnpackFourEvents(buf []byte, n int) []FourPackedEvent {
	ints := unpackBase(buf, 4, 4, n)
	out := make([]FourPackedEvent, n)
	for i, v := range ints {
		out[i] = FourPackedEvent(v)
	}
	return out
}

func toInts(events []ThreePackedEvent) []int {
	ints := make([]int, len(events))
	for i, e := range events {
		ints[i] = int(e)
	}
	return ints
}

// packBase packs values (each < base) perByte-to-a-byte, most
// significant digit first, zero-padding the trailing partial byte.
func packBase(values []int, base, perByte int) []byte {
	numBytes := (len(values) + perByte - 1) / perByte
	out := make([]byte, numBytes)
	for b := 0; b < numBytes; b++ {
		var acc int
		for d := 0; d < perByte; d++ {
			idx := b*perByte + d
			digit := 0
			if idx < len(values) {
				digit = values[idx]
			}
			acc = acc*base + digit
		}
		out[b] = byte(acc)
	}
	return out
}

// unpackBase is the inverse of packBase for n values.
func unpackBase(buf []byte, base, perByte, n int) []int {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		byteIndex := i / perByte
		posInByte := i % perByte
		if byteIndex >= len(buf) {
			break
		}
		acc := int(buf[byteIndex])
		// Extract the (perByte-1-posInByte)-th base-N digit from the
		// MSB-first packed byte.
		shiftFromEnd := perByte - 1 - posInByte
		for s := 0; s < shiftFromEnd; s++ {
			acc /= base
		}
		out[i] = acc % base
	}
	return out
}
