// Package reservation implements the Stream Reservation Table (spec.md
// §3, §4.1): a fixed-size set of stream entries indexed by StreamID, with
// the presence flags, per-port bandwidth-reserved flags, and cached
// reservation parameters every other component reads and mutates.
//
// Grounded on avb_srp.c's stream_table[AVB_STREAM_TABLE_ENTRIES] and its
// srp_match_reservation_entry_by_id / srp_add_reservation_entry* /
// srp_remove_reservation_entry functions.
package reservation

import (
	"errors"
	"fmt"

	"github.com/avbsrp/srpcore/internal/metrics"
	"github.com/avbsrp/srpcore/internal/streamid"
)

// ErrTableFull is returned when no free slot is available to satisfy an
// upsert (spec.md §7, "Table full").
var ErrTableFull = errors.New("reservation table: no free slot")

// MAC is a 48-bit Ethernet address.
type MAC [6]byte

// Info is the cached, per-stream reservation parameters (spec.md §3).
// Immutable after first fill until the owning slot is freed, except for
// the failure fields which are updated in place on a Talker-Failed
// transition.
type Info struct {
	StreamID           streamid.ID
	DestMACAddr        MAC
	VLANID             uint16 // 12 significant bits; 0 means "use domain VLAN"
	TSpec              uint8  // SR class priority in upper 3 bits
	TSpecMaxFrameSize  uint16
	TSpecMaxInterval   uint16 // frames per observation interval
	AccumulatedLatency uint32 // ns

	FailureBridgeID uint64 // set only on Talker Failed
	FailureCode     uint8  // set only on Talker Failed
}

// SRClassPriority extracts the Stream-Reservation class priority encoded
// in TSpec's upper bits, matching avb_srp.c's
// `(first_value->TSpec >> 5) & 7`.
func (info Info) SRClassPriority() uint8 {
	return (info.TSpec >> 5) & 7
}

// MaxPorts bounds how many ports a single StreamEntry tracks bandwidth
// reservation for; SRP endpoints have either one port (host/talker-or-
// listener only) or two (bridge relay), per spec.md §6's MRP_NUM_PORTS.
const MaxPorts = 2

// Entry is one slot in the Reservation Table (spec.md §3).
type Entry struct {
	Reservation Info

	TalkerPresent     bool // a Talker declaration (Advertise or Failed) is registered
	ListenerPresent   bool // a Listener declaration is registered
	BWReserved        [MaxPorts]bool
	ReservationFailed bool // most recent decision is "Asking Failed"
}

// IsFree reports whether the slot is free, i.e. its StreamID is zero.
// Only the StreamID is inspected; the presence and bandwidth flags are
// not checked.
func (e *Entry) IsFree() bool {
	return e.Reservation.StreamID.IsZero()
}

func (e *Entry) clear() {
	*e = Entry{}
}

// MatchResult is returned by Table.MatchByID.
type MatchResult struct {
	Index int
	// Existing is true when Index refers to a slot that already holds
	// this StreamID; false means Index is the first free slot available
	// for a new allocation.
	Existing bool
}

// Table is the fixed-capacity Reservation Table (spec.md §4.1). Capacity
// must be >= max_sources + max_sinks + slack per spec.md §3 invariant 5;
// the caller (internal/srp.Context) is responsible for sizing it from
// Configuration.
type Table struct {
	entries []Entry
}

// New allocates a Table with the given fixed capacity.
func New(capacity int) *Table {
	return &Table{entries: make([]Entry, capacity)}
}

// Len returns the table's fixed capacity.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entry returns a pointer to the slot at index i. Panics on out-of-range
// index; callers only ever use indices returned by this package.
func (t *Table) Entry(i int) *Entry {
	return &t.entries[i]
}

// MatchByID performs the linear scan of srp_match_reservation_entry_by_id:
// return the slot with a matching StreamID if any, else the first free
// slot, else ErrTableFull.
func (t *Table) MatchByID(id streamid.ID) (MatchResult, error) {
	freeIndex := -1
	for i := range t.entries {
		if t.entries[i].Reservation.StreamID == id {
			return MatchResult{Index: i, Existing: true}, nil
		}
		if freeIndex == -1 && t.entries[i].IsFree() {
			freeIndex = i
		}
	}
	if freeIndex == -1 {
		return MatchResult{}, ErrTableFull
	}
	return MatchResult{Index: freeIndex, Existing: false}, nil
}

// MatchListenerToTalkerStreamID implements
// avb_srp_match_listener_to_talker_stream_id: scans for a slot carrying
// the given StreamID whose opposite-role presence flag is set (a Listener
// looking for its Talker, or vice versa), returning the cached
// reservation.
func (t *Table) MatchListenerToTalkerStreamID(id streamid.ID, isListener bool) (*Info, bool) {
	for i := range t.entries {
		e := &t.entries[i]
		var presentForRole bool
		if isListener {
			presentForRole = e.TalkerPresent
		} else {
			presentForRole = e.ListenerPresent
		}
		if presentForRole && e.Reservation.StreamID == id {
			return &e.Reservation, true
		}
	}
	return nil, false
}

// AddFull implements srp_add_reservation_entry: upsert by StreamID. On a
// slot that is not yet TalkerPresent (a free slot, or one taken by
// ClaimID or AddIDOnly), copies reservation excluding the failure fields
// (FailureBridgeID, FailureCode), matching the original's
// `reservation_size_minus_failure_info` memcpy; a TalkerPresent slot
// keeps its cached reservation unchanged. Preserves any existing
// ListenerPresent. Sets TalkerPresent.
func (t *Table) AddFull(res Info) (*Entry, error) {
	m, err := t.MatchByID(res.StreamID)
	if err != nil {
		return nil, fmt.Errorf("add talker reservation: %w", err)
	}
	if !m.Existing {
		metrics.ReservedStreams.Inc()
	}
	e := &t.entries[m.Index]
	listenerPresent := e.ListenerPresent
	if !e.TalkerPresent {
		failureBridgeID, failureCode := e.Reservation.FailureBridgeID, e.Reservation.FailureCode
		e.Reservation = res
		e.Reservation.FailureBridgeID = failureBridgeID
		e.Reservation.FailureCode = failureCode
	}
	e.ListenerPresent = listenerPresent
	e.TalkerPresent = true
	return e, nil
}

// AddIDOnly implements srp_add_reservation_entry_stream_id_only: upsert
// by StreamID; if the slot was not already TalkerPresent, zero the
// reservation body first (a Listener declaration carries no TSpec of its
// own). Sets ListenerPresent.
func (t *Table) AddIDOnly(id streamid.ID) (*Entry, error) {
	m, err := t.MatchByID(id)
	if err != nil {
		return nil, fmt.Errorf("add listener reservation: %w", err)
	}
	if !m.Existing {
		metrics.ReservedStreams.Inc()
	}
	e := &t.entries[m.Index]
	if !e.TalkerPresent {
		e.Reservation = Info{}
	}
	e.Reservation.StreamID = id
	e.ListenerPresent = true
	return e, nil
}

// ClaimID reserves a table slot for id without marking either
// TalkerPresent or ListenerPresent, mirroring the original's
// allocate-before-match ordering: avb_srp_process_new_attribute_from_packet
// always allocates the reservation entry before
// avb_srp_match_talker_advertise runs, so a rejected (wrong-SR-class)
// Talker still marks a non-zero StreamID slot rather than leaving
// reservation_failed stamped on a free (zero) slot.
func (t *Table) ClaimID(id streamid.ID) (*Entry, error) {
	m, err := t.MatchByID(id)
	if err != nil {
		return nil, fmt.Errorf("claim stream id: %w", err)
	}
	e := &t.entries[m.Index]
	if !m.Existing {
		metrics.ReservedStreams.Inc()
		e.Reservation.StreamID = id
	}
	return e, nil
}

// Remove zeros the entire slot for id. Removing a non-existent id is a
// programming-invariant violation (spec.md §7) and panics, matching the
// original's __builtin_trap().
func (t *Table) Remove(id streamid.ID) {
	for i := range t.entries {
		if t.entries[i].Reservation.StreamID == id {
			t.entries[i].clear()
			metrics.ReservedStreams.Dec()
			return
		}
	}
	panic(fmt.Sprintf("reservation table: remove of absent stream id %08x%08x", id.Hi, id.Lo))
}

// PortBandwidthContribution sums, for diagnostic/property-test use, the
// number of ports on which e currently holds bandwidth (spec.md §8
// invariant 3's precondition).
func (e *Entry) PortBandwidthContribution() int {
	n := 0
	for _, r := range e.BWReserved {
		if r {
			n++
		}
	}
	return n
}
