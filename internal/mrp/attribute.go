// Package mrp models the MRP (Multiple Registration Protocol) attribute
// registration substrate that the SRP core sits on top of. Per spec.md
// §1/§6, the MRP timer/state-machine engine itself (applicant/registrar
// state variables, LeaveAll/periodic timers, PDU transport) is an
// external collaborator, out of scope here. This package defines:
//
//   - the AttributeState record SRP attaches its declarations to
//     (spec.md §3, "MRP AttributeState"),
//   - the Engine collaborator interface listing exactly the calls
//     spec.md §6 says the SRP core invokes on the MRP engine, and
//   - a reference in-memory Engine implementation (Registry) so the
//     Declaration State Machine is independently testable without a
//     real timer-driven substrate.
//
// Grounded on the teacher's pattern of a small interface plus one
// concrete implementing type (src/agwpe.go's AGWPEMessage) and on
// avb_srp.c's direct calls to mrp_get_attr / mrp_attribute_init /
// mrp_mad_begin / mrp_mad_join / mrp_mad_leave /
// mrp_change_applicant_state / mrp_match_attribute_pair_by_stream_id /
// mrp_match_attr_by_stream_and_type / mrp_match_type_non_prop_attribute.
package mrp

import "github.com/avbsrp/srpcore/internal/streamid"

// AttributeType tags the four kinds of SRP attribute (Design Notes §9:
// "replace the integer attribute_type with a tagged variant").
type AttributeType int

const (
	TalkerAdvertise AttributeType = iota + 1
	TalkerFailed
	Listener
	DomainVector
)

func (t AttributeType) String() string {
	switch t {
	case TalkerAdvertise:
		return "TalkerAdvertise"
	case TalkerFailed:
		return "TalkerFailed"
	case Listener:
		return "Listener"
	case DomainVector:
		return "DomainVector"
	default:
		return "Unknown"
	}
}

// ApplicantState is the small subset of MRP's applicant state machine
// this core reads (MRP_UNUSED vs. anything else); the full applicant
// state machine lives in the external MRP engine.
type ApplicantState int

const (
	Active ApplicantState = iota
	Unused
)

// Handle identifies an attribute within a Registry. Zero is never a
// valid handle (Design Notes §9: "slot zero is reserved as none"),
// mirroring the reservation table's zero-StreamID sentinel.
type Handle int

// AttributeState is the per-attribute record SRP reads and mutates,
// cross-referencing a stream entry by small integer index rather than a
// raw pointer (Design Notes §9, "arena+index" to avoid cyclic
// references).
type AttributeState struct {
	Type              AttributeType
	Port              int
	Here              bool // true iff the declaration originated at this endpoint
	Propagated        bool // true iff created by bridge-propagation as a mirror
	ApplicantState    ApplicantState
	StreamID          streamid.ID // zero for the Domain attribute
	StreamEntryIndex  int         // index into the reservation table; -1 for the Domain attribute
	RemoveAfterNextTx bool        // SPEC_FULL.md §C.3
}

// Engine lists the MRP collaborator calls spec.md §6 says the SRP core
// invokes. A production deployment supplies a concrete Engine backed by
// the real timer-driven applicant/registrar substrate; Registry below is
// a reference implementation sufficient for this module's own tests.
type Engine interface {
	// GetAttr allocates a fresh attribute slot.
	GetAttr() Handle
	// AttributeInit initializes a previously-allocated attribute.
	AttributeInit(h Handle, t AttributeType, port int, here bool, id streamid.ID, streamEntryIndex int)
	// MadBegin starts the applicant state machine for h.
	MadBegin(h Handle)
	// MadJoin issues a Join (new indicates New vs. JoinIn semantics).
	MadJoin(h Handle, new bool)
	// MadLeave issues a Leave.
	MadLeave(h Handle)
	// ChangeApplicantState forces h's applicant state, bypassing the
	// normal event-driven transition (used by the "kill stub Listener"
	// and cleanup paths).
	ChangeApplicantState(h Handle, s ApplicantState)

	// MatchAttributePairByStreamID implements pair(): the peer
	// attribute of the *opposite* declaration kind (Talker<->Listener)
	// for the same StreamID as h, optionally constrained to the same
	// port (sameport=true) or the opposite port (sameport=false), and
	// optionally requiring Propagated==propagated (propagated -1 means
	// "don't care", 0 means false, 1 means true).
	MatchAttributePairByStreamID(h Handle, sameport bool, propagated int) (Handle, bool)
	// MatchAttrByStreamAndType implements same_kind(): the peer
	// attribute of the *same* declaration kind on the port selected by
	// sameport, with the propagated constraint as above.
	MatchAttrByStreamAndType(h Handle, sameport bool, propagated int) (Handle, bool)
	// MatchTypeNonPropAttribute implements by_type_non_prop(): a
	// non-propagated attribute of type t for id on the given port, or
	// any port if port < 0.
	MatchTypeNonPropAttribute(t AttributeType, id streamid.ID, port int) (Handle, bool)

	// Attr returns the current state of h for read access. Panics if h
	// is not a live handle.
	Attr(h Handle) *AttributeState

	// EncodeThreePackedEvent returns h's current applicant-state event
	// for the three-packed event stream being built for a vector. Which
	// of the six events applies is the MRP engine's own concern
	// (spec.md §1); the SRP core only requests the encode.
	EncodeThreePackedEvent(h Handle) ThreePackedEvent
}
