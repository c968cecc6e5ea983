package mrp

import (
	"fmt"

	"github.com/avbsrp/srpcore/internal/streamid"
)

// Registry is a reference in-memory Engine implementation: a flat arena
// of AttributeState plus the matching predicates spec.md §4.4.1 says are
// "provided by the MRP engine". It does not implement MRP's timer-driven
// applicant/registrar state machine (periodic/LeaveAll timers, PDU
// transport) — those remain an external collaborator per spec.md §1; this
// type exists so the Declaration State Machine in internal/declare can be
// exercised end-to-end in tests without a full MRP substrate.
type Registry struct {
	attrs []AttributeState
	live  []bool
}

// NewRegistry constructs an empty Registry. Handle 0 is never issued
// (Design Notes §9: slot zero reserved as "none").
func NewRegistry() *Registry {
	return &Registry{
		attrs: make([]AttributeState, 1),
		live:  make([]bool, 1),
	}
}

func (r *Registry) GetAttr() Handle {
	for i := 1; i < len(r.live); i++ {
		if !r.live[i] {
			r.live[i] = true
			r.attrs[i] = AttributeState{}
			return Handle(i)
		}
	}
	r.attrs = append(r.attrs, AttributeState{})
	r.live = append(r.live, true)
	return Handle(len(r.attrs) - 1)
}

func (r *Registry) AttributeInit(h Handle, t AttributeType, port int, here bool, id streamid.ID, streamEntryIndex int) {
	a := r.mustAttr(h)
	a.Type = t
	a.Port = port
	a.Here = here
	a.StreamID = id
	a.StreamEntryIndex = streamEntryIndex
	a.Propagated = false
	a.ApplicantState = Active
	a.RemoveAfterNextTx = false
}

func (r *Registry) MadBegin(h Handle) {
	r.mustAttr(h).ApplicantState = Active
}

func (r *Registry) MadJoin(h Handle, new bool) {
	r.mustAttr(h).ApplicantState = Active
}

func (r *Registry) MadLeave(h Handle) {
	r.mustAttr(h).ApplicantState = Unused
}

func (r *Registry) ChangeApplicantState(h Handle, s ApplicantState) {
	r.mustAttr(h).ApplicantState = s
}

func (r *Registry) Attr(h Handle) *AttributeState {
	return r.mustAttr(h)
}

// EncodeThreePackedEvent derives the wire event for h's current
// applicant state. This reference engine only tracks Active/Unused
// (spec.md §1 places the full six-state applicant machine out of
// scope), so it reports the two states this module can observe:
// JoinIn while active, Lv once the attribute has gone Unused.
func (r *Registry) EncodeThreePackedEvent(h Handle) ThreePackedEvent {
	if r.mustAttr(h).ApplicantState == Unused {
		return EventLv
	}
	return EventJoinIn
}

// LiveHandles returns every currently allocated attribute handle, in
// arena order. Used by the top-level wiring (internal/srp) to drive the
// per-tick cleanup sweep and the outgoing-PDU encode pass over whatever
// attributes are presently registered; not part of the Engine interface
// because a real timer-driven MRP engine owns that iteration itself.
func (r *Registry) LiveHandles() []Handle {
	var out []Handle
	for i := 1; i < len(r.live); i++ {
		if r.live[i] {
			out = append(out, Handle(i))
		}
	}
	return out
}

// Free returns h's slot to the free list, mirroring the MRP engine
// reclaiming an attribute once srp_cleanup_reservation_entry reports
// MRP_UNUSED.
func (r *Registry) Free(h Handle) {
	if int(h) <= 0 || int(h) >= len(r.live) {
		return
	}
	r.live[h] = false
	r.attrs[h] = AttributeState{}
}

func (r *Registry) mustAttr(h Handle) *AttributeState {
	if int(h) <= 0 || int(h) >= len(r.live) || !r.live[h] {
		panic(fmt.Sprintf("mrp: use of invalid attribute handle %d", h))
	}
	return &r.attrs[h]
}

// MatchAttributePairByStreamID implements pair(): the peer attribute of
// the opposite declaration kind for the same StreamID.
func (r *Registry) MatchAttributePairByStreamID(h Handle, sameport bool, propagated int) (Handle, bool) {
	self := r.mustAttr(h)
	return r.find(h, func(a *AttributeState) bool {
		if self.Type == Listener {
			return anyTalkerKind(a.Type)
		}
		if anyTalkerKind(self.Type) {
			return a.Type == Listener
		}
		return false
	}, sameport, propagated)
}

// MatchAttrByStreamAndType implements same_kind(): the peer attribute of
// the same declaration kind on the selected port.
func (r *Registry) MatchAttrByStreamAndType(h Handle, sameport bool, propagated int) (Handle, bool) {
	self := r.mustAttr(h)
	return r.find(h, func(a *AttributeState) bool {
		return a.Type == self.Type
	}, sameport, propagated)
}

func (r *Registry) find(h Handle, kindMatch func(*AttributeState) bool, sameport bool, propagated int) (Handle, bool) {
	self := r.mustAttr(h)
	for i := 1; i < len(r.attrs); i++ {
		if !r.live[i] || i == int(h) {
			continue
		}
		a := &r.attrs[i]
		if a.StreamID != self.StreamID {
			continue
		}
		if !kindMatch(a) {
			continue
		}
		if sameport && a.Port != self.Port {
			continue
		}
		if !sameport && a.Port == self.Port {
			continue
		}
		if propagated == 0 && a.Propagated {
			continue
		}
		if propagated == 1 && !a.Propagated {
			continue
		}
		return Handle(i), true
	}
	return 0, false
}

// MatchTypeNonPropAttribute implements by_type_non_prop(): a
// non-propagated attribute of type t for id on the given port, or any
// port when port < 0.
func (r *Registry) MatchTypeNonPropAttribute(t AttributeType, id streamid.ID, port int) (Handle, bool) {
	for i := 1; i < len(r.attrs); i++ {
		if !r.live[i] {
			continue
		}
		a := &r.attrs[i]
		if a.Type != t || a.Propagated || a.StreamID != id {
			continue
		}
		if port >= 0 && a.Port != port {
			continue
		}
		return Handle(i), true
	}
	return 0, false
}

// anyTalkerKind reports whether t is either Talker variant; pair()
// matching must treat TalkerAdvertise and TalkerFailed as the same
// "Talker" kind when pairing against a Listener, matching avb_srp.c's
// mrp_match_attribute_pair_by_stream_id which does not distinguish them.
func anyTalkerKind(t AttributeType) bool {
	return t == TalkerAdvertise || t == TalkerFailed
}
