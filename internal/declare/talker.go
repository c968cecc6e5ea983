package declare

import (
	"github.com/avbsrp/srpcore/internal/metrics"
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/pdu"
	"github.com/avbsrp/srpcore/internal/reservation"
)

// MatchTalkerAdvertise implements match_talker_advertise (spec.md
// §4.4.2): h is a non-propagated Talker attribute already known to
// carry dt.StreamID (found or freshly allocated by ProcessIncomingTalker
// below). Decodes TSpec; on wrong SR class priority, marks the slot
// reservation_failed and stops short of updating the attribute kind or
// reservation body. Otherwise records TalkerFailed/TalkerAdvertise and,
// the first time this slot becomes talker_present, fills in the cached
// reservation fields.
func (m *Machine) MatchTalkerAdvertise(h mrp.Handle, dt pdu.DecodedTalker) error {
	a := m.engine.Attr(h)
	// Claim the slot before inspecting the SR class priority: the original
	// allocates the reservation entry before the match runs, so a rejected
	// Talker always marks a non-zero (already-claimed) slot rather than a
	// free one (spec.md §8 invariant 1).
	if _, err := m.table.ClaimID(dt.StreamID); err != nil {
		return err
	}
	match, err := m.table.MatchByID(dt.StreamID)
	if err != nil {
		return err
	}
	a.StreamEntryIndex = match.Index
	entry := m.table.Entry(match.Index)

	srClassPriority := (dt.TSpec >> 5) & 7
	if srClassPriority != domainTSpecPriorityDefault {
		if !entry.ReservationFailed {
			metrics.ReservationFailuresTotal.Inc()
		}
		entry.ReservationFailed = true
		return nil
	}

	if dt.Kind == pdu.AttrTalkerFailed {
		a.Type = mrp.TalkerFailed
		if !entry.ReservationFailed {
			metrics.ReservationFailuresTotal.Inc()
		}
		entry.ReservationFailed = true
		entry.Reservation.FailureBridgeID = dt.FailureBridgeID
		entry.Reservation.FailureCode = dt.FailureCode
		m.logger.Warn("talker failed", "stream_id", dt.StreamID, "failure_code", dt.FailureCode)
	} else {
		a.Type = mrp.TalkerAdvertise
		if entry.ReservationFailed {
			entry.Reservation.FailureBridgeID = 0
			entry.Reservation.FailureCode = 0
		}
		entry.ReservationFailed = false
	}

	if !entry.TalkerPresent {
		info := reservation.Info{
			StreamID:           dt.StreamID,
			DestMACAddr:        reservation.MAC(dt.DestMacAddr),
			VLANID:             dt.VlanID,
			TSpec:              dt.TSpec,
			TSpecMaxFrameSize:  dt.TSpecMaxFrameSize,
			TSpecMaxInterval:   dt.TSpecMaxIntervalFrames,
			AccumulatedLatency: dt.AccumulatedLatency,
		}
		if _, err := m.table.AddFull(info); err != nil {
			return err
		}
	}
	return nil
}

// domainTSpecPriorityDefault mirrors domain.TSpecPriorityDefault without
// importing internal/domain into the hot match path just for one
// constant; internal/domain is still the source of truth (both values
// are AVB_SRP_TSPEC_PRIORITY_DEFAULT from spec.md §6).
const domainTSpecPriorityDefault = 3

// ProcessIncomingTalker is the wire-ingress entry point for one decoded
// TalkerAdvertise/TalkerFailed attribute (spec.md "MRP engine →
// attribute-created callback → Declaration SM"): find the existing
// non-propagated Talker attribute for this StreamID on port, or — if
// none exists yet — allocate one, then dispatch to TalkerJoinInd or
// TalkerLeaveInd per the attribute's three-packed event, mirroring
// ProcessIncomingListener.
func (m *Machine) ProcessIncomingTalker(dt pdu.DecodedTalker, port int) error {
	h, found := m.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, dt.StreamID, port)
	if !found {
		h, found = m.engine.MatchTypeNonPropAttribute(mrp.TalkerFailed, dt.StreamID, port)
	}
	if !found {
		h = m.engine.GetAttr()
		m.engine.AttributeInit(h, mrp.TalkerAdvertise, port, false, dt.StreamID, -1)
		m.engine.MadBegin(h)
		m.engine.MadJoin(h, true)
	}
	switch dt.Event {
	case mrp.EventLv, mrp.EventMt:
		m.engine.MadLeave(h)
		m.TalkerLeaveInd(h)
	default:
		if err := m.MatchTalkerAdvertise(h, dt); err != nil {
			return err
		}
		m.TalkerJoinInd(h, port)
	}
	return nil
}

// TalkerJoinInd implements avb_srp_talker_join_ind (spec.md §4.4.3,
// bridge mode only): if a host Listener for this StreamID already
// exists on this port and was created locally, suppress the stub
// Listener on the opposite port, then join the local Listener. Finally
// runs bridge propagation.
func (m *Machine) TalkerJoinInd(h mrp.Handle, port int) {
	if m.bridgeMode() {
		if peer, ok := m.engine.MatchAttributePairByStreamID(h, true, -1); ok {
			peerAttr := m.engine.Attr(peer)
			if peerAttr.Type == mrp.Listener && peerAttr.Here {
				if stub, ok := m.engine.MatchAttrByStreamAndType(peer, false, -1); ok {
					m.engine.ChangeApplicantState(stub, mrp.Unused)
				}
				m.engine.MadBegin(peer)
				m.engine.MadJoin(peer, true)
			}
		}
		m.MapJoin(h, true, false)
	}
}

// TalkerLeaveInd implements the Talker-leave side of avb_srp_map_leave
// (spec.md §4.4.7): for every port where this stream had bandwidth
// reserved, subtract it and disable forwarding; propagate the leave to
// a same-kind opposite-port attribute; and — per 802.1Qat §25.3.4.4.1 —
// proxy-leave any Listener for the same stream on this port.
func (m *Machine) TalkerLeaveInd(h mrp.Handle) {
	m.MapLeaveTalker(h)
}
