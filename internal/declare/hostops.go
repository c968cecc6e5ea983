package declare

import (
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/reservation"
	"github.com/avbsrp/srpcore/internal/streamid"
)

// AdvertiseTalker implements avb_srp_create_and_join_talker_advertise_attrs
// (spec.md §4.4.8): upsert the reservation slot, join or allocate a
// TalkerAdvertise attribute per port, VLAN-join every port, and in
// single-port mode pre-allocate a local Listener stub so an incoming
// Listener can match against it. Returns the VLAN actually joined.
//
// Open Question 2 (DESIGN.md): the original's trailing debug dump after
// its own return statement is unreachable; only the semantics up to
// that return are implemented here.
func (m *Machine) AdvertiseTalker(res reservation.Info) (uint16, error) {
	if res.VLANID == 0 {
		res.VLANID = m.domain.CurrentVLAN()
	}
	if _, err := m.table.AddFull(res); err != nil {
		return 0, err
	}
	idx, err := m.table.MatchByID(res.StreamID)
	if err != nil {
		return 0, err
	}

	for p := 0; p < m.numPorts; p++ {
		h, ok := m.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, res.StreamID, p)
		if !ok {
			h, ok = m.engine.MatchTypeNonPropAttribute(mrp.TalkerFailed, res.StreamID, p)
		}
		if ok {
			m.engine.MadJoin(h, false)
		} else {
			h = m.engine.GetAttr()
			m.engine.AttributeInit(h, mrp.TalkerAdvertise, p, true, res.StreamID, idx.Index)
			m.engine.MadBegin(h)
			m.engine.MadJoin(h, true)
		}
		m.vlan.JoinVLAN(res.VLANID, p)
	}

	if !m.bridgeMode() {
		if _, ok := m.engine.MatchTypeNonPropAttribute(mrp.Listener, res.StreamID, 0); !ok {
			stub := m.engine.GetAttr()
			m.engine.AttributeInit(stub, mrp.Listener, 0, false, res.StreamID, idx.Index)
		}
	}
	return res.VLANID, nil
}

// JoinListener implements avb_srp_join_listener_attrs (spec.md §4.4.8).
func (m *Machine) JoinListener(id streamid.ID, vlanID uint16) error {
	vid := vlanID
	if vid == 0 {
		vid = m.domain.CurrentVLAN()
	}

	for p := 0; p < m.numPorts; p++ {
		if _, ok := m.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, p); !ok {
			continue
		}
		h, ok := m.engine.MatchTypeNonPropAttribute(mrp.Listener, id, p)
		if !ok {
			if _, err := m.table.AddIDOnly(id); err != nil {
				return err
			}
			idx, err := m.table.MatchByID(id)
			if err != nil {
				return err
			}
			h = m.engine.GetAttr()
			m.engine.AttributeInit(h, mrp.Listener, p, true, id, idx.Index)
			m.engine.MadBegin(h)
		}
		m.vlan.JoinVLAN(vid, p)
		m.engine.MadJoin(h, true)
		return nil
	}

	// Talker hasn't arrived on any port yet.
	if _, ok := m.engine.MatchTypeNonPropAttribute(mrp.TalkerFailed, id, -1); ok {
		return nil
	}
	if _, err := m.table.AddIDOnly(id); err != nil {
		return err
	}
	idx, err := m.table.MatchByID(id)
	if err != nil {
		return err
	}
	for p := 0; p < m.numPorts; p++ {
		h := m.engine.GetAttr()
		m.engine.AttributeInit(h, mrp.Listener, p, true, id, idx.Index)
		m.engine.MadBegin(h)
		if !m.bridgeMode() {
			m.engine.MadJoin(h, true)
		}
	}
	if !m.bridgeMode() {
		if _, ok := m.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, 0); !ok {
			stub := m.engine.GetAttr()
			m.engine.AttributeInit(stub, mrp.TalkerAdvertise, 0, false, id, idx.Index)
		}
	}
	return nil
}

// LeaveTalker implements avb_srp_leave_talker_attrs (spec.md §4.4.8).
func (m *Machine) LeaveTalker(id streamid.ID) {
	for p := 0; p < m.numPorts; p++ {
		if h, ok := m.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, p); ok {
			m.engine.MadLeave(h)
			continue
		}
		if h, ok := m.engine.MatchTypeNonPropAttribute(mrp.TalkerFailed, id, p); ok {
			m.engine.MadLeave(h)
		}
	}
	if !m.bridgeMode() {
		if h, ok := m.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 0); ok {
			m.engine.Attr(h).Here = false
			m.engine.MadLeave(h)
		}
	}
}

// LeaveListener implements avb_srp_leave_listener_attrs (spec.md
// §4.4.8). In bridge mode, a still-listening opposite port suppresses
// the leave and only clears `here` so a later downstream leave
// propagates correctly — addressing the known bug class where a stale
// `here` flag would otherwise suppress propagation.
func (m *Machine) LeaveListener(id streamid.ID) {
	if m.bridgeMode() {
		for p := 0; p < m.numPorts; p++ {
			h, ok := m.engine.MatchTypeNonPropAttribute(mrp.Listener, id, p)
			if !ok || !m.engine.Attr(h).Here {
				continue
			}
			if _, ok := m.engine.MatchTypeNonPropAttribute(mrp.Listener, id, m.otherPort(p)); ok {
				m.engine.Attr(h).Here = false
				continue
			}
			m.engine.MadLeave(h)
			m.engine.Attr(h).Here = false
		}
		return
	}

	if h, ok := m.engine.MatchTypeNonPropAttribute(mrp.Listener, id, 0); ok {
		m.engine.Attr(h).Here = false
		m.engine.MadLeave(h)
	}
	if h, ok := m.engine.MatchTypeNonPropAttribute(mrp.TalkerAdvertise, id, 0); ok {
		m.engine.Attr(h).Here = false
		m.engine.Attr(h).RemoveAfterNextTx = true
	}
}
