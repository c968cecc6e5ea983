package declare

import (
	"github.com/avbsrp/srpcore/internal/bandwidth"
	"github.com/avbsrp/srpcore/internal/mrp"
)

// MapJoin implements avb_srp_map_join (spec.md §4.4.6): bridge-mode
// propagation of a freshly joined attribute onto the opposite port, plus
// the Listener and Talker follow-on joins it triggers.
func (m *Machine) MapJoin(h mrp.Handle, new bool, isListener bool) {
	a := m.engine.Attr(h)

	if _, exists := m.engine.MatchAttrByStreamAndType(h, false, -1); !exists {
		shouldPropagate := !isListener
		if isListener {
			if pair, ok := m.engine.MatchAttributePairByStreamID(h, true, -1); ok {
				pairAttr := m.engine.Attr(pair)
				shouldPropagate = !pairAttr.Here && !pairAttr.Propagated
			}
		}
		if shouldPropagate {
			m.propagateAttribute(h, new)
		}
	}

	if isListener {
		m.mapJoinListenerBandwidth(h, a, new)
		return
	}
	if opp, ok := m.engine.MatchAttrByStreamAndType(h, false, -1); ok {
		m.engine.MadJoin(opp, new)
		m.engine.Attr(opp).Propagated = true
	}
}

// mapJoinListenerBandwidth implements the Listener path of map_join: on
// a false->true transition of bw_reserved[attr.port], caused by the
// paired Talker being present, non-propagated, and remote, add
// bandwidth, enable forwarding, and join the mirrored opposite-port
// Listener if one exists.
func (m *Machine) mapJoinListenerBandwidth(h mrp.Handle, a *mrp.AttributeState, new bool) {
	pair, ok := m.engine.MatchAttributePairByStreamID(h, true, -1)
	if !ok {
		return
	}
	pairAttr := m.engine.Attr(pair)
	if pairAttr.Propagated || pairAttr.Here {
		return
	}
	entry := m.entryFor(h)
	if entry == nil || entry.BWReserved[a.Port] {
		return
	}
	entry.BWReserved[a.Port] = true
	m.bw.Increase(entry.Reservation.TSpecMaxFrameSize, bandwidth.ExtraListener, a.Port, m.sourcePacketRate())
	m.data.EnableStreamForwarding(a.StreamID)

	if opp, ok := m.engine.MatchAttrByStreamAndType(h, false, -1); ok {
		if oppAttr := m.engine.Attr(opp); oppAttr.Type == mrp.Listener {
			m.engine.MadJoin(opp, new)
			oppAttr.Propagated = true
		}
	}
}

// propagateAttribute allocates the mirrored opposite-port attribute,
// matching create_propagated_attribute_and_join: flipped port, shared
// attribute_info (StreamID + StreamEntryIndex), started with
// mad_begin+mad_join(new), marked propagated.
func (m *Machine) propagateAttribute(h mrp.Handle, new bool) mrp.Handle {
	a := m.engine.Attr(h)
	p := m.engine.GetAttr()
	m.engine.AttributeInit(p, a.Type, m.otherPort(a.Port), false, a.StreamID, a.StreamEntryIndex)
	m.engine.MadBegin(p)
	m.engine.MadJoin(p, new)
	m.engine.Attr(p).Propagated = true
	return p
}

// MapLeaveListener implements the Listener-leave half of
// avb_srp_map_leave (spec.md §4.4.7): release bandwidth and forwarding
// when the paired Talker is remote, proxy-leave a non-local
// opposite-port propagated Listener, then force this attribute UNUSED.
func (m *Machine) MapLeaveListener(h mrp.Handle) {
	a := m.engine.Attr(h)
	entry := m.entryFor(h)

	if pair, ok := m.engine.MatchAttributePairByStreamID(h, true, -1); ok {
		pairAttr := m.engine.Attr(pair)
		if !pairAttr.Here && entry != nil && entry.BWReserved[a.Port] {
			m.bw.Decrease(entry.Reservation.TSpecMaxFrameSize, bandwidth.ExtraListener, a.Port, m.sourcePacketRate())
			m.data.DisableStreamForwarding(a.StreamID)
			entry.BWReserved[a.Port] = false

			if opp, ok := m.engine.MatchAttrByStreamAndType(h, false, 1); ok {
				if oppAttr := m.engine.Attr(opp); !oppAttr.Here {
					m.engine.MadLeave(opp)
				}
			}
		}
	}
	m.engine.ChangeApplicantState(h, mrp.Unused)
}

// MapLeaveTalker implements the Talker-leave half of avb_srp_map_leave
// (spec.md §4.4.7): release bandwidth on every port that held it,
// propagate the leave, and — per 802.1Qat §25.3.4.4.1 — proxy-leave any
// same-port Listener.
func (m *Machine) MapLeaveTalker(h mrp.Handle) {
	a := m.engine.Attr(h)
	entry := m.entryFor(h)
	if entry != nil {
		for p := 0; p < m.numPorts; p++ {
			if entry.BWReserved[p] {
				m.bw.Decrease(entry.Reservation.TSpecMaxFrameSize, bandwidth.ExtraListener, p, m.sourcePacketRate())
				m.data.DisableStreamForwarding(a.StreamID)
				entry.BWReserved[p] = false
			}
		}
	}
	if opp, ok := m.engine.MatchAttrByStreamAndType(h, false, -1); ok {
		m.engine.MadLeave(opp)
	}
	if listener, ok := m.engine.MatchAttributePairByStreamID(h, true, -1); ok {
		if m.engine.Attr(listener).Type == mrp.Listener {
			m.engine.MadLeave(listener)
		}
	}
}
