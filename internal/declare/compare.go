package declare

import "github.com/avbsrp/srpcore/internal/mrp"

// CompareTalkers orders two Talker attributes ascending, matching
// avb_srp_compare_talker_attributes's `source_info->local_id`
// comparison. This module has no separate host-side local_id counter,
// so local_id is modeled as the attribute's reservation-table
// StreamEntryIndex — the stable per-stream identifier every Talker
// attribute already carries (see DESIGN.md).
func (m *Machine) CompareTalkers(a, b mrp.Handle) bool {
	return m.engine.Attr(a).StreamEntryIndex < m.engine.Attr(b).StreamEntryIndex
}

// CompareListeners orders two Listener attributes by StreamID (high
// half, then low half) ascending, matching
// avb_srp_compare_listener_attributes exactly.
func (m *Machine) CompareListeners(a, b mrp.Handle) bool {
	return m.engine.Attr(a).StreamID.Less(m.engine.Attr(b).StreamID)
}
