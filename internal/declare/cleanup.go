package declare

import "github.com/avbsrp/srpcore/internal/mrp"

// CleanupAttribute implements the MRP engine's per-tick cleanup sweep
// (spec.md §4.4.9): force non-`here` non-Domain attributes and all
// Listeners to UNUSED, and once no matching attribute references a
// stream at all, tear its table slot and data-plane entry down. Returns
// true iff the attribute is now UNUSED and may be reused.
func (m *Machine) CleanupAttribute(h mrp.Handle) bool {
	a := m.engine.Attr(h)

	if a.Type == mrp.Listener || (!a.Here && a.Type != mrp.DomainVector) {
		m.engine.ChangeApplicantState(h, mrp.Unused)
	}

	if a.Type == mrp.TalkerAdvertise || a.Type == mrp.TalkerFailed || a.Type == mrp.Listener {
		if !m.hasAnyMatchingAttribute(h) {
			if match, err := m.table.MatchByID(a.StreamID); err == nil && match.Existing {
				m.data.DisableStreamForwarding(a.StreamID)
				m.data.RemoveStreamFromTable(a.StreamID)
				m.table.Remove(a.StreamID)
			}
		}
	}

	return m.engine.Attr(h).ApplicantState == mrp.Unused
}

// hasAnyMatchingAttribute asks whether any attribute, paired by
// StreamID or matching by the same kind, still exists on either port
// polarity (spec.md §4.4.9, step 2).
func (m *Machine) hasAnyMatchingAttribute(h mrp.Handle) bool {
	if _, ok := m.engine.MatchAttributePairByStreamID(h, true, -1); ok {
		return true
	}
	if _, ok := m.engine.MatchAttributePairByStreamID(h, false, -1); ok {
		return true
	}
	if _, ok := m.engine.MatchAttrByStreamAndType(h, true, -1); ok {
		return true
	}
	if _, ok := m.engine.MatchAttrByStreamAndType(h, false, -1); ok {
		return true
	}
	return false
}
