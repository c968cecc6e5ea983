// Package hostapi defines the external surface the Declaration State
// Machine calls outward through (spec.md §4.5, §6): the data-plane
// stream table and the host's AVB source/sink facade. Both are external
// collaborators — out of scope to implement (spec.md §1) — so this
// package is interfaces only, mirroring the teacher's pattern of a thin
// collaborator interface plus a concrete adapter supplied by the caller
// (src/agwpe.go's io.ReadWriter-shaped TNC transport).
package hostapi

import "github.com/avbsrp/srpcore/internal/streamid"

// SourcePort selects which physical port a Talker's stream is directed
// out of, per spec.md §4.5's `set_source_port(stream, port | both)`.
type SourcePort int

const (
	SourcePort0 SourcePort = iota
	SourcePort1
	SourcePortBoth
)

// SourceState is the AVB facade's source lifecycle state (spec.md §4.5).
type SourceState int

const (
	SourceDisabled SourceState = iota
	SourcePotential
	SourceEnabled
)

func (s SourceState) String() string {
	switch s {
	case SourceDisabled:
		return "DISABLED"
	case SourcePotential:
		return "POTENTIAL"
	case SourceEnabled:
		return "ENABLED"
	default:
		return "UNKNOWN"
	}
}

// DataPlane is the AVB 1722 stream table the Declaration State Machine
// drives forwarding through (spec.md §4.5).
type DataPlane interface {
	SetSourcePort(streamIndex int, port SourcePort)
	EnableStreamForwarding(id streamid.ID)
	DisableStreamForwarding(id streamid.ID)
	RemoveStreamFromTable(id streamid.ID)
}

// VLANJoiner is the MVRP VLAN-registration collaborator, out of scope to
// implement per spec.md §1.
type VLANJoiner interface {
	JoinVLAN(vlanID uint16, port int)
}

// AVBHost is the host's AVB source/sink facade (spec.md §4.5).
type AVBHost interface {
	NumSources() int
	NumSinks() int

	GetSourceState(index int) SourceState
	SetSourceState(index int, s SourceState)

	GetSourceVLAN(index int) uint16
	SetSourceVLAN(index int, vlan uint16)
	GetSinkVLAN(index int) uint16
	SetSinkVLAN(index int, vlan uint16)

	GetSourceStreamIndexFromStreamID(id streamid.ID) (int, bool)
	GetSinkStreamIndexFromStreamID(id streamid.ID) (int, bool)
}
