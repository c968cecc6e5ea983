// Package declare implements the Declaration State Machine (spec.md
// §4.4): Talker/Listener join/leave indications from the MRP engine,
// bridge propagation across the two ports, endpoint
// listener-before-talker reconciliation, and the coupling to stream
// enable/disable on the data plane.
//
// Grounded throughout on avb_srp.c's avb_srp_match_talker_advertise,
// avb_srp_match_listener, avb_srp_talker_join_ind/leave_ind,
// avb_srp_listener_join_ind/leave_ind, avb_srp_map_join/map_leave,
// create_propagated_attribute_and_join, and
// avb_srp_create_and_join_talker_advertise_attrs /
// avb_srp_join_listener_attrs / avb_srp_leave_talker_attrs /
// avb_srp_leave_listener_attrs. Structured the way the teacher's
// src/kiss.go layers a protocol state machine over a raw frame decoder:
// small per-transition methods on one shared receiver, each grounded on
// one original function.
package declare

import (
	"github.com/charmbracelet/log"

	"github.com/avbsrp/srpcore/internal/bandwidth"
	"github.com/avbsrp/srpcore/internal/domain"
	"github.com/avbsrp/srpcore/internal/hostapi"
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/reservation"
)

// Machine owns every collaborator the Declaration State Machine touches.
// Constructed once and passed through every operation, per Design Notes
// §9's "encapsulate global mutable state as one explicit context".
type Machine struct {
	numPorts   int
	packetRate int

	engine mrp.Engine
	table  *reservation.Table
	bw     *bandwidth.Accountant
	domain *domain.Handler
	data   hostapi.DataPlane
	avb    hostapi.AVBHost
	vlan   hostapi.VLANJoiner

	logger *log.Logger
}

// New constructs a Machine. packetRateHz is AVB1722_PACKET_RATE from
// Configuration (spec.md §6).
func New(
	numPorts int,
	engine mrp.Engine,
	table *reservation.Table,
	bw *bandwidth.Accountant,
	dom *domain.Handler,
	data hostapi.DataPlane,
	avb hostapi.AVBHost,
	vlan hostapi.VLANJoiner,
	packetRateHz int,
	logger *log.Logger,
) *Machine {
	return &Machine{
		numPorts:   numPorts,
		packetRate: packetRateHz,
		engine:     engine,
		table:      table,
		bw:         bw,
		domain:     dom,
		data:       data,
		avb:        avb,
		vlan:       vlan,
		logger:     logger,
	}
}

// bridgeMode reports whether the endpoint relays between two ports.
func (m *Machine) bridgeMode() bool {
	return m.numPorts == 2
}

// otherPort returns the opposite port of a two-port bridge. Only
// meaningful when bridgeMode() is true.
func (m *Machine) otherPort(port int) int {
	return 1 - port
}

// entryFor returns the reservation slot an attribute references, or nil
// for the Domain attribute (StreamEntryIndex == -1).
func (m *Machine) entryFor(h mrp.Handle) *reservation.Entry {
	idx := m.engine.Attr(h).StreamEntryIndex
	if idx < 0 {
		return nil
	}
	return m.table.Entry(idx)
}

// sourcePacketRate picks the packet rate used for bandwidth math. SR
// class is currently always Class A at a fixed observation interval, so
// a single configured rate applies; kept as a Machine field (rather
// than a package constant) so a future SR class addition only needs a
// lookup here, matching SPEC_FULL.md §C.5's per-class generalization.
func (m *Machine) sourcePacketRate() int {
	return m.packetRate
}
