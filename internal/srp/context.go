// Package srp is the top-level wiring point for the Stream Reservation
// Protocol core (Design Notes §9: "encapsulate global mutable state as
// one explicitly constructed context passed through all operations").
// Context owns the reservation table, bandwidth accountant, domain
// handler, attribute registry, and declaration state machine, and
// exposes the operations a caller (an MRP engine driving PDU ingress,
// or the host AVB facade driving advertise/join/leave) invokes.
//
// Grounded on Design Notes §9 directly and on the teacher's single-binary
// wiring style in cmd/direwolf/main.go: one struct built once at startup,
// threaded through every subsequent call instead of package globals.
package srp

import (
	"errors"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/avbsrp/srpcore/internal/bandwidth"
	"github.com/avbsrp/srpcore/internal/config"
	"github.com/avbsrp/srpcore/internal/declare"
	"github.com/avbsrp/srpcore/internal/domain"
	"github.com/avbsrp/srpcore/internal/hostapi"
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/pdu"
	"github.com/avbsrp/srpcore/internal/reservation"
	"github.com/avbsrp/srpcore/internal/streamid"
)

// Context is the single explicitly-constructed object every SRP
// operation runs against (Design Notes §9). It replaces the original's
// stream_table / port_bandwidth / srp_domain_boundary_port /
// current_vlan_id_from_domain / i_eth globals.
type Context struct {
	NumPorts   int
	PacketRate int

	Table   *reservation.Table
	BW      *bandwidth.Accountant
	Domain  *domain.Handler
	Engine  *mrp.Registry
	Machine *declare.Machine

	data hostapi.DataPlane
	avb  hostapi.AVBHost
	vlan hostapi.VLANJoiner

	logger *log.Logger
}

// New constructs a Context from a loaded Configuration block (spec.md
// §6) and the external collaborators the core calls out through
// (spec.md §4.5/§6): the AVB 1722 data plane, the host AVB source/sink
// facade, the MVRP VLAN joiner, and the credit-based shaper. Matches the
// original's srp_store_ethernet_interface in spirit: every collaborator
// handle is resolved once, here, and threaded through everything below.
func New(cfg config.Config, data hostapi.DataPlane, avb hostapi.AVBHost, vlan hostapi.VLANJoiner, shaper bandwidth.ShaperSetter, logger *log.Logger) *Context {
	engine := mrp.NewRegistry()
	table := reservation.New(cfg.AVBStreamTableEntries)
	bw := bandwidth.New(cfg.MRPNumPorts, shaper, logger)
	dom := domain.New(cfg.MRPNumPorts, cfg.AVBDefaultVLAN, engine, logger)

	machine := declare.New(cfg.MRPNumPorts, engine, table, bw, dom, data, avb, vlan, cfg.AVB1722PacketRate, logger)

	return &Context{
		NumPorts:   cfg.MRPNumPorts,
		PacketRate: cfg.AVB1722PacketRate,
		Table:      table,
		BW:         bw,
		Domain:     dom,
		Engine:     engine,
		Machine:    machine,
		data:       data,
		avb:        avb,
		vlan:       vlan,
		logger:     logger,
	}
}

// Init allocates the per-port Domain attribute and sets every port to
// the SR domain boundary, matching srp_domain_init.
func (c *Context) Init() {
	c.logger.Debug("srp context init", "num_ports", c.NumPorts, "table_len", c.Table.Len())
	c.Domain.Init()
}

// Join begins MRP registration of the Domain attribute on every port,
// matching srp_domain_join.
func (c *Context) Join() {
	c.Domain.Join()
}

// AdvertiseTalker, JoinListener, LeaveTalker, LeaveListener are the Host
// API surface (spec.md §4.4.8) delegated straight to the Declaration
// State Machine.
func (c *Context) AdvertiseTalker(res reservation.Info) (uint16, error) {
	return c.Machine.AdvertiseTalker(res)
}

func (c *Context) JoinListener(id streamid.ID, vlanID uint16) error {
	return c.Machine.JoinListener(id, vlanID)
}

func (c *Context) LeaveTalker(id streamid.ID) {
	c.Machine.LeaveTalker(id)
}

func (c *Context) LeaveListener(id streamid.ID) {
	c.Machine.LeaveListener(id)
}

// HandleIncomingPDU decodes every attribute carried in an incoming MRPDU
// received on port and runs it to quiescence (spec.md §5: "servicing an
// inbound PDU and running the resulting join/leave indications to
// quiescence" — no operation here yields, matching the single-threaded
// cooperative model).
func (c *Context) HandleIncomingPDU(buf []byte, port int) error {
	msgs, ok := pdu.DecodeMessages(buf)
	if !ok {
		c.logger.Error("dropping malformed incoming PDU", "port", port, "len", len(buf))
		return ErrMalformedPDU
	}
	for _, msg := range msgs {
		switch {
		case msg.Talker != nil:
			if err := c.Machine.ProcessIncomingTalker(*msg.Talker, port); err != nil {
				return err
			}
		case msg.Listener != nil:
			if err := c.Machine.ProcessIncomingListener(*msg.Listener, port); err != nil {
				return err
			}
		case msg.Domain != nil:
			c.handleIncomingDomain(*msg.Domain, port)
		}
	}
	return nil
}

func (c *Context) handleIncomingDomain(d pdu.DecodedDomain, port int) {
	c.Domain.OnDomainFirstValueMatch(d.SRClassID, d.SRClassPriority, d.SRClassVID)
	switch d.Event {
	case mrp.EventLv, mrp.EventMt:
		c.Domain.DomainLeaveInd(port)
	default:
		c.Domain.DomainJoinInd(port, c.avb)
	}
}

// Tick drives one pass of the MRP engine's per-attribute cleanup sweep
// (spec.md §4.4.9) over every attribute currently registered, freeing
// any that report UNUSED afterward. A production deployment invokes
// this from its own periodic/LeaveAll timer loop (out of scope per
// spec.md §1); it is exposed here so a caller (cmd/srpsim, or a test)
// can drive cleanup deterministically.
func (c *Context) Tick() {
	for _, h := range c.Engine.LiveHandles() {
		if c.Machine.CleanupAttribute(h) {
			c.Engine.Free(h)
		}
	}
}

// EncodeOutgoing builds the outgoing MRPDU for port: every live
// TalkerAdvertise/TalkerFailed/Listener/Domain attribute registered on
// that port, ordered by the comparators of spec.md §4.7, merged into
// vectors per spec.md §4.6, and concatenated into one byte stream.
func (c *Context) EncodeOutgoing(port int) []byte {
	var out []byte
	out = append(out, c.encodeTalkers(port, mrp.TalkerAdvertise, pdu.AttrTalkerAdvertise)...)
	out = append(out, c.encodeTalkers(port, mrp.TalkerFailed, pdu.AttrTalkerFailed)...)
	out = append(out, c.encodeListeners(port)...)
	out = append(out, c.encodeDomain(port)...)
	return out
}

func (c *Context) portHandles(port int, t mrp.AttributeType) []mrp.Handle {
	var out []mrp.Handle
	for _, h := range c.Engine.LiveHandles() {
		a := c.Engine.Attr(h)
		if a.Port == port && a.Type == t {
			out = append(out, h)
		}
	}
	return out
}

func (c *Context) encodeTalkers(port int, kind mrp.AttributeType, wireKind pdu.AttributeType) []byte {
	handles := c.portHandles(port, kind)
	sort.Slice(handles, func(i, j int) bool { return c.Machine.CompareTalkers(handles[i], handles[j]) })

	var out []byte
	var vec *pdu.TalkerVector
	for _, h := range handles {
		a := c.Engine.Attr(h)
		fv := c.talkerFirstValue(a, wireKind == pdu.AttrTalkerFailed)
		event := c.Engine.EncodeThreePackedEvent(h)
		if vec == nil {
			vec = pdu.NewTalkerVector(wireKind)
		}
		if !vec.TryAppend(fv, event) {
			out = append(out, vec.Encode()...)
			vec = pdu.NewTalkerVector(wireKind)
			vec.TryAppend(fv, event)
		}
		c.consumeRemoveAfterNextTx(h, a)
	}
	if vec != nil {
		out = append(out, vec.Encode()...)
	}
	return out
}

func (c *Context) talkerFirstValue(a *mrp.AttributeState, failed bool) pdu.TalkerFirstValue {
	entry := c.entryFor(a)
	vlan := entry.Reservation.VLANID
	if vlan == 0 {
		vlan = c.Domain.CurrentVLAN()
	}
	fv := pdu.TalkerFirstValue{
		StreamID:               a.StreamID,
		DestMacAddr:            [6]byte(entry.Reservation.DestMACAddr),
		VlanID:                 vlan,
		TSpecMaxFrameSize:      entry.Reservation.TSpecMaxFrameSize,
		TSpecMaxIntervalFrames: entry.Reservation.TSpecMaxInterval,
		TSpec:                  entry.Reservation.TSpec,
		AccumulatedLatency:     entry.Reservation.AccumulatedLatency,
		Failed:                 failed,
	}
	if failed {
		fv.FailureBridgeID = entry.Reservation.FailureBridgeID
		fv.FailureCode = entry.Reservation.FailureCode
	}
	return fv
}

func (c *Context) encodeListeners(port int) []byte {
	handles := c.portHandles(port, mrp.Listener)
	sort.Slice(handles, func(i, j int) bool { return c.Machine.CompareListeners(handles[i], handles[j]) })

	var out []byte
	var vec *pdu.ListenerVector
	for _, h := range handles {
		a := c.Engine.Attr(h)
		entry := c.entryFor(a)
		fv := pdu.ListenerFirstValue{StreamID: a.StreamID}
		three := c.Engine.EncodeThreePackedEvent(h)
		four := declare.ListenerFourPackedEvent(entry, c.Domain.BoundaryPort(port))
		if vec == nil {
			vec = pdu.NewListenerVector()
		}
		if !vec.TryAppend(fv, three, four) {
			out = append(out, vec.Encode()...)
			vec = pdu.NewListenerVector()
			vec.TryAppend(fv, three, four)
		}
		c.consumeRemoveAfterNextTx(h, a)
	}
	if vec != nil {
		out = append(out, vec.Encode()...)
	}
	return out
}

// encodeDomain encodes the port's Domain attribute, if one is currently
// registered (spec.md §4.6: Domain attributes never merge, so at most
// one vector per port).
func (c *Context) encodeDomain(port int) []byte {
	handles := c.portHandles(port, mrp.DomainVector)
	if len(handles) == 0 {
		return nil
	}
	h := handles[0]
	fv := pdu.DomainFirstValue{
		SRClassID:       domain.SRClassDefault,
		SRClassPriority: domain.TSpecPriorityDefault,
		SRClassVID:      c.Domain.CurrentVLAN(),
	}
	event := c.Engine.EncodeThreePackedEvent(h)
	vec := pdu.NewDomainVector()
	vec.TryAppend(fv, event)
	return vec.Encode()
}

// entryFor returns the reservation slot an attribute references. A
// Domain attribute (StreamEntryIndex -1) never reaches here.
func (c *Context) entryFor(a *mrp.AttributeState) *reservation.Entry {
	return c.Table.Entry(a.StreamEntryIndex)
}

// consumeRemoveAfterNextTx implements SPEC_FULL.md §C.3: the single-port
// Leave-Listener path marks a Talker attribute for removal "after next
// transmission" instead of leaving it immediately, so one more outgoing
// packed event reaches the wire before the attribute is torn down. The
// encode pass is exactly that next transmission.
func (c *Context) consumeRemoveAfterNextTx(h mrp.Handle, a *mrp.AttributeState) {
	if !a.RemoveAfterNextTx {
		return
	}
	a.RemoveAfterNextTx = false
	c.Engine.MadLeave(h)
}

// ErrMalformedPDU is returned when an incoming MRPDU fails to decode.
var ErrMalformedPDU = errors.New("srp: malformed incoming PDU")
