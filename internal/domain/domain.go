// Package domain implements the Domain Handler (spec.md §4.3): MSRP
// Domain attribute registration, SR-domain-boundary tracking per port,
// and the SR-class VLAN ID. Grounded on avb_srp.c's srp_domain_init,
// srp_domain_join, avb_srp_match_domain, avb_srp_domain_join_ind,
// avb_srp_domain_leave_ind.
package domain

import (
	"github.com/charmbracelet/log"

	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/streamid"
)

// Default SR class parameters (spec.md §6): Class A, priority 3, and the
// compile-time default VLAN. AVB_DEFAULT_VLAN is supplied by
// internal/config at construction time instead of being a Go constant,
// since spec.md §6 lists it under the build-time Configuration block.
const (
	SRClassDefault         = 6 // AVB_SRP_SRCLASS_DEFAULT (Class A)
	TSpecPriorityDefault   = 3 // AVB_SRP_TSPEC_PRIORITY_DEFAULT
)

// AVBFacade is the subset of the host AVB API the Domain Handler touches
// on domain_join_ind, an external collaborator per spec.md §4.5/§6.
type AVBFacade interface {
	NumSources() int
	NumSinks() int
	GetSourceVLAN(index int) uint16
	SetSourceVLAN(index int, vlan uint16)
	GetSinkVLAN(index int) uint16
	SetSinkVLAN(index int, vlan uint16)
}

// VLANJoiner is the VLAN registration collaborator (MVRP), out of scope
// to implement per spec.md §1.
type VLANJoiner interface {
	JoinVLAN(vlanID uint16, port int)
}

// Handler owns the per-port Domain attribute handles, the domain
// boundary flags, and the current domain VLAN.
type Handler struct {
	numPorts int
	logger   *log.Logger
	engine   mrp.Engine

	domainAttr        []mrp.Handle
	boundaryPort      []bool
	currentVLANFromDomain uint16
}

// New constructs a Handler. defaultVLAN is AVB_DEFAULT_VLAN from
// Configuration.
func New(numPorts int, defaultVLAN uint16, engine mrp.Engine, logger *log.Logger) *Handler {
	return &Handler{
		numPorts:              numPorts,
		logger:                logger,
		engine:                engine,
		domainAttr:            make([]mrp.Handle, numPorts),
		boundaryPort:          make([]bool, numPorts),
		currentVLANFromDomain: defaultVLAN,
	}
}

// Init implements srp_domain_init: allocates a Domain attribute per
// port and sets the boundary flag on every port. The domain VLAN is not
// touched here; New already set it to the configured default.
func (h *Handler) Init() {
	for p := 0; p < h.numPorts; p++ {
		attr := h.engine.GetAttr()
		h.engine.AttributeInit(attr, mrp.DomainVector, p, true, streamid.Zero, -1)
		h.domainAttr[p] = attr
		h.boundaryPort[p] = true
	}
}

// Join implements srp_domain_join: issues mad_begin/mad_join for every
// port's Domain attribute.
func (h *Handler) Join() {
	for p := 0; p < h.numPorts; p++ {
		h.engine.MadBegin(h.domainAttr[p])
		h.engine.MadJoin(h.domainAttr[p], true)
	}
}

// CurrentVLAN returns the current domain VLAN ID.
func (h *Handler) CurrentVLAN() uint16 {
	return h.currentVLANFromDomain
}

// BoundaryPort reports whether port is currently at the SR domain
// boundary.
func (h *Handler) BoundaryPort(port int) bool {
	return h.boundaryPort[port]
}

// OnDomainFirstValueMatch implements avb_srp_match_domain: on a Domain
// first-value match carrying the default SR class id/priority, silently
// adopt its SRclassVID as the domain VLAN.
func (h *Handler) OnDomainFirstValueMatch(srClassID, srClassPriority uint8, srClassVID uint16) bool {
	if srClassID == SRClassDefault && srClassPriority == TSpecPriorityDefault {
		h.currentVLANFromDomain = srClassVID
		return true
	}
	return false
}

// DomainJoinInd implements avb_srp_domain_join_ind: clears the boundary
// flag on port, then for every host source/sink whose configured VLAN
// is 0, sets its VLAN to the domain VLAN.
func (h *Handler) DomainJoinInd(port int, avb AVBFacade) {
	h.logger.Debug("joined SRP domain", "vid", h.currentVLANFromDomain, "port", port)
	h.boundaryPort[port] = false

	for i := 0; i < avb.NumSources(); i++ {
		if avb.GetSourceVLAN(i) == 0 {
			avb.SetSourceVLAN(i, h.currentVLANFromDomain)
		}
	}
	for i := 0; i < avb.NumSinks(); i++ {
		if avb.GetSinkVLAN(i) == 0 {
			avb.SetSinkVLAN(i, h.currentVLANFromDomain)
		}
	}
}

// DomainLeaveInd implements avb_srp_domain_leave_ind: sets the boundary
// flag on port.
func (h *Handler) DomainLeaveInd(port int) {
	h.logger.Debug("left SRP domain", "port", port)
	h.boundaryPort[port] = true
}

