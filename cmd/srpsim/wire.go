package main

import (
	"github.com/avbsrp/srpcore/internal/mrp"
	"github.com/avbsrp/srpcore/internal/pdu"
	"github.com/avbsrp/srpcore/internal/streamid"
)

// listenerPDU builds a minimal one-attribute MRPDU declaring a Listener
// for id with a JoinIn event, simulating a remote Listener arriving on
// the wire.
func listenerPDU(id streamid.ID) []byte {
	vec := pdu.NewListenerVector()
	vec.TryAppend(pdu.ListenerFirstValue{StreamID: id}, mrp.EventJoinIn, mrp.EventReady)
	return vec.Encode()
}

// domainPDU builds a single-attribute MRPDU declaring the default SR
// class Domain with a JoinIn event, simulating a peer bridge
// establishing the SRP domain on this port (spec.md §4.3's
// domain_join_ind).
func domainPDU(srClassVID uint16) []byte {
	vec := pdu.NewDomainVector()
	vec.TryAppend(pdu.DomainFirstValue{
		SRClassID:       6,
		SRClassPriority: 3,
		SRClassVID:      srClassVID,
	}, mrp.EventJoinIn)
	return vec.Encode()
}
