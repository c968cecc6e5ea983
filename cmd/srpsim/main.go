// Command srpsim is a small demonstration/simulation binary for the SRP
// core: it wires a Context with in-memory data-plane/AVB-facade/VLAN
// stand-ins, advertises a Talker, feeds it a Listener join over the
// loopback "wire", and prints the resulting reservation and bandwidth
// state. It exists to exercise internal/srp end to end the way the
// teacher's cmd/direwolf ties its own subsystems together into one
// runnable binary, following its pflag-based flag parsing
// (src/atest.go).
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/avbsrp/srpcore/internal/config"
	"github.com/avbsrp/srpcore/internal/reservation"
	"github.com/avbsrp/srpcore/internal/srp"
	"github.com/avbsrp/srpcore/internal/streamid"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to a YAML Configuration block (spec.md §6). Defaults are used when omitted.")
	destMAC := pflag.StringP("dest-mac", "d", "91:e0:f0:00:00:01", "Talker destination MAC address.")
	maxFrameSize := pflag.Uint16P("max-frame-size", "f", 200, "TSpec max frame size in bytes.")
	verbose := pflag.BoolP("verbose", "v", false, "Enable debug logging.")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "srpsim"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("loading configuration", "err", err)
		}
		cfg = loaded
	}

	mac, err := parseMAC(*destMAC)
	if err != nil {
		logger.Fatal("parsing --dest-mac", "err", err)
	}

	data := newMemDataPlane()
	avb := newMemAVBHost(cfg.AVBNumSources, cfg.AVBNumSinks)
	vlan := newMemVLANJoiner(logger)

	ctx := srp.New(cfg, data, avb, vlan, nil, logger)
	ctx.Init()
	ctx.Join()

	streamID := streamid.FromMAC(mac, streamid.NewLocalUniqueID())
	srcIdx := avb.addSource(streamID)

	joinedVLAN, err := ctx.AdvertiseTalker(reservation.Info{
		StreamID:          streamID,
		DestMACAddr:       reservation.MAC(mac),
		TSpecMaxFrameSize: *maxFrameSize,
		TSpecMaxInterval:  1,
		TSpec:             domainDefaultTSpec(),
	})
	if err != nil {
		logger.Fatal("advertising talker", "err", err)
	}
	fmt.Printf("advertised talker %08x%08x on VLAN %d\n", streamID.Hi, streamID.Lo, joinedVLAN)

	wire := ctx.EncodeOutgoing(0)
	fmt.Printf("encoded %d bytes of outgoing PDU on port 0\n", len(wire))

	if err := ctx.HandleIncomingPDU(domainPDU(cfg.AVBDefaultVLAN), 0); err != nil {
		logger.Fatal("handling simulated domain PDU", "err", err)
	}
	if err := ctx.HandleIncomingPDU(listenerPDU(streamID), 0); err != nil {
		logger.Fatal("handling simulated listener PDU", "err", err)
	}

	fmt.Printf("source %d state: %s\n", srcIdx, avb.GetSourceState(srcIdx))
	fmt.Printf("port 0 bandwidth: %d bps\n", ctx.BW.PortBandwidth(0))

	ctx.LeaveTalker(streamID)
	ctx.Tick()
	fmt.Printf("port 0 bandwidth after teardown: %d bps\n", ctx.BW.PortBandwidth(0))
}

// domainDefaultTSpec packs Class A's priority (3) into TSpec's upper 3
// bits, matching avb_srp.c's `(tspec_class_priority << 5) & 0xe0`.
func domainDefaultTSpec() uint8 {
	return 3 << 5
}
