// Package bandwidth implements the Bandwidth Accountant (spec.md §4.2):
// per-stream Ethernet rate computation, per-port running totals, and the
// shaper notification hook. Grounded on avb_srp.c's
// srp_calculate_stream_bandwidth / srp_increase_port_bandwidth /
// srp_decrease_port_bandwidth.
package bandwidth

import (
	"github.com/charmbracelet/log"

	"github.com/avbsrp/srpcore/internal/metrics"
)

// Frame overhead constants from spec.md §4.2 / avb_srp.c, in bytes.
const (
	InterframeGap    = 12
	PreambleAndSFD    = 8
	HeaderWithQTag    = 18
	CRC               = 4
)

// ExtraByte selects the +1-byte adjustment spec.md §4.2 calls "extra":
// zero for Talker-source accounting, one for Listener/relay accounting.
type ExtraByte int

const (
	ExtraTalker   ExtraByte = 0
	ExtraListener ExtraByte = 1
)

// ShaperSetter is the credit-based shaper collaborator (spec.md §1, "the
// credit-based shaper whose bandwidth setter is called at transitions").
// Out of scope to implement; the Accountant only calls it.
type ShaperSetter interface {
	SetQavBandwidth(port int, bitsPerSecond int64)
}

// CalculateStreamBandwidth computes the per-stream Ethernet rate in
// bits/second for a given max_frame_size and packet rate, matching
// srp_calculate_stream_bandwidth's formula exactly:
//
//	(IFG + Preamble+SFD + HeaderWithQtag + max_frame_size + CRC + extra) × 8 × PacketRate
func CalculateStreamBandwidth(maxFrameSize uint16, extra ExtraByte, packetRateHz int) int64 {
	totalFrameSize := InterframeGap + PreambleAndSFD + HeaderWithQTag + int(maxFrameSize) + CRC + int(extra)
	return int64(totalFrameSize) * 8 * int64(packetRateHz)
}

// Accountant tracks per-port bandwidth totals and notifies the shaper on
// every transition. It never infers state on its own; per spec.md §4.2 it
// is invoked explicitly by the Declaration State Machine.
type Accountant struct {
	shaper  ShaperSetter
	logger  *log.Logger
	perPort []int64
}

// New constructs an Accountant for numPorts ports.
func New(numPorts int, shaper ShaperSetter, logger *log.Logger) *Accountant {
	return &Accountant{
		shaper:  shaper,
		logger:  logger,
		perPort: make([]int64, numPorts),
	}
}

// PortBandwidth returns the current running total for port.
func (a *Accountant) PortBandwidth(port int) int64 {
	return a.perPort[port]
}

// Increase adds a stream's bandwidth contribution to port's running
// total and notifies the shaper, matching srp_increase_port_bandwidth.
// Callers must only invoke this on a false->true transition of
// Entry.BWReserved[port] (spec.md §4.2).
func (a *Accountant) Increase(maxFrameSize uint16, extra ExtraByte, port int, packetRateHz int) {
	delta := CalculateStreamBandwidth(maxFrameSize, extra, packetRateHz)
	a.perPort[port] += delta
	a.logger.Debug("increasing port shaper bandwidth", "port", port, "bps", a.perPort[port])
	metrics.PortBandwidthBps.WithLabelValues(portLabel(port)).Set(float64(a.perPort[port]))
	if a.shaper != nil {
		a.shaper.SetQavBandwidth(port, a.perPort[port])
	}
}

// Decrease subtracts a stream's bandwidth contribution from port's
// running total and notifies the shaper, matching
// srp_decrease_port_bandwidth. Callers must only invoke this on a
// true->false transition of Entry.BWReserved[port].
func (a *Accountant) Decrease(maxFrameSize uint16, extra ExtraByte, port int, packetRateHz int) {
	delta := CalculateStreamBandwidth(maxFrameSize, extra, packetRateHz)
	a.perPort[port] -= delta
	a.logger.Debug("decreasing port shaper bandwidth", "port", port, "bps", a.perPort[port])
	metrics.PortBandwidthBps.WithLabelValues(portLabel(port)).Set(float64(a.perPort[port]))
	if a.shaper != nil {
		a.shaper.SetQavBandwidth(port, a.perPort[port])
	}
}

func portLabel(port int) string {
	// Small fixed set (1-2 ports); avoid strconv import for one call site.
	switch port {
	case 0:
		return "0"
	case 1:
		return "1"
	default:
		return "n"
	}
}
