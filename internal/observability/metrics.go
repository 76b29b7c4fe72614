package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "thermolink",
			Subsystem: "protocol",
			Name:      "frames_decoded_total",
			Help:      "Frames decoded successfully from the byte stream.",
		},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermolink",
			Subsystem: "protocol",
			Name:      "decode_errors_total",
			Help:      "Frame decode failures by reason.",
		},
		[]string{"reason"},
	)
	bytesDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "thermolink",
			Subsystem: "protocol",
			Name:      "bytes_discarded_total",
			Help:      "Bytes dropped while hunting for frame boundaries.",
		},
	)
	resyncs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "thermolink",
			Subsystem: "protocol",
			Name:      "resyncs_total",
			Help:      "One-byte resync steps after a corrupted frame.",
		},
	)
	hostRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermolink",
			Subsystem: "host",
			Name:      "requests_total",
			Help:      "Host requests by command and outcome.",
		},
		[]string{"command", "outcome"},
	)
	deviceCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thermolink",
			Subsystem: "device",
			Name:      "commands_total",
			Help:      "Device commands dispatched, by instruction and status.",
		},
		[]string{"command", "status"},
	)
)

// Register installs the protocol metrics on the default registerer. Safe
// to call from multiple packages; only the first call registers.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesDecoded,
			decodeErrors,
			bytesDiscarded,
			resyncs,
			hostRequests,
			deviceCommands,
		)
	})
}

func RecordFrameDecoded() {
	framesDecoded.Inc()
}

func RecordDecodeError(reason string) {
	decodeErrors.WithLabelValues(reason).Inc()
}

func RecordBytesDiscarded(n int) {
	bytesDiscarded.Add(float64(n))
}

func RecordResync() {
	resyncs.Inc()
}

func RecordHostRequest(command, outcome string) {
	hostRequests.WithLabelValues(command, outcome).Inc()
}

func RecordDeviceCommand(command string, status uint8) {
	deviceCommands.WithLabelValues(command, strconv.Itoa(int(status))).Inc()
}
