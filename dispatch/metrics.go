package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var commandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "adapter",
	Subsystem: "dispatch",
	Name:      "command_duration_seconds",
	Help:      "Time taken to execute a device command end to end, including the driver call.",
	Buckets:   prometheus.DefBuckets,
}, []string{"command", "op", "outcome"})

func observeCommand(command, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	commandDuration.WithLabelValues(command, op, outcome).Observe(time.Since(start).Seconds())
}

// Collectors returns the prometheus collectors this package exposes, for
// registration on a caller's registry alongside workerpool.QueueDepth.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{commandDuration}
}
