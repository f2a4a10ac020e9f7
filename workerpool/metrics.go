package workerpool

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// queueDepth tracks tasks that have been submitted but not yet picked up by
// a worker, across every Pool in the process.
var queueDepth int64

// QueueDepth is a prometheus collector reporting the current number of
// queued-but-not-yet-running tasks across all worker pools. Callers mount it
// on their own registry (or the default one) once at startup.
var QueueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
	Namespace: "adapter",
	Subsystem: "workerpool",
	Name:      "queue_depth",
	Help:      "Number of tasks submitted to a worker pool but not yet picked up by a worker.",
}, func() float64 {
	return float64(atomic.LoadInt64(&queueDepth))
})
