// Package metrics holds the Prometheus collectors for sync jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	stageDurationBucketStart  = 0.05
	stageDurationBucketFactor = 2
	stageDurationBucketCount  = 14
)

const (
	segmentsBucketStart  = 1
	segmentsBucketFactor = 2
	segmentsBucketCount  = 12
)

// Job outcomes recorded by JobsTotal.
const (
	ResultDone     = "done"
	ResultFailed   = "failed"
	ResultRejected = "rejected"
)

// JobsTotal counts sync jobs by outcome.
var JobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dubsync_jobs_total",
		Help: "Sync jobs by outcome",
	},
	[]string{"result"},
)

// StageDuration observes the wall time of each pipeline stage.
var StageDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "dubsync_stage_duration_seconds",
		Help: "Time taken by a sync pipeline stage",
		Buckets: prometheus.ExponentialBuckets(
			stageDurationBucketStart,
			stageDurationBucketFactor,
			stageDurationBucketCount,
		),
	},
	[]string{"stage"},
)

// SegmentsPerTimeline observes how many segments a built timeline has.
var SegmentsPerTimeline = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "dubsync_timeline_segments",
		Help: "Number of segments in a built timeline",
		Buckets: prometheus.ExponentialBuckets(
			segmentsBucketStart,
			segmentsBucketFactor,
			segmentsBucketCount,
		),
	},
)

func init() {
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(SegmentsPerTimeline)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
