package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var classifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "chatsweep_classify_duration_sec",
	Help: "Total duration of message classification",
}, []string{"mode"})

var classifyVerdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatsweep_classify_verdicts",
	Help: "Number of classification verdicts returned",
}, []string{"category"})

var checkErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatsweep_check_errors",
	Help: "Number of checks which failed and were treated as no-signal",
}, []string{"check"})

var checkPanicCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatsweep_check_panics",
	Help: "Number of checks which panicked during evaluation",
}, []string{"check"})

var imageDownloadCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatsweep_image_downloads",
	Help: "Number of image downloads attempted on the QR path",
}, []string{"outcome"})

var retentionRecordCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatsweep_retention_records",
	Help: "Number of messages recorded for delayed cleanup",
})
