package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentri_scans_total",
		Help: "Total scans stored, by kind and risk level.",
	}, []string{"kind", "level"})

	scanScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentri_scan_score",
		Help:    "Distribution of stored risk scores.",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})

	remoteFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentri_remote_fallbacks_total",
		Help: "Scans scored locally because the remote scorer failed.",
	})

	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentri_chat_turns_total",
		Help: "Total chat turns by tool used.",
	}, []string{"tool"})
)
