package persist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_persist_ops_total",
		Help: "Persistence operations by outcome (ok, failed, rejected).",
	}, []string{"outcome"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "easel_persist_queue_depth",
		Help: "Number of persistence operations waiting behind the in-flight one.",
	})
)
