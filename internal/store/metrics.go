package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_store_mutations_total",
		Help: "Store mutation attempts by action and outcome (applied, noop, rejected, dropped).",
	}, []string{"action", "outcome"})

	guardDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easel_guard_drops_total",
		Help: "Mutation attempts dropped by the rate guard, by reason.",
	}, []string{"reason"})
)
