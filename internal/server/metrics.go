package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_chat_requests_total",
			Help: "Chat requests by outcome code",
		},
		[]string{"code"},
	)

	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_generation_duration_seconds",
			Help:    "Time spent producing a support answer",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"provider"},
	)
)

const codeOK = "OK"
