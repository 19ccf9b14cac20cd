package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gateDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_gate_decisions_total",
		Help: "Access gate decisions by result (allowed, unauthenticated, forbidden).",
	},
	[]string{"result"},
)

var rateLimited = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "auth_rate_limited_total",
		Help: "Requests rejected by the per-IP rate limiter.",
	},
)
