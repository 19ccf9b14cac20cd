package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by status.",
		},
		[]string{"status"},
	)

	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Refresh token rotations by status.",
		},
		[]string{"status"},
	)

	logoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logouts_total",
			Help: "Logouts by scope (one, all).",
		},
		[]string{"scope"},
	)
)
