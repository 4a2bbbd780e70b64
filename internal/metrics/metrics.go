// Package metrics exposes Prometheus counters for identity outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "registrations_total",
		Help:      "Registration attempts by result.",
	}, []string{"result"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "code_verifications_total",
		Help:      "Verification code submissions by result.",
	}, []string{"result"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "logo_uploads_total",
		Help:      "Company logo uploads by result.",
	}, []string{"result"})

	CodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "code_collisions_total",
		Help:      "Generated verification codes rejected by the unique index.",
	})
)
