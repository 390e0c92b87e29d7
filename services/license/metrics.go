package license

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "license_validations_total",
		Help: "License key validations by outcome.",
	}, []string{"result"})

	issuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licenses_issued_total",
		Help: "Licenses issued.",
	})

	revokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licenses_revoked_total",
		Help: "License revocations, including repeats.",
	})

	extendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "licenses_extended_total",
		Help: "License expiry extensions.",
	})
)
