// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netserver Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values for operation metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Reset code outcome label values.
const (
	OutcomeIssued    = "issued"
	OutcomeRefreshed = "refreshed"
	OutcomeConsumed  = "consumed"
)

// Operations counts service operations by name and status.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_auth_operations_total",
		Help: "Total number of auth service operations",
	},
	[]string{"operation", "status", "code"},
)

// OperationDuration observes service operation latency.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "accounts_auth_operation_duration_seconds",
		Help:    "Auth service operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ResetCodes counts reset code lifecycle transitions.
var ResetCodes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_reset_codes_total",
		Help: "Total number of reset codes by outcome",
	},
	[]string{"outcome"},
)

// DeliveryFailures counts reset codes that could not be delivered.
var DeliveryFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "accounts_reset_delivery_failures_total",
		Help: "Total number of failed reset code deliveries by channel",
	},
	[]string{"channel"},
)

// TokensSwept counts expired reset tokens removed by the sweeper.
var TokensSwept = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "accounts_reset_tokens_swept_total",
		Help: "Total number of expired reset tokens removed",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
	reg.MustRegister(OperationDuration)
	reg.MustRegister(ResetCodes)
	reg.MustRegister(DeliveryFailures)
	reg.MustRegister(TokensSwept)
}

func recordOperation(operation string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	Operations.WithLabelValues(operation, status, ErrorCode(err)).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
