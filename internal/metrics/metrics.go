// Package metrics регистрирует прометеевские метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GateDecisions считает решения шлюза доступа по режимам allow/banner/blocked.
var GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "entitlement_gate_decisions_total",
	Help: "Gate decisions by resulting mode.",
}, []string{"mode"})

// GateDegradedAllows считает fail-open решения отдельно от чистых allow:
// деградация по таймауту или ошибке бэкенда должна быть видна в мониторинге.
var GateDegradedAllows = promauto.NewCounter(prometheus.CounterOpts{
	Name: "entitlement_gate_degraded_allows_total",
	Help: "Fail-open allow decisions caused by backend errors or timeouts.",
})

// TrialExpirations считает подписки, переведённые пакетной задачей в expired.
var TrialExpirations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "entitlement_trial_expirations_total",
	Help: "Trial subscriptions transitioned to expired by the batch job.",
})
