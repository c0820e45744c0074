package lox

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the per-interpreter counters. They are registered once at
// construction; two interpreters must not share a Registerer.
type metrics struct {
	statements    prometheus.Counter
	calls         *prometheus.CounterVec
	runtimeErrors prometheus.Counter
	lexicalErrors prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		statements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lox",
			Name:      "statements_executed_total",
			Help:      "Statements executed, including those inside blocks and loops.",
		}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lox",
			Name:      "calls_total",
			Help:      "Function calls by kind (user or native).",
		}, []string{"kind"}),
		runtimeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lox",
			Name:      "runtime_errors_total",
			Help:      "Runtime errors reported from top-level statements.",
		}),
		lexicalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lox",
			Name:      "lexical_errors_total",
			Help:      "Lexical diagnostics reported while scanning.",
		}),
	}
	reg.MustRegister(m.statements, m.calls, m.runtimeErrors, m.lexicalErrors)
	return m
}
