package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts operation outcomes on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "user_admin",
		Name:      "operation_outcomes_total",
		Help:      "User operations by outcome and response mode.",
	}, []string{"operation", "outcome", "mode"})
	registry.MustRegister(outcomes)

	return &Recorder{registry: registry, outcomes: outcomes}
}

func (r *Recorder) Observe(operation, outcome, mode string) {
	r.outcomes.WithLabelValues(operation, outcome, mode).Inc()
}

// Outcomes exposes the counter vector for inspection.
func (r *Recorder) Outcomes() *prometheus.CounterVec {
	return r.outcomes
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}
