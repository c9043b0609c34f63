package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application collectors. The process and Go collectors
// are registered next to them so one scrape covers everything.
var Registry = prometheus.NewRegistry()

var (
	Downloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "epreuvespro",
		Name:      "downloads_total",
		Help:      "Served downloads by item kind and grant reason.",
	}, []string{"kind", "reason"})

	Denials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "epreuvespro",
		Name:      "access_denied_total",
		Help:      "Refused downloads by item kind and reason.",
	}, []string{"kind", "reason"})

	Registrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "epreuvespro",
		Name:      "registrations_total",
		Help:      "Created accounts.",
	})

	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "epreuvespro",
		Name:      "logins_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	PlanActivations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "epreuvespro",
		Name:      "plan_activations_total",
		Help:      "Plan changes recorded by operators.",
	}, []string{"plan"})
)

func init() {
	Registry.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
		Downloads,
		Denials,
		Registrations,
		Logins,
		PlanActivations,
	)
}

func RecordDownload(kind, reason string) {
	Downloads.WithLabelValues(kind, reason).Inc()
}

func RecordDenial(kind, reason string) {
	Denials.WithLabelValues(kind, reason).Inc()
}

func RecordLogin(ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	Logins.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
