package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poppang-auth/internal/domain"
)

// Flujos de login.
const (
	FlowWeb    = "web"
	FlowMobile = "mobile"
	FlowAuto   = "auto"
)

// ProviderUnresolved etiqueta intentos que fallan antes de conocer el proveedor
// (p. ej. auto login de un uid inexistente).
const ProviderUnresolved domain.Provider = "UNRESOLVED"

// Recorder registra resultados de login y registro. Un Recorder nil no hace nada.
type Recorder struct {
	registry *prometheus.Registry
	logins   *prometheus.CounterVec
	signups  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poppang",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by provider, flow and outcome.",
	}, []string{"provider", "flow", "outcome"})
	signups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poppang",
		Subsystem: "auth",
		Name:      "signups_total",
		Help:      "Signup completions by provider and outcome.",
	}, []string{"provider", "outcome"})
	registry.MustRegister(logins, signups)

	return &Recorder{registry: registry, logins: logins, signups: signups}
}

func (r *Recorder) Login(provider domain.Provider, flow, outcome string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(providerLabel(provider), flow, outcome).Inc()
}

func (r *Recorder) Signup(provider domain.Provider, outcome string) {
	if r == nil {
		return
	}
	r.signups.WithLabelValues(providerLabel(provider), outcome).Inc()
}

// Handler expone el registro en formato texto de Prometheus.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func providerLabel(p domain.Provider) string {
	if p == "" {
		return "unknown"
	}
	return p.Lower()
}
