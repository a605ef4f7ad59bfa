package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import results recorded by Recorder
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultAborted   = "aborted"
)

// Recorder holds the bulk import collectors on its own registry
type Recorder struct {
	registry *prometheus.Registry

	imports   *prometheus.CounterVec
	rows      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	templates *prometheus.CounterVec
}

// NewRecorder registers the import collectors plus the Go and process collectors
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "killay",
			Subsystem: "bulk",
			Name:      "imports_total",
			Help:      "Bulk imports broken down by action and result.",
		}, []string{"action", "result"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "killay",
			Subsystem: "bulk",
			Name:      "rows_total",
			Help:      "Spreadsheet rows processed by action and result.",
		}, []string{"action", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "killay",
			Subsystem: "bulk",
			Name:      "import_duration_seconds",
			Help:      "Latency of validate and execute for one upload.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"action", "result"}),
		templates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "killay",
			Subsystem: "bulk",
			Name:      "templates_total",
			Help:      "Template workbooks generated by action.",
		}, []string{"action"}),
	}
}

// ObserveImport records one finished upload
func (r *Recorder) ObserveImport(action, result string, rows int, elapsed time.Duration) {
	if r == nil {
		return
	}
	labels := prometheus.Labels{"action": action, "result": result}
	r.imports.With(labels).Inc()
	r.rows.With(labels).Add(float64(rows))
	r.duration.With(labels).Observe(elapsed.Seconds())
}

// ObserveTemplate records one generated template
func (r *Recorder) ObserveTemplate(action string) {
	if r == nil {
		return
	}
	r.templates.With(prometheus.Labels{"action": action}).Inc()
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
