package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "tuamail"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Domain metrics
	MailSent           prometheus.Counter
	ChatMessagesSent   prometheus.Counter
	RemindersScheduled prometheus.Counter
	RemindersFired     prometheus.Counter
	RemindersStale     prometheus.Counter
	RemindersRearmed   prometheus.Counter

	// Snapshot metrics
	SnapshotSaves    *prometheus.CounterVec
	SnapshotRestores *prometheus.CounterVec
	RestoreFaults    prometheus.Counter
	SnapshotBytes    prometheus.Gauge

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every metric registered, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		MailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Emails delivered to an inbox.",
		}),
		ChatMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat messages appended to a thread.",
		}),
		RemindersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "reminder",
			Name:      "scheduled_total",
			Help:      "Reminders set by users.",
		}),
		RemindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "reminder",
			Name:      "fired_total",
			Help:      "Reminders that became due.",
		}),
		RemindersStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "reminder",
			Name:      "stale_callbacks_total",
			Help:      "Timer callbacks that found their reminder cancelled, replaced or already fired.",
		}),
		RemindersRearmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "reminder",
			Name:      "rearmed_total",
			Help:      "Pending reminders re-armed after a restore.",
		}),
		SnapshotSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "snapshot",
			Name:      "saves_total",
			Help:      "Snapshot save attempts by result.",
		}, []string{"result"}),
		SnapshotRestores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "snapshot",
			Name:      "restores_total",
			Help:      "Snapshot restores by detected shape.",
		}, []string{"shape"}),
		RestoreFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "snapshot",
			Name:      "restore_faults_total",
			Help:      "Snapshots that matched no known shape; state was reset to empty.",
		}),
		SnapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "snapshot",
			Name:      "size_bytes",
			Help:      "Size of the last saved or restored snapshot blob.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.MailSent,
		r.ChatMessagesSent,
		r.RemindersScheduled,
		r.RemindersFired,
		r.RemindersStale,
		r.RemindersRearmed,
		r.SnapshotSaves,
		r.SnapshotRestores,
		r.RestoreFaults,
		r.SnapshotBytes,
		r.RequestsTotal,
		r.RequestDuration,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Prometheus returns the underlying registry, for components that register
// their own collectors (the Badger backend).
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// MailDelivered records one delivered email.
func (r *Registry) MailDelivered() {
	if r != nil {
		r.MailSent.Inc()
	}
}

// ChatSent records one chat message.
func (r *Registry) ChatSent() {
	if r != nil {
		r.ChatMessagesSent.Inc()
	}
}

// ReminderScheduled records a reminder being set.
func (r *Registry) ReminderScheduled() {
	if r != nil {
		r.RemindersScheduled.Inc()
	}
}

// ReminderFired records a reminder becoming due.
func (r *Registry) ReminderFired() {
	if r != nil {
		r.RemindersFired.Inc()
	}
}

// ReminderStale records a timer callback that found nothing to fire.
func (r *Registry) ReminderStale() {
	if r != nil {
		r.RemindersStale.Inc()
	}
}

// RemindersRearmedAdd records n reminders re-armed after restore.
func (r *Registry) RemindersRearmedAdd(n int) {
	if r != nil {
		r.RemindersRearmed.Add(float64(n))
	}
}

// SnapshotSaved records a save attempt and, on success, the blob size.
func (r *Registry) SnapshotSaved(ok bool, size int) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.SnapshotSaves.WithLabelValues(result).Inc()
	if ok {
		r.SnapshotBytes.Set(float64(size))
	}
}

// SnapshotRestored records a restore outcome by shape.
func (r *Registry) SnapshotRestored(shape string, size int) {
	if r == nil {
		return
	}
	r.SnapshotRestores.WithLabelValues(shape).Inc()
	if shape == "fault" {
		r.RestoreFaults.Inc()
		return
	}
	r.SnapshotBytes.Set(float64(size))
}

// ObserveRequest records one HTTP request.
func (r *Registry) ObserveRequest(method, route string, code int, seconds float64) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, statusText(code)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
