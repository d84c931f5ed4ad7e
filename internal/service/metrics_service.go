package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the scheduling lifecycle.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	attendanceGenerated prometheus.Counter
	reconcileCreated    prometheus.Counter
	reconcileDeleted    prometheus.Counter
	checkins            prometheus.Counter
	checkouts           prometheus.Counter
	geofenceRejections  prometheus.Counter
	sweepMarked         *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	attendanceGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_generated_total",
		Help: "Total attendance rows created by the generator",
	})

	reconcileCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teaching_reconcile_created_total",
		Help: "Teaching slots created by the weekly reconciler",
	})

	reconcileDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teaching_reconcile_deleted_total",
		Help: "Stale teaching slots removed by the weekly reconciler",
	})

	checkins := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teaching_checkins_total",
		Help: "Successful staff check-ins",
	})

	checkouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teaching_checkouts_total",
		Help: "Successful staff check-outs",
	})

	geofenceRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geofence_rejections_total",
		Help: "Check-in or check-out attempts rejected by the geofence",
	})

	sweepMarked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "absence_sweep_marked_total",
		Help: "Rows flipped to absent by the daily sweep",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, attendanceGenerated,
		reconcileCreated, reconcileDeleted, checkins, checkouts,
		geofenceRejections, sweepMarked, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		attendanceGenerated: attendanceGenerated,
		reconcileCreated:    reconcileCreated,
		reconcileDeleted:    reconcileDeleted,
		checkins:            checkins,
		checkouts:           checkouts,
		geofenceRejections:  geofenceRejections,
		sweepMarked:         sweepMarked,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordAttendanceGenerated counts generator output.
func (m *MetricsService) RecordAttendanceGenerated(created int) {
	if m == nil || created <= 0 {
		return
	}
	m.attendanceGenerated.Add(float64(created))
}

// RecordReconcile counts reconciler churn.
func (m *MetricsService) RecordReconcile(created, deleted int) {
	if m == nil {
		return
	}
	if created > 0 {
		m.reconcileCreated.Add(float64(created))
	}
	if deleted > 0 {
		m.reconcileDeleted.Add(float64(deleted))
	}
}

// RecordCheckin counts a successful check-in.
func (m *MetricsService) RecordCheckin() {
	if m != nil {
		m.checkins.Inc()
	}
}

// RecordCheckout counts a successful check-out.
func (m *MetricsService) RecordCheckout() {
	if m != nil {
		m.checkouts.Inc()
	}
}

// RecordGeofenceRejection counts a rejected location check.
func (m *MetricsService) RecordGeofenceRejection() {
	if m != nil {
		m.geofenceRejections.Inc()
	}
}

// RecordSweep counts rows flipped by the daily sweep.
func (m *MetricsService) RecordSweep(attendance, teaching int) {
	if m == nil {
		return
	}
	if attendance > 0 {
		m.sweepMarked.WithLabelValues("attendance").Add(float64(attendance))
	}
	if teaching > 0 {
		m.sweepMarked.WithLabelValues("teaching").Add(float64(teaching))
	}
}
