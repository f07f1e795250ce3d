package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/keagan/reelcut/internal/timeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for an editing session.
type Metrics struct {
	registry       *prometheus.Registry
	eventsTotal    *prometheus.CounterVec
	clips          prometheus.Gauge
	tracks         prometheus.Gauge
	contentSeconds prometheus.Gauge
	framesRendered prometheus.Counter
	renderErrors   prometheus.Counter
	renderDuration prometheus.Histogram
	waveformsTotal prometheus.Counter
	projectReloads prometheus.Counter
	requestsTotal  prometheus.Counter
	requestErrors  prometheus.Counter
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reelcut_timeline_events_total",
			Help: "Timeline events observed, by kind",
		}, []string{"kind"}),
		clips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reelcut_clips",
			Help: "Clips on the main timeline",
		}),
		tracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reelcut_tracks",
			Help: "Tracks on the main timeline",
		}),
		contentSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reelcut_content_seconds",
			Help: "End time of the last clip on the main timeline",
		}),
		framesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcut_frames_rendered_total",
			Help: "Preview frames composited",
		}),
		renderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcut_render_errors_total",
			Help: "Preview frames that failed to render",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reelcut_render_duration_seconds",
			Help:    "Time spent compositing one preview frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		waveformsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcut_waveforms_generated_total",
			Help: "Waveforms computed and attached to clips",
		}),
		projectReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcut_project_reloads_total",
			Help: "Project files reloaded after a change on disk",
		}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcut_http_requests_total",
			Help: "HTTP requests served",
		}),
		requestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelcut_http_errors_total",
			Help: "HTTP responses with status 400 or above",
		}),
	}

	registry.MustRegister(
		m.eventsTotal,
		m.clips,
		m.tracks,
		m.contentSeconds,
		m.framesRendered,
		m.renderErrors,
		m.renderDuration,
		m.waveformsTotal,
		m.projectReloads,
		m.requestsTotal,
		m.requestErrors,
	)

	return m
}

// ObserveEvent counts one timeline event.
func (m *Metrics) ObserveEvent(e timeline.Event) {
	m.eventsTotal.WithLabelValues(e.Kind.String()).Inc()
}

// Attach counts every event of tl until ctx is cancelled. The returned
// channel closes once the events already queued have been counted.
func (m *Metrics) Attach(ctx context.Context, tl *timeline.Timeline) <-chan struct{} {
	ch := tl.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case e := <-ch:
				m.ObserveEvent(e)
			case <-ctx.Done():
				tl.Unsubscribe(ch)
				for e := range ch {
					m.ObserveEvent(e)
				}
				return
			}
		}
	}()

	return done
}

// UpdateTimeline refreshes the gauges. It reads tl and so must run on the
// goroutine that owns it.
func (m *Metrics) UpdateTimeline(tl *timeline.Timeline) {
	m.clips.Set(float64(len(tl.Clips())))
	m.tracks.Set(float64(len(tl.Tracks())))
	m.contentSeconds.Set(tl.ContentEnd())
}

// ObserveRender records one composited frame.
func (m *Metrics) ObserveRender(d time.Duration, err error) {
	if err != nil {
		m.renderErrors.Inc()
		return
	}
	m.framesRendered.Inc()
	m.renderDuration.Observe(d.Seconds())
}

func (m *Metrics) AddWaveforms(n int) {
	m.waveformsTotal.Add(float64(n))
}

func (m *Metrics) IncReloads() {
	m.projectReloads.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Router serves /metrics and /healthz.
func (m *Metrics) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(m.requestMiddleware)
	r.Get("/metrics", m.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r)
		m.requestsTotal.Inc()
		if wrap.status >= 400 {
			m.requestErrors.Inc()
		}
	})
}
