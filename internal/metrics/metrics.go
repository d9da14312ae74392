package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes relay counters to Prometheus. It satisfies relay.Recorder.
type Collector struct {
	registry *prometheus.Registry

	polls     prometheus.Counter
	fetched   prometheus.Counter
	published prometheus.Counter
	skipped   prometheus.Counter
	// cursor is a float64 and rounds IDs above 2^53; cursorInfo carries the
	// exact ID as a label.
	cursor     prometheus.Gauge
	cursorInfo *prometheus.GaugeVec
}

// NewCollector registers the relay metrics, prefixed with serviceName, on a
// fresh registry.
func NewCollector(serviceName string) *Collector {
	prefix := strings.ReplaceAll(strings.TrimSpace(serviceName), "-", "_")

	c := &Collector{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_polls_total",
			Help: "Number of timeline polls",
		}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_statuses_fetched_total",
			Help: "Statuses returned by the timeline",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_statuses_published_total",
			Help: "Statuses posted to the channel",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_statuses_skipped_total",
			Help: "Statuses skipped because they were already in the channel",
		}),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_cursor",
			Help: "Newest status ID processed, approximate above 2^53",
		}),
		cursorInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_cursor_info",
			Help: "Always 1; status_id is the exact newest status ID processed",
		}, []string{"status_id"}),
	}

	c.registry.MustRegister(
		c.polls, c.fetched, c.published, c.skipped, c.cursor, c.cursorInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Polled()       { c.polls.Inc() }
func (c *Collector) Fetched(n int) { c.fetched.Add(float64(n)) }
func (c *Collector) Published()    { c.published.Inc() }
func (c *Collector) Skipped()      { c.skipped.Inc() }

func (c *Collector) Cursor(id int64) {
	c.cursor.Set(float64(id))
	c.cursorInfo.Reset()
	c.cursorInfo.WithLabelValues(strconv.FormatInt(id, 10)).Set(1)
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
