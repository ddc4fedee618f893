package mysql

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exports a Connection's ConnectionStats as Prometheus
// metrics, grounded on JeelKantaria-db-bouncer's metrics.Collector:
// a custom registry plus one gauge/counter per stat, labeled by a
// caller-supplied connection identifier so a pool of Connections shares
// one collector.
type MetricsCollector struct {
	Registry *prometheus.Registry

	bytesSent     *prometheus.CounterVec
	bytesReceived *prometheus.CounterVec
	roundTrips    *prometheus.CounterVec
	authRetries   *prometheus.CounterVec
}

// NewMetricsCollector creates and registers the collector's metrics on
// a fresh registry. Safe to call more than once; each call is
// independent.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()
	c := &MetricsCollector{
		Registry: reg,
		bytesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysql_connection_bytes_sent_total",
				Help: "Total bytes written to the server per connection.",
			},
			[]string{"connection"},
		),
		bytesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysql_connection_bytes_received_total",
				Help: "Total bytes read from the server per connection.",
			},
			[]string{"connection"},
		),
		roundTrips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysql_connection_round_trips_total",
				Help: "Total command/response round trips per connection.",
			},
			[]string{"connection"},
		),
		authRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mysql_connection_auth_retries_total",
				Help: "Total authentication plugin negotiation rounds per connection.",
			},
			[]string{"connection"},
		),
	}
	reg.MustRegister(c.bytesSent, c.bytesReceived, c.roundTrips, c.authRetries)
	return c
}

// Observe snapshots mc's stats under label and adds the delta against
// prev to the collector's counters, returning the new snapshot so the
// caller can pass it back in on the next call.
func (c *MetricsCollector) Observe(label string, mc *Connection, prev ConnectionStats) ConnectionStats {
	cur := mc.Stats()
	c.bytesSent.WithLabelValues(label).Add(float64(cur.BytesSent - prev.BytesSent))
	c.bytesReceived.WithLabelValues(label).Add(float64(cur.BytesReceived - prev.BytesReceived))
	c.roundTrips.WithLabelValues(label).Add(float64(cur.RoundTrips - prev.RoundTrips))
	c.authRetries.WithLabelValues(label).Add(float64(cur.AuthRetries - prev.AuthRetries))
	return cur
}
