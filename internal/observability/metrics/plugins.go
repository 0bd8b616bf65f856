package metrics

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"MicroFrontend-Portal/pkg/plugin"
)

var (
	pluginLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mfe_plugin_loads_total",
			Help: "Plugin load outcomes by plugin and result.",
		},
		[]string{"plugin", "result"},
	)
	pluginLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mfe_plugin_fetch_duration_seconds",
			Help:    "Time spent fetching a failed plugin bundle.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"plugin"},
	)
	loadSessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mfe_plugin_load_session_duration_seconds",
			Help:    "Duration of successful bulk plugin loads.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pluginsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mfe_plugins_registered",
			Help: "Number of plugins registered by the last successful load.",
		},
	)
)

// PluginEventSink records registry load events.
func PluginEventSink() plugin.EventSink {
	var registered atomic.Int64
	return func(_ context.Context, ev plugin.Event) {
		switch ev.Type {
		case plugin.EventRegistered:
			pluginLoadsTotal.WithLabelValues(ev.Plugin, "registered").Inc()
			registered.Add(1)
		case plugin.EventFailed:
			pluginLoadsTotal.WithLabelValues(ev.Plugin, "failed").Inc()
			if ev.Duration > 0 {
				pluginLoadDuration.WithLabelValues(ev.Plugin).Observe(ev.Duration.Seconds())
			}
		case plugin.EventCompleted:
			loadSessionDuration.Observe(ev.Duration.Seconds())
			pluginsRegistered.Set(float64(registered.Swap(0)))
		}
	}
}
