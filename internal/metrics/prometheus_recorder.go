package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "solrctl"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	polls         *prom.CounterVec
	documentCount *prom.GaugeVec
	indexVersion  *prom.GaugeVec
	versionBumps  *prom.CounterVec
	swaps         *prom.CounterVec
	lastRun       prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
// A fresh registry is created when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of orchestrated builds",
			Buckets:   []float64{30, 60, 300, 900, 1800, 3600, 7200, 14400},
		}, []string{"mode"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by mode and terminal classification",
		}, []string{"mode", "outcome"}),
		polls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "status_polls_total",
			Help:      "Status polls issued while waiting for an import",
		}, []string{"core"}),
		documentCount: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "core_documents",
			Help:      "Document count observed at the end of the last operation",
		}, []string{"core"}),
		indexVersion: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "core_index_version",
			Help:      "Index version observed at the end of the last operation",
		}, []string{"core"}),
		versionBumps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "version_bumps_total",
			Help:      "Sentinel writes issued to advance an index version",
		}, []string{"core", "result"}),
		swaps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "core_swaps_total",
			Help:      "Core swap attempts by result",
		}, []string{"result"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the metrics file was last written",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.polls, pr.documentCount,
		pr.indexVersion, pr.versionBumps, pr.swaps, pr.lastRun)
	return pr
}

// Registry returns the registry the recorder's metrics live in.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.reg
}

func (p *PrometheusRecorder) ObserveBuildDuration(mode string, d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(mode, outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(mode, outcome).Inc()
}

func (p *PrometheusRecorder) IncPolls(core string) {
	if p == nil {
		return
	}
	p.polls.WithLabelValues(core).Inc()
}

func (p *PrometheusRecorder) SetCoreStatus(core string, documentCount int64, indexVersion float64) {
	if p == nil {
		return
	}
	p.documentCount.WithLabelValues(core).Set(float64(documentCount))
	p.indexVersion.WithLabelValues(core).Set(indexVersion)
}

func (p *PrometheusRecorder) IncVersionBump(core string, changed bool) {
	if p == nil {
		return
	}
	res := "unchanged"
	if changed {
		res = "changed"
	}
	p.versionBumps.WithLabelValues(core, res).Inc()
}

func (p *PrometheusRecorder) IncSwap(swapped bool) {
	if p == nil {
		return
	}
	res := "refused"
	if swapped {
		res = "swapped"
	}
	p.swaps.WithLabelValues(res).Inc()
}

// WriteTextfile stamps the last-run gauge and writes every metric in the
// registry to path in the node exporter textfile format.
func (p *PrometheusRecorder) WriteTextfile(path string, now time.Time) error {
	p.lastRun.Set(float64(now.Unix()))
	return prom.WriteToTextfile(path, p.reg)
}
