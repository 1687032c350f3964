package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

const namespace = "scopebuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	pagesRendered *prom.CounterVec
	scopes        prom.Gauge
	lastBuild     prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual build stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Total build duration",
		Buckets:   prom.DefBuckets,
	})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_outcomes_total",
		Help:      "Build outcomes by final status",
	}, []string{"outcome"})
	pr.pagesRendered = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "pages_rendered_total",
		Help:      "Pages written by page type",
	}, []string{"type"})
	pr.scopes = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "scopes",
		Help:      "Scopes in the most recent build",
	})
	pr.lastBuild = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "last_build_timestamp_seconds",
		Help:      "Unix time the most recent build finished",
	})
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.pagesRendered, pr.scopes, pr.lastBuild)
	return pr
}

// Registry returns the registry the collectors are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
	p.lastBuild.SetToCurrentTime()
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncPagesRendered(pageType string) {
	if p == nil {
		return
	}
	p.pagesRendered.WithLabelValues(pageType).Inc()
}

func (p *PrometheusRecorder) SetScopes(n int) {
	if p == nil {
		return
	}
	p.scopes.Set(float64(n))
}

// WriteTextfile exports the registry to path in the text exposition format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write metrics textfile").
			WithContext("path", path).
			Build()
	}
	return nil
}
