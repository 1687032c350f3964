// Package metrics provides build metrics for scopebuild.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder:
//
//	svc := build.NewBuildService().WithRecorder(metrics.NewPrometheusRecorder(nil))
//
// PrometheusRecorder registers its collectors on a caller-supplied registry.
// A CLI run has no scrape endpoint, so WriteTextfile exports the registry in
// the node-exporter textfile format after each build.
package metrics
