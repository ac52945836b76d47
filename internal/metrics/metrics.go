// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus instruments for the preparation
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bcem/ragprep/internal/pipeline"
)

const namespace = "ragprep"

// Metrics records per-email pipeline outcomes.
type Metrics struct {
	registry  *prometheus.Registry
	emails    *prometheus.CounterVec
	documents prometheus.Counter
	chunks    prometheus.Counter
	degraded  *prometheus.CounterVec
	quality   prometheus.Histogram
	duration  prometheus.Histogram
}

// New creates the instruments on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Emails handled, by outcome status and reason.",
		}, []string{"status", "reason"}),
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Search documents produced.",
		}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Text chunks produced.",
		}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_stages_total",
			Help:      "Cleaning stages that failed and fell back to their input.",
		}, []string{"stage"}),
		quality: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Quality score of cleaned email text.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_duration_seconds",
			Help:      "Time spent preparing and publishing one email.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
	reg.MustRegister(m.emails, m.documents, m.chunks, m.degraded, m.quality, m.duration)
	return m
}

// Observe records one outcome. It satisfies pipeline.Observer.
func (m *Metrics) Observe(o pipeline.Outcome) {
	m.emails.WithLabelValues(string(o.Status), o.Reason).Inc()
	m.duration.Observe(o.Duration.Seconds())
	for _, stage := range o.Degraded {
		m.degraded.WithLabelValues(stage).Inc()
	}
	if o.Status != pipeline.StatusProcessed {
		return
	}
	m.documents.Add(float64(o.Documents))
	m.chunks.Add(float64(o.Chunks))
	m.quality.Observe(o.QualityScore)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
