/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"time"

	"github.com/Comcast/lexicon/library"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for a Service.
//
// A nil *Metrics is fine and does nothing.
type Metrics struct {
	messagesTotal   *prometheus.CounterVec
	hitsTotal       *prometheus.CounterVec
	traceErrorTotal prometheus.Counter
	processDuration prometheus.Histogram
}

// NewMetrics creates and registers the metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexicon",
			Subsystem: "service",
			Name:      "messages_total",
			Help:      "Messages processed by result",
		}, []string{"result"}),

		hitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lexicon",
			Subsystem: "service",
			Name:      "hits_total",
			Help:      "Matches by lexicon",
		}, []string{"lexicon"}),

		traceErrorTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lexicon",
			Subsystem: "service",
			Name:      "trace_errors_total",
			Help:      "Errors reported while generating replies",
		}),

		processDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lexicon",
			Subsystem: "service",
			Name:      "process_duration_seconds",
			Help:      "Time spent answering a message",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.messagesTotal,
		m.hitsTotal,
		m.traceErrorTotal,
		m.processDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Observe records one processing result.
func (m *Metrics) Observe(r *library.Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "unmatched"
	if r.Matched {
		result = "matched"
		m.hitsTotal.WithLabelValues(r.Lexicon).Inc()
	}
	m.messagesTotal.WithLabelValues(result).Inc()
	if r.Traces != nil {
		m.traceErrorTotal.Add(float64(len(r.Traces.Errors())))
	}
	m.processDuration.Observe(elapsed.Seconds())
}
