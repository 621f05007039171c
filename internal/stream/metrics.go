/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric name constants.
const (
	metricStreamsActive  = "realtime_svg_streams_active"
	metricPartsTotal     = "realtime_svg_stream_parts_total"
	metricDecodeFailures = "realtime_svg_stream_decode_failures_total"
)

// Part emission reasons, used as the reason label on PartsTotal.
const (
	reasonInitial   = "initial"
	reasonUpdate    = "update"
	reasonKeepAlive = "keepalive"
)

// Metrics holds Prometheus metrics for the stream engine.
type Metrics struct {
	// StreamsActive tracks the number of open multipart streams.
	StreamsActive prometheus.Gauge

	// PartsTotal counts emitted parts by reason.
	PartsTotal *prometheus.CounterVec

	// DecodeFailures counts bus payloads that failed to decode as frames.
	DecodeFailures prometheus.Counter
}

// NewMetrics creates the stream engine metrics, registered on reg.
// A nil reg leaves them unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		StreamsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: metricStreamsActive,
			Help: "Number of currently open multipart streams",
		}),

		PartsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricPartsTotal,
			Help: "Total multipart parts emitted by reason",
		}, []string{"reason"}),

		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: metricDecodeFailures,
			Help: "Total bus payloads that failed to decode as frames",
		}),
	}

	for _, reason := range []string{reasonInitial, reasonUpdate, reasonKeepAlive} {
		m.PartsTotal.WithLabelValues(reason).Add(0)
	}
	return m
}
