// Copyright 2026 Blink Labs Software
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

package objstore

import "github.com/prometheus/client_golang/prometheus"

const metricNamePrefix = "tally_database_blob_object_"

type storeMetrics struct {
	ops   *prometheus.CounterVec
	bytes *prometheus.CounterVec
}

func (s *Store) registerMetrics() error {
	constLabels := prometheus.Labels{"backend": s.backend}
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        metricNamePrefix + "ops_total",
			Help:        "Total number of object storage requests",
			ConstLabels: constLabels,
		},
		[]string{"op", "result"},
	)
	bytes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        metricNamePrefix + "bytes_total",
			Help:        "Total bytes read from and written to object storage",
			ConstLabels: constLabels,
		},
		[]string{"op"},
	)
	for _, collector := range []prometheus.Collector{ops, bytes} {
		if err := s.promRegistry.Register(collector); err != nil {
			return err
		}
	}
	s.metrics = &storeMetrics{ops: ops, bytes: bytes}
	return nil
}

func (s *Store) recordOp(op string, ok bool, size int) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	s.metrics.ops.WithLabelValues(op, result).Inc()
	if size > 0 {
		s.metrics.bytes.WithLabelValues(op).Add(float64(size))
	}
}
