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

package badger

import (
	"github.com/prometheus/client_golang/prometheus"
)

const badgerMetricNamePrefix = "tally_database_blob_"

type blobMetrics struct {
	ops *prometheus.CounterVec
}

func (d *BlobStoreBadger) registerBlobMetrics() error {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: badgerMetricNamePrefix + "ops_total",
			Help: "Total number of blob operations",
		},
		[]string{"op", "result"},
	)
	lsmSize := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: badgerMetricNamePrefix + "lsm_size_bytes",
			Help: "Size of the blob store LSM tree",
		},
		func() float64 {
			lsm, _ := d.db.Size()
			return float64(lsm)
		},
	)
	vlogSize := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: badgerMetricNamePrefix + "vlog_size_bytes",
			Help: "Size of the blob store value log",
		},
		func() float64 {
			_, vlog := d.db.Size()
			return float64(vlog)
		},
	)
	for _, collector := range []prometheus.Collector{ops, lsmSize, vlogSize} {
		if err := d.promRegistry.Register(collector); err != nil {
			return err
		}
	}
	d.metrics = &blobMetrics{ops: ops}
	return nil
}

func (d *BlobStoreBadger) recordOp(op string, ok bool) {
	if d.metrics == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	d.metrics.ops.WithLabelValues(op, result).Inc()
}
