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

package governance

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	totalDeposits prometheus.Gauge
	proposals     prometheus.Counter
	votes         *prometheus.CounterVec
	executions    *prometheus.CounterVec
	rejected      *prometheus.CounterVec
}

func (e *Engine) initMetrics() {
	e.metrics = &engineMetrics{}
	e.metrics.totalDeposits = register(e.promRegistry, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tally_governance_total_deposits",
		Help: "vote token units held in the deposit pool",
	}))
	e.metrics.proposals = register(e.promRegistry, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tally_governance_proposals_total",
		Help: "number of proposals created",
	}))
	e.metrics.votes = register(e.promRegistry, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_governance_votes_total",
			Help: "number of votes cast by decision",
		},
		[]string{"decision"},
	))
	e.metrics.executions = register(e.promRegistry, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_governance_executions_total",
			Help: "number of finished proposals by outcome",
		},
		[]string{"outcome"},
	))
	e.metrics.rejected = register(e.promRegistry, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_governance_rejected_operations_total",
			Help: "number of rejected operations by operation and reason",
		},
		[]string{"operation", "reason"},
	))
}

// register adds c to the registry. When an earlier instance already
// registered the same metric, that collector is returned instead.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
