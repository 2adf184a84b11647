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

package call

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type routerMetrics struct {
	invocations *prometheus.CounterVec
}

func (r *Router) initMetrics() {
	r.metrics = &routerMetrics{
		invocations: register(r.promRegistry, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_call_invocations_total",
				Help: "number of proposal calls by method and result",
			},
			[]string{"method", "result"},
		)),
	}
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
