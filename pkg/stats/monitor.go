// Copyright 2025 VeloxVOIP.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type HealthStatus int

const (
	HealthOK HealthStatus = iota
	HealthTerminating
)

func (s HealthStatus) String() string {
	switch s {
	case HealthOK:
		return "ok"
	case HealthTerminating:
		return "terminating"
	}
	return "unknown"
}

// Routing outcomes, used as the destination label on routed-call counters.
const (
	RouteQueue     = "queue"
	RouteExtension = "extension"
	RouteFallback  = "fallback"
)

type Monitor struct {
	callsStarted     prometheus.Counter
	callsRouted      *prometheus.CounterVec
	transferFailures prometheus.Counter
	configReloads    prometheus.Counter
	activeCalls      prometheus.Gauge

	shutdown atomic.Bool
}

// NewMonitor registers the IVR collectors with reg; a nil reg uses the
// default prometheus registerer.
func NewMonitor(reg prometheus.Registerer) (*Monitor, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Monitor{
		callsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ivr",
			Name:      "calls_started_total",
			Help:      "Number of calls entering the IVR application.",
		}),
		callsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ivr",
			Name:      "calls_routed_total",
			Help:      "Number of calls routed out of the IVR, by destination kind.",
		}, []string{"destination"}),
		transferFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ivr",
			Name:      "transfer_failures_total",
			Help:      "Number of terminal transfers rejected by the control plane.",
		}),
		configReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ivr",
			Name:      "config_reloads_total",
			Help:      "Number of successful policy document reloads.",
		}),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ivr",
			Name:      "active_calls",
			Help:      "Number of calls currently tracked by the IVR.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.callsStarted, m.callsRouted, m.transferFailures, m.configReloads, m.activeCalls,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Monitor) CallStarted() {
	m.callsStarted.Inc()
	m.activeCalls.Inc()
}

func (m *Monitor) CallEnded() {
	m.activeCalls.Dec()
}

func (m *Monitor) CallRouted(destination string) {
	m.callsRouted.WithLabelValues(destination).Inc()
}

func (m *Monitor) TransferFailed() {
	m.transferFailures.Inc()
}

func (m *Monitor) ConfigReloaded() {
	m.configReloads.Inc()
}

func (m *Monitor) Shutdown() {
	m.shutdown.Store(true)
}

func (m *Monitor) Health() HealthStatus {
	if m.shutdown.Load() {
		return HealthTerminating
	}
	return HealthOK
}
