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

package service

import (
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"slices"
	"sync/atomic"
	"time"

	"github.com/frostbyte73/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livekit/protocol/logger"

	"github.com/veloxvoip/ari-ivr/pkg/config"
	"github.com/veloxvoip/ari-ivr/pkg/ivr"
	"github.com/veloxvoip/ari-ivr/pkg/stats"
	"github.com/veloxvoip/ari-ivr/version"
)

type listenerStopFunc func()
type activeCallsFunc func() ivr.ActiveCalls

// Service wires the observability surfaces around the IVR and owns the
// process lifetime: it runs until the shutdown fuse breaks, then drains
// active calls before stopping the event listener.
type Service struct {
	conf *config.Config
	log  logger.Logger

	promServer   *http.Server
	pprofServer  *http.Server
	healthServer *http.Server

	listenerStop listenerStopFunc
	activeCalls  activeCallsFunc

	mon      *stats.Monitor
	shutdown core.Fuse
	killed   atomic.Bool
}

func NewService(
	conf *config.Config, log logger.Logger,
	listenerStop listenerStopFunc, activeCalls activeCallsFunc, mon *stats.Monitor,
) *Service {
	s := &Service{
		conf: conf,
		log:  log,

		listenerStop: listenerStop,
		activeCalls:  activeCalls,

		mon: mon,
	}
	if conf.PrometheusPort > 0 {
		s.promServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", conf.PrometheusPort),
			Handler: promhttp.Handler(),
		}
	}
	if conf.PProfPort > 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		s.pprofServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", conf.PProfPort),
			Handler: mux,
		}
	}
	if conf.HealthPort > 0 {
		mux := http.NewServeMux()
		s.healthServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", conf.HealthPort),
			Handler: mux,
		}

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			st := s.Health()
			code := http.StatusOK
			if st != stats.HealthOK {
				code = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(code)
			_, _ = w.Write([]byte(st.String()))
		})
	}
	return s
}

func (s *Service) Stop(kill bool) {
	s.mon.Shutdown()
	s.killed.Store(kill)
	s.shutdown.Break()
}

func (s *Service) Run() error {
	s.log.Debugw("starting service", "version", version.Version)

	for _, srv := range []*http.Server{s.promServer, s.pprofServer, s.healthServer} {
		if srv == nil {
			continue
		}
		l, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		defer l.Close()
		go func(srv *http.Server) {
			_ = srv.Serve(l)
		}(srv)
	}

	s.log.Debugw("service ready")

	<-s.shutdown.Watch()
	s.log.Infow("shutting down")

	if !s.killed.Load() {
		shutdownTicker := time.NewTicker(5 * time.Second)
		defer shutdownTicker.Stop()

		for !s.killed.Load() {
			st := s.activeCalls()
			if st.Count == 0 {
				break
			}
			slices.Sort(st.SampleIDs)
			s.log.Infow("waiting for calls to finish",
				"active", st.Count,
				"sample", st.SampleIDs,
			)
			<-shutdownTicker.C
		}
	}

	s.listenerStop()
	return nil
}

func (s *Service) Health() stats.HealthStatus {
	return s.mon.Health()
}
