/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/trickstercache/reelsync/cmd/reelsync/config"
	"github.com/trickstercache/reelsync/pkg/cache/providers"
	"github.com/trickstercache/reelsync/pkg/daemon/instance"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

const (
	// MetricsPath serves the Prometheus metrics
	MetricsPath = "/metrics"
	// PingPath answers liveness checks
	PingPath = "/ping"
	// StatusPath reports connectivity and offline queue state
	StatusPath = "/status"
)

// Status is the body of the status handler
type Status struct {
	Online       bool      `json:"online"`
	Degraded     bool      `json:"degraded"`
	SharedCache  bool      `json:"sharedCache"`
	Pending      int       `json:"pending"`
	LastSync     time.Time `json:"lastSync,omitzero"`
	SnapshotSync time.Time `json:"snapshotSync,omitzero"`
}

func statusHandler(si *instance.ServerInstance) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s := Status{
			Online:       si.Monitor.IsOnline(),
			Degraded:     si.Degraded,
			SharedCache:  sharedCache(si.Config.CacheOptions().Provider, si.Degraded),
			Pending:      si.Queue.PendingCount(),
			LastSync:     si.Queue.LastSyncTime(),
			SnapshotSync: si.Snapshot.LastSync(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s)
	}
}

// sharedCache reports whether durable state is visible to other processes.
// A degraded cache is always process-local.
func sharedCache(provider string, degraded bool) bool {
	return !degraded && providers.IsRemote(provider)
}

func pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("pong"))
}

// newRouter returns the handler of the metrics listener
func newRouter(si *instance.ServerInstance) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, metrics.Handler())
	mux.HandleFunc(PingPath, pingHandler)
	mux.Handle(StatusPath, statusHandler(si))
	return mux
}

// startMetricsListener serves the metrics router on the configured address.
// A zero port disables the listener.
func startMetricsListener(conf *config.Config,
	si *instance.ServerInstance) (*http.Server, error) {
	if conf.Metrics == nil || conf.Metrics.ListenPort <= 0 {
		return nil, nil
	}
	addr := fmt.Sprintf("%s:%d", conf.Metrics.ListenAddress, conf.Metrics.ListenPort)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	svr := &http.Server{
		Handler:           newRouter(si),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("http listener starting",
		logging.Pairs{"listenerName": "metricsListener", "address": addr})
	go func() {
		if err := svr.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorSynchronous("http listener stopping",
				logging.Pairs{"listenerName": "metricsListener", "detail": err.Error()})
		}
	}()
	return svr, nil
}
