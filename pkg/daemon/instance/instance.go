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

// Package instance holds the components of a running reelsync process
package instance

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/trickstercache/reelsync/cmd/reelsync/config"
	"github.com/trickstercache/reelsync/pkg/analytics"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/manager"
	"github.com/trickstercache/reelsync/pkg/connectivity"
	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/tracing"
	"github.com/trickstercache/reelsync/pkg/offline/queue"
	"github.com/trickstercache/reelsync/pkg/offline/snapshot"
	"github.com/trickstercache/reelsync/pkg/perf"
	"github.com/trickstercache/reelsync/pkg/realtime"
)

// ServerInstance is a wired reelsync process
type ServerInstance struct {
	Config *config.Config

	Bus      *events.Bus
	Tracer   *tracing.Tracer
	Client   cache.Client
	Degraded bool
	Cache    *manager.Manager
	Snapshot *snapshot.Snapshot
	Store    docstore.Store
	Queue    *queue.Queue
	Monitor  *connectivity.Monitor
	// Switch is set when the connectivity provider is set programmatically
	Switch   *connectivity.Switch
	Realtime *realtime.Service
	Perf     *perf.Tracker

	// Analytics records engagement events emitted on Bus
	Analytics *analytics.Service

	MetricsServer *http.Server

	// Stop cancels background work started by the daemon
	Stop context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

// Shutdown stops every component in reverse dependency order. Subsequent
// calls return the first result.
func (si *ServerInstance) Shutdown(ctx context.Context) error {
	si.shutdownOnce.Do(func() {
		si.shutdownErr = si.shutdown(ctx)
	})
	return si.shutdownErr
}

func (si *ServerInstance) shutdown(ctx context.Context) error {
	var errs []error
	if si.Stop != nil {
		si.Stop()
	}
	if si.MetricsServer != nil {
		errs = append(errs, si.MetricsServer.Shutdown(ctx))
	}
	if si.Monitor != nil {
		si.Monitor.Stop()
	}
	if si.Realtime != nil {
		si.Realtime.Cleanup()
	}
	if si.Queue != nil {
		errs = append(errs, si.Queue.Close())
	}
	if si.Store != nil {
		errs = append(errs, si.Store.Close())
	}
	if si.Cache != nil {
		errs = append(errs, si.Cache.Close())
	}
	if si.Client != nil {
		errs = append(errs, si.Client.Close())
	}
	if si.Tracer != nil {
		errs = append(errs, si.Tracer.Shutdown(ctx))
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.Error("shutdown completed with errors", logging.Pairs{"detail": err.Error()})
	} else {
		logger.Info("shutdown complete", nil)
	}
	return err
}
