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

// Package daemon runs the reelsync process based on the provided configuration
package daemon

import (
	"context"
	"fmt"
	goruntime "runtime"
	"sync"

	"github.com/trickstercache/reelsync/pkg/appinfo"
	"github.com/trickstercache/reelsync/pkg/daemon/setup"
	"github.com/trickstercache/reelsync/pkg/daemon/signaling"
	"github.com/trickstercache/reelsync/pkg/errors"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

var mtx sync.Mutex
var wasStarted bool

// Start loads the configuration from args, runs until ctx is done or the
// process is signaled to stop, then shuts every component down.
func Start(ctx context.Context, args []string) error {
	mtx.Lock()
	if wasStarted {
		mtx.Unlock()
		return errors.ErrDaemonAlreadyStarted
	}
	mtx.Unlock()

	metrics.BuildInfo.WithLabelValues(goruntime.Version(),
		appinfo.GitCommitID, appinfo.Version).Set(1)

	conf, err := setup.LoadAndValidate(args)
	if err != nil {
		return err
	}

	// if it's a -version command, print version and exit
	if conf.Flags != nil && conf.Flags.PrintVersion {
		fmt.Println(appinfo.String())
		return nil
	}

	// if it's a -validate-config command, print validation result
	if conf.Flags != nil && conf.Flags.ValidateConfig {
		fmt.Println("reelsync configuration validation succeeded.")
		return nil
	}

	mtx.Lock()
	if wasStarted {
		mtx.Unlock()
		return errors.ErrDaemonAlreadyStarted
	}
	wasStarted = true
	mtx.Unlock()

	si, err := setup.ApplyConfig(ctx, conf)
	if err != nil {
		return err
	}

	signaling.Wait(ctx, func() {
		logger.Info("status", logging.Pairs{
			"online":  si.Monitor.IsOnline(),
			"pending": si.Queue.PendingCount(),
		})
	})

	sctx, cancel := context.WithTimeout(context.Background(), conf.Main.ShutdownTimeout)
	defer cancel()
	return si.Shutdown(sctx)
}
