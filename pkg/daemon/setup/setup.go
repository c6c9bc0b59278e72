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

// Package setup builds a ServerInstance from configuration
package setup

import (
	"context"
	"fmt"
	"os"
	goruntime "runtime"

	"github.com/trickstercache/reelsync/cmd/reelsync/config"
	"github.com/trickstercache/reelsync/pkg/analytics"
	"github.com/trickstercache/reelsync/pkg/appinfo"
	cr "github.com/trickstercache/reelsync/pkg/cache/registry"
	"github.com/trickstercache/reelsync/pkg/cache/manager"
	"github.com/trickstercache/reelsync/pkg/connectivity"
	co "github.com/trickstercache/reelsync/pkg/connectivity/options"
	"github.com/trickstercache/reelsync/pkg/connectivity/probe"
	"github.com/trickstercache/reelsync/pkg/daemon/instance"
	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/docstore/memory"
	dr "github.com/trickstercache/reelsync/pkg/docstore/registry"
	te "github.com/trickstercache/reelsync/pkg/errors"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	tr "github.com/trickstercache/reelsync/pkg/observability/tracing/registry"
	"github.com/trickstercache/reelsync/pkg/offline/queue"
	"github.com/trickstercache/reelsync/pkg/offline/snapshot"
	"github.com/trickstercache/reelsync/pkg/perf"
	"github.com/trickstercache/reelsync/pkg/realtime"
)

// LoadAndValidate loads the configuration described by the command line
// arguments, the environment and the config file
func LoadAndValidate(args []string) (*config.Config, error) {
	cfg, err := config.Load(appinfo.Name, args)
	if err != nil {
		fmt.Println("\nERROR: Could not load configuration:", err.Error())
		return nil, err
	}
	if cfg == nil {
		return nil, te.ErrInvalidOptions
	}
	return cfg, nil
}

// ApplyConfig builds, loads and starts every component described by conf.
// Components started before a failure are shut down before returning.
func ApplyConfig(ctx context.Context, conf *config.Config) (*instance.ServerInstance, error) {
	if conf == nil {
		return nil, te.ErrInvalidOptions
	}
	initLogger(conf)
	for _, w := range conf.LoaderWarnings {
		logger.Warn(w, nil)
	}

	si := &instance.ServerInstance{Config: conf, Bus: events.NewBus()}
	var started bool
	defer func() {
		if !started {
			si.Shutdown(context.Background())
		}
	}()

	var err error
	if si.Tracer, err = tr.New(conf.Tracing); err != nil {
		handleStartupIssue("tracing registration failed", logging.Pairs{"detail": err.Error()})
		return nil, err
	}

	cacheOpts := conf.CacheOptions()
	si.Client, si.Degraded = cr.Connect(cacheOpts.Name, cacheOpts)
	si.Cache = manager.New(si.Client, cacheOpts)
	si.Perf = perf.New(si.Cache)
	si.Perf.Load()
	si.Perf.StartTimer(perf.OpAppStart)

	si.Analytics = analytics.New(si.Client)
	si.Analytics.Attach(si.Bus)

	si.Snapshot = snapshot.New(si.Client, conf.Snapshot)
	si.Snapshot.Load()

	si.Store = connectDocstore(conf)

	provider, err := newConnectivityProvider(conf.Connectivity, si)
	if err != nil {
		handleStartupIssue("connectivity provider failed", logging.Pairs{"detail": err.Error()})
		return nil, err
	}
	si.Monitor = connectivity.NewMonitor(provider, si.Bus, conf.Connectivity.AssumeOnline)

	exec := realtime.NewExecutor(si.Store, si.Bus, si.Tracer)
	si.Queue = queue.New(si.Client, exec, si.Monitor, si.Bus, conf.Queue,
		queue.WithTracer(si.Tracer), queue.WithCommitHook(exec.Announce))
	si.Queue.Load()
	si.Monitor.OnReconnect(func(ctx context.Context) {
		si.Queue.Drain(ctx)
	})
	si.Realtime = realtime.New(si.Store, exec, si.Bus, si.Snapshot, si.Queue, si.Monitor,
		realtime.WithTracer(si.Tracer))

	bg, cancel := context.WithCancel(ctx)
	si.Stop = cancel
	logEvents(si.Bus)

	if err := si.Monitor.Start(); err != nil {
		handleStartupIssue("connectivity monitor failed", logging.Pairs{"detail": err.Error()})
		return nil, err
	}
	// actions left by a previous run replay as soon as possible
	if si.Monitor.IsOnline() && si.Queue.PendingCount() > 0 {
		go si.Queue.Drain(bg)
	}

	if si.MetricsServer, err = startMetricsListener(conf, si); err != nil {
		handleStartupIssue("metrics listener failed", logging.Pairs{"detail": err.Error()})
		return nil, err
	}

	if conf.Main.Simulate {
		logger.Info("simulation enabled", logging.Pairs{
			"likeInterval": LikeInterval, "commentInterval": CommentInterval})
		go Simulate(bg, si.Bus, nil)
	}

	started = true
	d := si.Perf.EndTimer(perf.OpAppStart)
	logger.Info("reelsync started", logging.Pairs{
		"cacheName":     cacheOpts.Name,
		"cacheProvider": cacheOpts.Provider,
		"degraded":      si.Degraded,
		"docstore":      conf.Docstore.Provider,
		"connectivity":  conf.Connectivity.Provider,
		"online":        si.Monitor.IsOnline(),
		"pending":       si.Queue.PendingCount(),
		"startup":       d,
	})
	return si, nil
}

// connectDocstore returns the configured document store, or an in-process
// store when it cannot be reached
func connectDocstore(conf *config.Config) docstore.Store {
	s, err := dr.New(conf.Docstore)
	if err == nil {
		return s
	}
	logger.Warn("document store unavailable, continuing in process",
		logging.Pairs{"provider": conf.Docstore.Provider, "detail": err.Error()})
	return memory.New()
}

func newConnectivityProvider(o *co.Options,
	si *instance.ServerInstance) (connectivity.Provider, error) {
	if o.Provider == co.ProviderProbe {
		return probe.New(o.Probe, nil)
	}
	si.Switch = connectivity.NewSwitch(o.AssumeOnline)
	return si.Switch, nil
}

// logEvents logs the events that matter to an operator
func logEvents(bus *events.Bus) {
	events.Subscribe(bus, func(e events.VideoLike) {
		logger.Info("video like", logging.Pairs{
			"videoID": e.VideoID, "userID": e.UserID, "isLiked": e.IsLiked})
	})
	events.Subscribe(bus, func(e events.NewComment) {
		logger.Info("new comment", logging.Pairs{
			"videoID": e.Comment.VideoID, "userID": e.Comment.UserID, "text": e.Comment.Text})
	})
	events.Subscribe(bus, func(e events.SyncComplete) {
		logger.Info("offline sync complete", logging.Pairs{
			"count": e.Count, "dropped": e.Dropped, "remaining": e.Remaining})
	})
}

func initLogger(c *config.Config) logging.Logger {
	logger.SetLogger(logging.New(c.Logging, c.Main.InstanceID))
	logger.Info("application loaded from configuration",
		logging.Pairs{
			"name":      appinfo.Name,
			"version":   appinfo.Version,
			"goVersion": goruntime.Version(),
			"goArch":    goruntime.GOARCH,
			"goOS":      goruntime.GOOS,
			"commitID":  appinfo.GitCommitID,
			"buildTime": appinfo.BuildTime,
			"logLevel":  c.Logging.LogLevel,
			"config":    c.ConfigFilePath(),
			"pid":       os.Getpid(),
		},
	)
	return logger.Logger()
}

func handleStartupIssue(event string, detail logging.Pairs) {
	logger.ErrorSynchronous(event, detail)
}
