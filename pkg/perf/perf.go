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

// Package perf records operation timings, cache effectiveness and recent
// errors, and preloads video markers into the cache
package perf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/manager"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

const (
	// MetricsKey is the durable key of the persisted Metrics
	MetricsKey = "performance_metrics"
	// ErrorKeyPrefix prefixes the durable key of every recorded error
	ErrorKeyPrefix = "error_"
	// MaxErrorLogs is the number of recorded errors retained
	MaxErrorLogs = 10
	// VideoMarkerTTL is the lifetime of a preloaded video marker
	VideoMarkerTTL = time.Hour
)

// Timed operation names with a dedicated field in Metrics
const (
	OpVideoLoad  = "videoLoad"
	OpAppStart   = "appStart"
	OpNavigation = "navigation"
	OpAPICall    = "apiCall"
)

// Metrics is the latest duration of each timed operation and the cache hit rate
type Metrics struct {
	VideoLoadTime   time.Duration `json:"videoLoadTime"`
	AppStartTime    time.Duration `json:"appStartTime"`
	NavigationTime  time.Duration `json:"navigationTime"`
	APIResponseTime time.Duration `json:"apiResponseTime"`
	CacheHitRate    float64       `json:"cacheHitRate"`
}

// ErrorRecord is a recorded error
type ErrorRecord struct {
	Message   string `json:"message"`
	Context   string `json:"context"`
	Timestamp int64  `json:"timestamp"`
}

// Fetcher retrieves a video ahead of playback
type Fetcher func(ctx context.Context, url string) error

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces the Tracker's time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithFetcher sets the function PreloadVideo uses to retrieve a video before
// marking it cached
func WithFetcher(f Fetcher) Option {
	return func(t *Tracker) {
		t.fetch = f
	}
}

// Tracker is the performance tracker
type Tracker struct {
	cache  *manager.Manager
	client cache.Client
	fetch  Fetcher
	now    func() time.Time

	mtx     sync.Mutex
	timers  map[string]time.Time
	metrics Metrics
	// errMtx serializes RecordError's write and trim
	errMtx sync.Mutex
}

// New returns a Tracker using m for video markers and hit rates and m's
// durable client for metrics and error records
func New(m *manager.Manager, o ...Option) *Tracker {
	t := &Tracker{
		cache:  m,
		client: m.Client(),
		now:    time.Now,
		timers: make(map[string]time.Time),
	}
	for _, f := range o {
		f(t)
	}
	return t
}

// Load restores the persisted Metrics. Missing or unreadable metrics leave
// the Tracker zeroed.
func (t *Tracker) Load() {
	b, _, err := t.client.Retrieve(MetricsKey)
	if err != nil {
		if !errors.Is(err, cache.ErrKNF) {
			logger.Warn("performance metrics load failed", logging.Pairs{"detail": err.Error()})
		}
		return
	}
	var m Metrics
	if err := json.Unmarshal(b, &m); err != nil {
		logger.Warn("performance metrics corrupt, starting empty",
			logging.Pairs{"detail": err.Error()})
		return
	}
	t.mtx.Lock()
	t.metrics = m
	t.mtx.Unlock()
}

// StartTimer starts, or restarts, the timer for op
func (t *Tracker) StartTimer(op string) {
	t.mtx.Lock()
	t.timers[op] = t.now()
	t.mtx.Unlock()
}

// EndTimer stops the timer for op and returns the elapsed time. The duration
// updates the matching metric for known operations and is persisted. An op
// with no running timer returns 0.
func (t *Tracker) EndTimer(op string) time.Duration {
	t.mtx.Lock()
	start, ok := t.timers[op]
	if !ok {
		t.mtx.Unlock()
		logger.Debug("timer not started", logging.Pairs{"operation": op})
		return 0
	}
	delete(t.timers, op)
	d := t.now().Sub(start)
	switch op {
	case OpVideoLoad:
		t.metrics.VideoLoadTime = d
	case OpAppStart:
		t.metrics.AppStartTime = d
	case OpNavigation:
		t.metrics.NavigationTime = d
	case OpAPICall:
		t.metrics.APIResponseTime = d
	}
	t.metrics.CacheHitRate = t.cache.Stats().HitRate()
	m := t.metrics
	t.mtx.Unlock()

	metrics.PerfTimerDuration.WithLabelValues(op).Observe(d.Seconds())
	t.persist(m)
	return d
}

func (t *Tracker) persist(m Metrics) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := t.client.Store(MetricsKey, b); err != nil {
		logger.Warn("performance metrics write failed", logging.Pairs{"detail": err.Error()})
	}
}

// Metrics returns the current metrics with a fresh cache hit rate
func (t *Tracker) Metrics() Metrics {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	m := t.metrics
	m.CacheHitRate = t.cache.Stats().HitRate()
	return m
}

// maxKeyBumps bounds the search for a free error key
const maxKeyBumps = 1000

func errorKey(ts time.Time) string {
	return fmt.Sprintf("%s%019d", ErrorKeyPrefix, ts.UnixNano())
}

// RecordError stores err with a description of where it happened and trims
// the stored errors to the newest MaxErrorLogs
func (t *Tracker) RecordError(err error, where string) {
	if err == nil {
		return
	}
	now := t.now()
	b, _ := json.Marshal(ErrorRecord{Message: err.Error(), Context: where,
		Timestamp: now.UnixMilli()})
	logger.Error("application error", logging.Pairs{"context": where, "detail": err.Error()})

	t.errMtx.Lock()
	defer t.errMtx.Unlock()
	key := errorKey(now)
	// keys must stay unique when the clock does not advance
	for range maxKeyBumps {
		_, _, rerr := t.client.Retrieve(key)
		if rerr == nil {
			now = now.Add(time.Nanosecond)
			key = errorKey(now)
			continue
		}
		if !errors.Is(rerr, cache.ErrKNF) {
			logger.Warn("error record lookup failed", logging.Pairs{"detail": rerr.Error()})
		}
		break
	}
	if err := t.client.Store(key, b); err != nil {
		logger.Warn("error record write failed", logging.Pairs{"detail": err.Error()})
		return
	}
	keys, err := t.errorKeys()
	if err != nil || len(keys) <= MaxErrorLogs {
		return
	}
	if err := t.client.Remove(keys[:len(keys)-MaxErrorLogs]...); err != nil {
		logger.Warn("error record cleanup failed", logging.Pairs{"detail": err.Error()})
	}
}

// errorKeys returns the stored error keys, oldest first
func (t *Tracker) errorKeys() ([]string, error) {
	all, err := t.client.Keys()
	if err != nil {
		logger.Warn("error record listing failed", logging.Pairs{"detail": err.Error()})
		return nil, err
	}
	keys := slices.DeleteFunc(all, func(k string) bool {
		return !strings.HasPrefix(k, ErrorKeyPrefix)
	})
	slices.Sort(keys)
	return keys, nil
}

// Errors returns the stored error records, newest first
func (t *Tracker) Errors() []ErrorRecord {
	keys, _ := t.errorKeys()
	out := make([]ErrorRecord, 0, len(keys))
	for _, k := range slices.Backward(keys) {
		b, _, err := t.client.Retrieve(k)
		if err != nil {
			continue
		}
		var r ErrorRecord
		if json.Unmarshal(b, &r) == nil {
			out = append(out, r)
		}
	}
	return out
}

func videoKey(url string) string {
	return "video_" + url
}

// PreloadVideo marks url as cached for VideoMarkerTTL, timing the work as a
// video load. It returns immediately when the marker is already live.
func (t *Tracker) PreloadVideo(ctx context.Context, url string) error {
	if url == "" {
		return manager.ErrInvalidKey
	}
	key := videoKey(url)
	if t.cache.Get(key, nil) {
		return nil
	}
	t.StartTimer(OpVideoLoad)
	if t.fetch != nil {
		if err := t.fetch(ctx, url); err != nil {
			t.EndTimer(OpVideoLoad)
			t.RecordError(err, "preloadVideo")
			return err
		}
	}
	if err := t.cache.Set(key, true, VideoMarkerTTL); err != nil {
		t.EndTimer(OpVideoLoad)
		return err
	}
	d := t.EndTimer(OpVideoLoad)
	logger.Debug("video preloaded", logging.Pairs{"url": url, "elapsed": d})
	return nil
}

// IsVideoCached reports whether a live preload marker exists for url
func (t *Tracker) IsVideoCached(url string) bool {
	return url != "" && t.cache.Get(videoKey(url), nil)
}
