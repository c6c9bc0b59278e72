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

// Package manager provides the two-tier expiring cache: an in-memory map in
// front of a durable cache.Client, with per-entry expiration enforced on read.
package manager

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/metrics"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/locks"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"golang.org/x/sync/singleflight"
)

// KeyPrefix is prepended to every durable key written by the Manager
const KeyPrefix = "cache_"

// ErrInvalidKey is returned when Set is called with an empty key
var ErrInvalidKey = errors.New("cache key required")

// Stats reports lookups served by the Manager since it was created
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// HitRate returns Hits / (Hits + Misses), or 0 before any lookup
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the Manager's time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager is the two-tier expiring cache
type Manager struct {
	client cache.Client
	config *options.Options
	locker locks.NamedLocker
	sf     singleflight.Group
	now    func() time.Time

	mtx     sync.RWMutex
	entries map[string]*Entry

	hits   atomic.Int64
	misses atomic.Int64

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New returns a Manager over the connected client and starts the reaper
// when the configured ReapInterval is positive
func New(client cache.Client, cfg *options.Options, opts ...Option) *Manager {
	if cfg == nil {
		cfg = options.New()
	}
	m := &Manager{
		client:  client,
		config:  cfg,
		locker:  locks.NewNamedLocker(),
		now:     time.Now,
		entries: make(map[string]*Entry),
		stop:    make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if cfg.ReapInterval > 0 {
		m.wg.Add(1)
		go m.reap(cfg.ReapInterval)
	}
	return m
}

// Client returns the durable client backing the Manager
func (m *Manager) Client() cache.Client {
	return m.client
}

func (m *Manager) lockName(key string) string {
	return m.config.Name + "/" + key
}

// Set stores data under key in both tiers. A ttl <= 0 uses the configured
// default. Only an unencodable value or empty key returns an error; durable
// write failures are logged.
func (m *Manager) Set(key string, data any, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.config.DefaultTTL
	}
	now := m.now()
	e := &Entry{
		Data:      b,
		Timestamp: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	nl, _ := m.locker.Acquire(m.lockName(key))
	defer nl.Release()

	m.mtx.Lock()
	m.entries[key] = e
	n := len(m.entries)
	m.mtx.Unlock()
	metrics.ObserveCacheSizeChange(m.config.Name, m.config.Provider, int64(n))

	if err := m.client.Store(KeyPrefix+key, raw); err != nil {
		logger.Warn("cache durable write failed",
			logging.Pairs{"key": key, "detail": err.Error()})
	}
	logger.Debug("cache store", logging.Pairs{"key": key, "ttl": ttl})
	return nil
}

// Get decodes the live value for key into dest and reports whether it was found
func (m *Manager) Get(key string, dest any) bool {
	return m.GetWithMaxAge(key, 0, dest)
}

// GetRaw returns the encoded live value for key
func (m *Manager) GetRaw(key string) ([]byte, bool) {
	e := m.lookup(key, 0)
	if e == nil {
		return nil, false
	}
	return e.Data, true
}

// GetWithMaxAge behaves like Get, but also misses when the entry is maxAge
// old or older. A maxAge <= 0 disables the age check.
func (m *Manager) GetWithMaxAge(key string, maxAge time.Duration, dest any) bool {
	e := m.lookup(key, maxAge)
	if e == nil {
		return false
	}
	if dest == nil {
		return true
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		logger.Warn("cache value decode failed",
			logging.Pairs{"key": key, "detail": err.Error()})
		return false
	}
	return true
}

func (m *Manager) lookup(key string, maxAge time.Duration) *Entry {
	if key == "" {
		m.misses.Add(1)
		return nil
	}
	m.mtx.RLock()
	e, ok := m.entries[key]
	m.mtx.RUnlock()
	if !ok {
		e = m.hydrate(key)
	}
	now := m.now()
	switch {
	case e == nil:
	case e.Expired(now):
		logger.Debug("cache entry expired", logging.Pairs{"key": key})
		metrics.ObserveCacheEvent(m.config.Name, m.config.Provider, "expired", "lookup")
		m.removeIfExpired(key)
		e = nil
	case maxAge > 0 && e.Age(now) >= maxAge:
		e = nil
	}
	if e == nil {
		m.misses.Add(1)
		return nil
	}
	m.hits.Add(1)
	return e
}

// hydrate loads key from durable storage into memory. Concurrent hydrations
// of one key share a single durable read.
func (m *Manager) hydrate(key string) *Entry {
	v, _, _ := m.sf.Do(key, func() (any, error) {
		nl, _ := m.locker.Acquire(m.lockName(key))
		defer nl.Release()

		m.mtx.RLock()
		e, ok := m.entries[key]
		m.mtx.RUnlock()
		if ok {
			return e, nil
		}

		b, _, err := m.client.Retrieve(KeyPrefix + key)
		if err != nil {
			if !errors.Is(err, cache.ErrKNF) {
				logger.Warn("cache durable read failed",
					logging.Pairs{"key": key, "detail": err.Error()})
			}
			return (*Entry)(nil), nil
		}
		e = &Entry{}
		if err := json.Unmarshal(b, e); err != nil {
			logger.Warn("cache entry malformed, removing",
				logging.Pairs{"key": key, "detail": err.Error()})
			metrics.ObserveCacheEvent(m.config.Name, m.config.Provider, "error", "malformed")
			m.removeDurable(key)
			return (*Entry)(nil), nil
		}
		m.mtx.Lock()
		m.entries[key] = e
		m.mtx.Unlock()
		return e, nil
	})
	return v.(*Entry)
}

// removeIfExpired deletes key from both tiers if the resident entry is still
// expired once the key lock is held
func (m *Manager) removeIfExpired(key string) {
	nl, _ := m.locker.Acquire(m.lockName(key))
	defer nl.Release()
	m.mtx.Lock()
	e, ok := m.entries[key]
	if ok && !e.Expired(m.now()) {
		m.mtx.Unlock()
		return
	}
	delete(m.entries, key)
	m.mtx.Unlock()
	m.removeDurable(key)
}

func (m *Manager) removeDurable(keys ...string) {
	dk := make([]string, len(keys))
	for i, k := range keys {
		dk[i] = KeyPrefix + k
	}
	if err := m.client.Remove(dk...); err != nil {
		logger.Warn("cache durable remove failed",
			logging.Pairs{"keys": strings.Join(keys, ","), "detail": err.Error()})
	}
}

// Remove deletes key from both tiers
func (m *Manager) Remove(key string) {
	if key == "" {
		return
	}
	nl, _ := m.locker.Acquire(m.lockName(key))
	defer nl.Release()
	m.mtx.Lock()
	delete(m.entries, key)
	n := len(m.entries)
	m.mtx.Unlock()
	metrics.ObserveCacheSizeChange(m.config.Name, m.config.Provider, int64(n))
	m.removeDurable(key)
}

// Clear deletes every entry from memory and every cache-prefixed key from
// durable storage, including ones never loaded into memory
func (m *Manager) Clear() {
	m.mtx.Lock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	clear(m.entries)
	m.mtx.Unlock()

	durable, err := m.client.Keys()
	if err != nil {
		logger.Warn("cache durable key listing failed", logging.Pairs{"detail": err.Error()})
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	for _, dk := range durable {
		if k, ok := strings.CutPrefix(dk, KeyPrefix); ok {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
				seen[k] = struct{}{}
			}
		}
	}
	if len(keys) > 0 {
		m.removeDurable(keys...)
	}
	metrics.ObserveCacheSizeChange(m.config.Name, m.config.Provider, 0)
	logger.Debug("cache cleared", logging.Pairs{"count": len(keys)})
}

// CleanupExpired removes every expired memory-resident entry from both
// tiers and returns the number removed
func (m *Manager) CleanupExpired() int {
	now := m.now()
	m.mtx.RLock()
	var expired []string
	for k, e := range m.entries {
		if e.Expired(now) {
			expired = append(expired, k)
		}
	}
	m.mtx.RUnlock()
	for _, k := range expired {
		m.removeIfExpired(k)
	}
	if len(expired) > 0 {
		metrics.ObserveCacheEvent(m.config.Name, m.config.Provider, "expired", "reaper")
		m.mtx.RLock()
		n := len(m.entries)
		m.mtx.RUnlock()
		metrics.ObserveCacheSizeChange(m.config.Name, m.config.Provider, int64(n))
	}
	return len(expired)
}

// Len returns the number of memory-resident entries
func (m *Manager) Len() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.entries)
}

// Stats returns lookup counters
func (m *Manager) Stats() Stats {
	return Stats{
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		Entries: m.Len(),
	}
}

func (m *Manager) reap(interval time.Duration) {
	defer m.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			if n := m.CleanupExpired(); n > 0 {
				logger.Debug("cache reaper removed expired entries", logging.Pairs{"count": n})
			}
		}
	}
}

// Close stops the reaper. The durable client is owned by the caller.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
	})
	m.wg.Wait()
	return nil
}
