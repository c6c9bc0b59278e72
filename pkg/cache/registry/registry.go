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

// Package registry builds durable storage clients from configuration
package registry

import (
	"errors"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/badger"
	"github.com/trickstercache/reelsync/pkg/cache/bbolt"
	"github.com/trickstercache/reelsync/pkg/cache/filesystem"
	"github.com/trickstercache/reelsync/pkg/cache/memory"
	cm "github.com/trickstercache/reelsync/pkg/cache/metrics"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/providers"
	"github.com/trickstercache/reelsync/pkg/cache/redis"
	"github.com/trickstercache/reelsync/pkg/cache/sqlite"
	"github.com/trickstercache/reelsync/pkg/cache/status"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
)

// New returns an unconnected Client for the configured provider. Unknown
// providers get a memory client.
func New(cacheName string, cfg *options.Options) cache.Client {
	if cfg == nil {
		cfg = options.New()
	}
	var c cache.Client
	switch cfg.ProviderID {
	case providers.FilesystemID:
		c = filesystem.NewCache(cacheName, cfg)
	case providers.RedisID:
		c = redis.New(cacheName, cfg)
	case providers.BBoltID:
		c = bbolt.New(cacheName, cfg)
	case providers.BadgerDBID:
		c = badger.New(cacheName, cfg)
	case providers.SQLiteID:
		c = sqlite.New(cacheName, cfg)
	default:
		c = memory.New(cacheName, cfg)
	}
	return &observedClient{Client: c, name: cacheName, provider: cfg.ProviderID.String()}
}

// Connect builds and connects the configured client. When the durable
// provider cannot be reached, a memory client is returned in its place and
// degraded is true.
func Connect(cacheName string, cfg *options.Options) (c cache.Client, degraded bool) {
	if cfg == nil {
		cfg = options.New()
	}
	c = New(cacheName, cfg)
	err := c.Connect()
	if err == nil {
		logger.Info("cache connected", logging.Pairs{
			"cacheName": cacheName, "provider": cfg.Provider})
		return c, false
	}
	logger.Warn("durable cache unavailable, continuing memory-only",
		logging.Pairs{"cacheName": cacheName, "provider": cfg.Provider, "detail": err.Error()})
	cm.ObserveCacheEvent(cacheName, cfg.Provider, "degraded", "connect")
	mc := &observedClient{Client: memory.New(cacheName, cfg), name: cacheName,
		provider: providers.Memory}
	mc.Connect()
	return mc, true
}

// observedClient records provider-level operation metrics
type observedClient struct {
	cache.Client
	name     string
	provider string
}

func (c *observedClient) Store(cacheKey string, data []byte) error {
	err := c.Client.Store(cacheKey, data)
	if err != nil {
		cm.ObserveCacheEvent(c.name, c.provider, "error", "store")
		cm.ObserveCacheOperation(c.name, c.provider, "set", "error", 0)
		return err
	}
	cm.ObserveCacheOperation(c.name, c.provider, "set", "success", float64(len(data)))
	return nil
}

func (c *observedClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	data, ls, err := c.Client.Retrieve(cacheKey)
	switch {
	case err == nil:
		cm.ObserveCacheOperation(c.name, c.provider, "get", "hit", float64(len(data)))
	case errors.Is(err, cache.ErrKNF):
		cm.ObserveCacheMiss(c.name, c.provider)
	default:
		cm.ObserveCacheEvent(c.name, c.provider, "error", "retrieve")
	}
	return data, ls, err
}

func (c *observedClient) Remove(cacheKeys ...string) error {
	err := c.Client.Remove(cacheKeys...)
	if err != nil {
		cm.ObserveCacheEvent(c.name, c.provider, "error", "remove")
		return err
	}
	cm.ObserveCacheDel(c.name, c.provider, float64(len(cacheKeys)))
	return nil
}
