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

// Package memory is the memory implementation of the durable storage
// interface and uses a sync.Map to hold values. It backs degraded mode
// and tests.
package memory

import (
	"sync"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
)

var _ cache.Client = &Cache{}

// Cache defines a Memory Cache client that conforms to the Client interface
type Cache struct {
	Name   string
	Config *options.Options
	client sync.Map
}

// New returns a new memory cache
func New(name string, cfg *options.Options) *Cache {
	if cfg == nil {
		cfg = options.New()
	}
	return &Cache{Name: name, Config: cfg}
}

// Connect initializes the Cache
func (c *Cache) Connect() error {
	return nil
}

// Close drops all values
func (c *Cache) Close() error {
	c.client.Clear()
	return nil
}

// Store places a copy of data in the cache under cacheKey
func (c *Cache) Store(cacheKey string, data []byte) error {
	c.client.Store(cacheKey, append([]byte(nil), data...))
	return nil
}

// Retrieve looks for a value in cache and returns it (or ErrKNF if not found)
func (c *Cache) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	v, ok := c.client.Load(cacheKey)
	if !ok {
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	return append([]byte(nil), v.([]byte)...), status.LookupStatusHit, nil
}

// Remove deletes the provided keys
func (c *Cache) Remove(cacheKeys ...string) error {
	for _, k := range cacheKeys {
		c.client.Delete(k)
	}
	return nil
}

// Keys returns every key in the cache
func (c *Cache) Keys() ([]string, error) {
	var out []string
	c.client.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	return out, nil
}
