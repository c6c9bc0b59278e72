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

// Package redis is the redis implementation of the durable storage interface
// and supports Standalone, Sentinel and Cluster
package redis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
)

var _ cache.Client = &CacheClient{}

const (
	clientTypeStandard = "standard"
	clientTypeCluster  = "cluster"
	clientTypeSentinel = "sentinel"

	scanCount = 100
	opTimeout = 5 * time.Second
)

var (
	// ErrInvalidEndpointConfig is returned when a standard client has no endpoint
	ErrInvalidEndpointConfig = errors.New("invalid 'endpoint' config")
	// ErrInvalidEndpointsConfig is returned when a cluster or sentinel client has no endpoints
	ErrInvalidEndpointsConfig = errors.New("invalid 'endpoints' config")
	// ErrInvalidSentinelMasterConfig is returned when a sentinel client has no master name
	ErrInvalidSentinelMasterConfig = errors.New("invalid 'sentinel_master' config")
	// ErrInvalidClientType is returned for an unknown client_type
	ErrInvalidClientType = errors.New("invalid 'client_type' config")

	errNotConnected = errors.New("redis cache is not connected")
)

// CacheClient represents a redis cache client that conforms to the cache.Client interface
type CacheClient struct {
	Name   string
	Config *options.Options
	client redis.UniversalClient
}

// New returns a new redis cache client
func New(name string, cfg *options.Options) *CacheClient {
	if cfg == nil {
		cfg = options.New()
	}
	return &CacheClient{Name: name, Config: cfg}
}

// Connect connects to the configured Redis endpoint
func (c *CacheClient) Connect() error {
	switch strings.ToLower(c.Config.Redis.ClientType) {
	case clientTypeSentinel:
		opts, err := c.sentinelOpts()
		if err != nil {
			return err
		}
		c.client = redis.NewFailoverClient(opts)
	case clientTypeCluster:
		opts, err := c.clusterOpts()
		if err != nil {
			return err
		}
		c.client = redis.NewClusterClient(opts)
	case clientTypeStandard, "":
		opts, err := c.clientOpts()
		if err != nil {
			return err
		}
		c.client = redis.NewClient(opts)
	default:
		return ErrInvalidClientType
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *CacheClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *CacheClient) key(cacheKey string) string {
	return c.Config.Redis.KeyPrefix + cacheKey
}

// Store places the data into Redis using the provided Key, without expiration
func (c *CacheClient) Store(cacheKey string, data []byte) error {
	if c.client == nil {
		return errNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.client.Set(ctx, c.key(cacheKey), data, 0).Err()
}

// Retrieve gets data from Redis using the provided Key
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	if c.client == nil {
		return nil, status.LookupStatusError, errNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	data, err := c.client.Get(ctx, c.key(cacheKey)).Bytes()
	if err == nil {
		return data, status.LookupStatusHit, nil
	}
	if errors.Is(err, redis.Nil) {
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	return nil, status.LookupStatusError, err
}

// Remove deletes the provided keys
func (c *CacheClient) Remove(cacheKeys ...string) error {
	if c.client == nil {
		return errNotConnected
	}
	if len(cacheKeys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, ok := c.client.(*redis.ClusterClient); ok {
		// keys may hash to different slots
		for _, k := range cacheKeys {
			if err := c.client.Del(ctx, c.key(k)).Err(); err != nil {
				return err
			}
		}
		return nil
	}
	keys := make([]string, len(cacheKeys))
	for i, k := range cacheKeys {
		keys[i] = c.key(k)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Keys scans for every key under the configured prefix
func (c *CacheClient) Keys() ([]string, error) {
	if c.client == nil {
		return nil, errNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if cc, ok := c.client.(*redis.ClusterClient); ok {
		var out []string
		var mtx sync.Mutex
		err := cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			keys, err := c.scan(ctx, node)
			if err != nil {
				return err
			}
			mtx.Lock()
			out = append(out, keys...)
			mtx.Unlock()
			return nil
		})
		return out, err
	}
	return c.scan(ctx, c.client)
}

func (c *CacheClient) scan(ctx context.Context, client redis.Cmdable) ([]string, error) {
	var out []string
	prefix := c.Config.Redis.KeyPrefix
	iter := client.Scan(ctx, 0, prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), prefix))
	}
	return out, iter.Err()
}
