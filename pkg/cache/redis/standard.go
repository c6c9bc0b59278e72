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

package redis

import (
	"crypto/tls"

	redis "github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

func (c *CacheClient) clientOpts() (*redis.Options, error) {
	if c.Config.Redis.Endpoint == "" {
		return nil, ErrInvalidEndpointConfig
	}
	o := &redis.Options{
		Addr:         c.Config.Redis.Endpoint,
		Network:      c.Config.Redis.Protocol,
		Username:     c.Config.Redis.Username,
		Password:     c.Config.Redis.Password,
		DB:           c.Config.Redis.DB,
		MaxRetries:   c.Config.Redis.MaxRetries,
		DialTimeout:  c.Config.Redis.DialTimeout,
		ReadTimeout:  c.Config.Redis.ReadTimeout,
		WriteTimeout: c.Config.Redis.WriteTimeout,
		PoolSize:     c.Config.Redis.PoolSize,
		// Disable maint_notifications to avoid warnings with Redis servers that don't support it
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	if c.Config.Redis.UseTLS {
		o.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return o, nil
}

func (c *CacheClient) clusterOpts() (*redis.ClusterOptions, error) {
	if len(c.Config.Redis.Endpoints) == 0 {
		return nil, ErrInvalidEndpointsConfig
	}
	o := &redis.ClusterOptions{
		Addrs:        c.Config.Redis.Endpoints,
		Username:     c.Config.Redis.Username,
		Password:     c.Config.Redis.Password,
		MaxRetries:   c.Config.Redis.MaxRetries,
		DialTimeout:  c.Config.Redis.DialTimeout,
		ReadTimeout:  c.Config.Redis.ReadTimeout,
		WriteTimeout: c.Config.Redis.WriteTimeout,
		PoolSize:     c.Config.Redis.PoolSize,
	}
	if c.Config.Redis.UseTLS {
		o.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return o, nil
}

func (c *CacheClient) sentinelOpts() (*redis.FailoverOptions, error) {
	if len(c.Config.Redis.Endpoints) == 0 {
		return nil, ErrInvalidEndpointsConfig
	}
	if c.Config.Redis.SentinelMaster == "" {
		return nil, ErrInvalidSentinelMasterConfig
	}
	o := &redis.FailoverOptions{
		SentinelAddrs: c.Config.Redis.Endpoints,
		MasterName:    c.Config.Redis.SentinelMaster,
		Username:      c.Config.Redis.Username,
		Password:      c.Config.Redis.Password,
		DB:            c.Config.Redis.DB,
		MaxRetries:    c.Config.Redis.MaxRetries,
		DialTimeout:   c.Config.Redis.DialTimeout,
		ReadTimeout:   c.Config.Redis.ReadTimeout,
		WriteTimeout:  c.Config.Redis.WriteTimeout,
		PoolSize:      c.Config.Redis.PoolSize,
	}
	if c.Config.Redis.UseTLS {
		o.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return o, nil
}
