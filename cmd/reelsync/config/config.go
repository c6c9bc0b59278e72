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

// Package config provides reelsync configuration abilities, including
// parsing configuration files, command line parameters, and environment
// variables, as well as default values and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	cache "github.com/trickstercache/reelsync/pkg/cache/options"
	conn "github.com/trickstercache/reelsync/pkg/connectivity/options"
	docstore "github.com/trickstercache/reelsync/pkg/docstore/options"
	lo "github.com/trickstercache/reelsync/pkg/observability/logging/options"
	mo "github.com/trickstercache/reelsync/pkg/observability/metrics/options"
	tracing "github.com/trickstercache/reelsync/pkg/observability/tracing/options"
	queue "github.com/trickstercache/reelsync/pkg/offline/queue/options"
	snapshot "github.com/trickstercache/reelsync/pkg/offline/snapshot/options"

	"gopkg.in/yaml.v2"
)

// Config is the main configuration object
type Config struct {
	// Main is the primary MainConfig section
	Main *MainConfig `yaml:"main,omitempty"`
	// Logging provides configurations that affect logging behavior
	Logging *lo.Options `yaml:"logging,omitempty"`
	// Metrics provides configurations for collecting Metrics about the application
	Metrics *mo.Options `yaml:"metrics,omitempty"`
	// Tracing provides the distributed tracing configuration
	Tracing *tracing.Options `yaml:"tracing,omitempty"`
	// Caches is a map of named durable cache configurations
	Caches map[string]*cache.Options `yaml:"caches,omitempty"`
	// Cache selects the named cache used by the core and tunes its expiry
	Cache *CacheConfig `yaml:"cache,omitempty"`
	// Snapshot bounds the offline snapshot
	Snapshot *snapshot.Options `yaml:"snapshot,omitempty"`
	// Queue configures replay of offline actions
	Queue *queue.Options `yaml:"queue,omitempty"`
	// Connectivity configures the connectivity monitor
	Connectivity *conn.Options `yaml:"connectivity,omitempty"`
	// Docstore configures the remote document store
	Docstore *docstore.Options `yaml:"docstore,omitempty"`

	// Flags holds the parsed command line flags
	Flags *Flags `yaml:"-"`

	LoaderWarnings []string `yaml:"-"`

	configFilePath string
}

// MainConfig is a collection of general configuration values.
type MainConfig struct {
	// InstanceID represents a unique ID for the current instance, when multiple instances on the same host
	InstanceID int `yaml:"instance_id,omitempty"`
	// ServerName identifies this host in logs; defaults to os.Hostname
	ServerName string `yaml:"server_name,omitempty"`
	// ShutdownTimeout bounds the graceful shutdown of listeners and the queue
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
	// Simulate emits synthetic engagement events on the local bus
	Simulate bool `yaml:"simulate,omitempty"`
}

// CacheConfig selects the named cache used by the core
type CacheConfig struct {
	// Name is the key in Caches of the durable cache to use
	Name string `yaml:"name,omitempty"`
	// DefaultTTL, when set, overrides the named cache's default_ttl
	DefaultTTL time.Duration `yaml:"default_ttl,omitempty"`
	// ReapInterval, when set, overrides the named cache's reap_interval
	ReapInterval time.Duration `yaml:"reap_interval,omitempty"`
}

// NewConfig returns a Config initialized with default values.
func NewConfig() *Config {
	hn, _ := os.Hostname()
	return &Config{
		Main: &MainConfig{
			ServerName:      hn,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Logging: lo.New(),
		Metrics: mo.New(),
		Tracing: tracing.New(),
		Caches: map[string]*cache.Options{
			DefaultCacheName: cache.New(),
		},
		Cache:          &CacheConfig{Name: DefaultCacheName},
		Snapshot:       snapshot.New(),
		Queue:          queue.New(),
		Connectivity:   conn.New(),
		Docstore:       docstore.New(),
		LoaderWarnings: make([]string, 0),
	}
}

// loadFile loads application configuration from a YAML-formatted file.
func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := c.loadYAMLConfig(string(b)); err != nil {
		return err
	}
	c.configFilePath = path
	return nil
}

// loadYAMLConfig loads application configuration from a YAML-formatted string.
func (c *Config) loadYAMLConfig(yml string) error {
	// a file listing its own caches replaces the default one
	c.Caches = nil
	if err := yaml.Unmarshal([]byte(yml), c); err != nil {
		return err
	}
	c.fillMissingSections()
	return nil
}

// fillMissingSections restores defaults for sections a file set to null
func (c *Config) fillMissingSections() {
	d := NewConfig()
	if c.Main == nil {
		c.Main = d.Main
	}
	if c.Logging == nil {
		c.Logging = d.Logging
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	if c.Tracing == nil {
		c.Tracing = d.Tracing
	}
	if len(c.Caches) == 0 {
		c.Caches = d.Caches
	}
	if c.Cache == nil {
		c.Cache = d.Cache
	}
	if c.Snapshot == nil {
		c.Snapshot = d.Snapshot
	}
	if c.Queue == nil {
		c.Queue = d.Queue
	}
	if c.Connectivity == nil {
		c.Connectivity = d.Connectivity
	}
	if c.Docstore == nil {
		c.Docstore = d.Docstore
	}
}

// ErrInvalidCacheName is returned when the cache section names a cache that
// is not configured
var ErrInvalidCacheName = errors.New("invalid cache name")

// setDefaults initializes each named cache and applies the cache section's
// overrides to the selected one
func (c *Config) setDefaults() error {
	if c.Main.ServerName == "" {
		c.Main.ServerName, _ = os.Hostname()
	}
	if c.Main.ShutdownTimeout <= 0 {
		c.Main.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Tracing.Name == "" {
		c.Tracing.Name = "default"
	}
	for k, v := range c.Caches {
		if v == nil {
			v = cache.New()
			c.Caches[k] = v
		}
		if err := v.Initialize(k); err != nil {
			return err
		}
	}
	if c.Cache.Name == "" {
		c.Cache.Name = DefaultCacheName
	}
	co, ok := c.Caches[c.Cache.Name]
	if !ok {
		return fmt.Errorf("%w %q in cache section", ErrInvalidCacheName, c.Cache.Name)
	}
	if c.Cache.DefaultTTL > 0 {
		co.DefaultTTL = c.Cache.DefaultTTL
	}
	if c.Cache.ReapInterval > 0 {
		co.ReapInterval = c.Cache.ReapInterval
	}
	for _, k := range c.cacheNames() {
		if k != c.Cache.Name {
			c.LoaderWarnings = append(c.LoaderWarnings,
				fmt.Sprintf("cache %q is configured but not used", k))
		}
	}
	return nil
}

func (c *Config) cacheNames() []string {
	names := make([]string, 0, len(c.Caches))
	for k := range c.Caches {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Validate returns the first error found in any section
func (c *Config) Validate() error {
	for _, k := range c.cacheNames() {
		if err := c.Caches[k].Validate(); err != nil {
			return fmt.Errorf("cache %q: %w", k, err)
		}
	}
	if err := c.Snapshot.Validate(); err != nil {
		return err
	}
	if err := c.Queue.Validate(); err != nil {
		return err
	}
	if err := c.Connectivity.Validate(); err != nil {
		return err
	}
	return c.Docstore.Validate()
}

// CacheOptions returns the options of the cache used by the core
func (c *Config) CacheOptions() *cache.Options {
	return c.Caches[c.Cache.Name]
}

// ConfigFilePath returns the file path from which this configuration is based
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// String returns the YAML form of the Config with secrets masked
func (c *Config) String() string {
	cp := *c
	cp.Caches = make(map[string]*cache.Options, len(c.Caches))
	for k, v := range c.Caches {
		w := v.Clone()
		if w.Redis != nil && w.Redis.Password != "" {
			w.Redis.Password = "*****"
		}
		cp.Caches[k] = w
	}
	if c.Docstore != nil && c.Docstore.Etcd != nil && c.Docstore.Etcd.Password != "" {
		cp.Docstore = c.Docstore.Clone()
		cp.Docstore.Etcd.Password = "*****"
	}
	b, err := yaml.Marshal(&cp)
	if err != nil {
		return ""
	}
	return string(b)
}
