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

// Package options holds the configuration of a named cache
package options

import (
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/trickstercache/reelsync/pkg/cache/badger/options"
	bbolt "github.com/trickstercache/reelsync/pkg/cache/bbolt/options"
	filesystem "github.com/trickstercache/reelsync/pkg/cache/filesystem/options"
	"github.com/trickstercache/reelsync/pkg/cache/providers"
	redis "github.com/trickstercache/reelsync/pkg/cache/redis/options"
	sqlite "github.com/trickstercache/reelsync/pkg/cache/sqlite/options"
)

const (
	// DefaultCacheProvider is the provider used when none is configured
	DefaultCacheProvider = providers.BBolt
	// DefaultCacheProviderID is the ID of DefaultCacheProvider
	DefaultCacheProviderID = providers.BBoltID
	// DefaultTTL is the lifetime of an entry stored without an explicit TTL
	DefaultTTL = 30 * time.Minute
	// DefaultReapInterval is how often expired memory entries are purged
	DefaultReapInterval = time.Minute
)

// Lookup is a map of Options
type Lookup map[string]*Options

// Options is a collection of defining the reelsync Caching Behavior
type Options struct {
	// Name is the Name of the cache, taken from the Key in the Caches map[string]*Options
	Name string `yaml:"-"`
	// Provider represents the type of durable storage: "bbolt", "badger", "memory",
	// "filesystem", "redis" or "sqlite"
	Provider string `yaml:"provider,omitempty"`
	// DefaultTTL is applied to entries stored without a TTL
	DefaultTTL time.Duration `yaml:"default_ttl,omitempty"`
	// ReapInterval is how often expired memory entries are purged; 0 disables the reaper
	ReapInterval time.Duration `yaml:"reap_interval,omitempty"`
	// Redis provides options for Redis caching
	Redis *redis.Options `yaml:"redis,omitempty"`
	// Filesystem provides options for Filesystem caching
	Filesystem *filesystem.Options `yaml:"filesystem,omitempty"`
	// BBolt provides options for BBolt caching
	BBolt *bbolt.Options `yaml:"bbolt,omitempty"`
	// Badger provides options for BadgerDB caching
	Badger *badger.Options `yaml:"badger,omitempty"`
	// SQLite provides options for SQLite caching
	SQLite *sqlite.Options `yaml:"sqlite,omitempty"`

	// ProviderID represents the internal constant for the provided Provider string
	// and is automatically populated at startup
	ProviderID providers.Provider `yaml:"-"`
}

var (
	// ErrInvalidName is returned when a cache is configured with a reserved name
	ErrInvalidName = errors.New("invalid cache name")
	// ErrInvalidProvider is returned when the provider name is not supported
	ErrInvalidProvider = errors.New("invalid cache provider")
	// ErrInvalidTTL is returned when default_ttl is negative
	ErrInvalidTTL = errors.New("default_ttl must not be negative")
)

// New will return a pointer to an Options with the default configuration settings
func New() *Options {
	return &Options{
		Provider:     DefaultCacheProvider,
		ProviderID:   DefaultCacheProviderID,
		DefaultTTL:   DefaultTTL,
		ReapInterval: DefaultReapInterval,
		Redis:        redis.New(),
		Filesystem:   filesystem.New(),
		BBolt:        bbolt.New(),
		Badger:       badger.New(),
		SQLite:       sqlite.New(),
	}
}

// Clone returns an exact copy of the Options
func (c *Options) Clone() *Options {
	out := New()
	out.Name = c.Name
	out.Provider = c.Provider
	out.ProviderID = c.ProviderID
	out.DefaultTTL = c.DefaultTTL
	out.ReapInterval = c.ReapInterval
	if c.Redis != nil {
		r := *c.Redis
		r.Endpoints = append([]string(nil), c.Redis.Endpoints...)
		out.Redis = &r
	}
	if c.Filesystem != nil {
		f := *c.Filesystem
		out.Filesystem = &f
	}
	if c.BBolt != nil {
		b := *c.BBolt
		out.BBolt = &b
	}
	if c.Badger != nil {
		b := *c.Badger
		out.Badger = &b
	}
	if c.SQLite != nil {
		s := *c.SQLite
		out.SQLite = &s
	}
	return out
}

// Initialize sets up the cache Options with default values and overlays
// any values that were set during YAML unmarshaling
func (c *Options) Initialize(name string) error {
	c.Name = name
	if c.Provider == "" {
		c.Provider = DefaultCacheProvider
	}
	c.Provider = strings.ToLower(c.Provider)
	n, ok := providers.Names[c.Provider]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidProvider, c.Provider)
	}
	c.ProviderID = n
	if c.DefaultTTL == 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.Redis == nil {
		c.Redis = redis.New()
	}
	if c.Filesystem == nil {
		c.Filesystem = filesystem.New()
	}
	if c.BBolt == nil {
		c.BBolt = bbolt.New()
	}
	if c.Badger == nil {
		c.Badger = badger.New()
	}
	if c.SQLite == nil {
		c.SQLite = sqlite.New()
	}
	return nil
}

// Validate returns an error if the Options are not usable
func (c *Options) Validate() error {
	if c.Name == "" || c.Name == "none" {
		return ErrInvalidName
	}
	if _, ok := providers.Names[c.Provider]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidProvider, c.Provider)
	}
	if c.DefaultTTL < 0 {
		return ErrInvalidTTL
	}
	return nil
}

// UnmarshalYAML overlays the provided YAML onto the default Options
func (c *Options) UnmarshalYAML(unmarshal func(any) error) error {
	type loadOptions Options
	lo := loadOptions(*(New()))
	if err := unmarshal(&lo); err != nil {
		return err
	}
	*c = Options(lo)
	return nil
}
