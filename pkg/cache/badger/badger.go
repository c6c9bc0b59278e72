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

// Package badger is the BadgerDB implementation of the durable storage interface
package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
)

var _ cache.Client = &CacheClient{}

var errNotConnected = errors.New("badger cache is not connected")

// CacheClient describes a Badger CacheClient
type CacheClient struct {
	Name   string
	Config *options.Options
	dbh    *badger.DB
}

// New returns a new Badger cache client
func New(name string, cfg *options.Options) *CacheClient {
	if cfg == nil {
		cfg = options.New()
	}
	return &CacheClient{Name: name, Config: cfg}
}

// Connect opens the configured Badger key-value store
func (c *CacheClient) Connect() error {
	opts := badger.DefaultOptions(c.Config.Badger.Directory)
	opts.ValueDir = c.Config.Badger.ValueDirectory
	if opts.ValueDir == "" {
		opts.ValueDir = opts.Dir
	}
	opts.Logger = badgerLogger{}
	var err error
	c.dbh, err = badger.Open(opts)
	return err
}

// Close closes the Badger store
func (c *CacheClient) Close() error {
	if c.dbh == nil {
		return nil
	}
	return c.dbh.Close()
}

// Store places the data into the Badger store using the provided Key
func (c *CacheClient) Store(cacheKey string, data []byte) error {
	if c.dbh == nil {
		return errNotConnected
	}
	return c.dbh.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cacheKey), data)
	})
}

// Retrieve gets data from the Badger store using the provided Key
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	if c.dbh == nil {
		return nil, status.LookupStatusError, errNotConnected
	}
	var data []byte
	err := c.dbh.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		return data, status.LookupStatusHit, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	return nil, status.LookupStatusError, err
}

// Remove deletes the provided keys in a single transaction
func (c *CacheClient) Remove(cacheKeys ...string) error {
	if c.dbh == nil {
		return errNotConnected
	}
	return c.dbh.Update(func(txn *badger.Txn) error {
		for _, cacheKey := range cacheKeys {
			if err := txn.Delete([]byte(cacheKey)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys returns every key in the store
func (c *CacheClient) Keys() ([]string, error) {
	if c.dbh == nil {
		return nil, errNotConnected
	}
	var out []string
	err := c.dbh.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return out, err
}

// badgerLogger routes Badger's internal logging to the application logger
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...any) {
	logger.Error("badger error", logPairs(f, v))
}

func (badgerLogger) Warningf(f string, v ...any) {
	logger.Warn("badger warning", logPairs(f, v))
}

func (badgerLogger) Infof(f string, v ...any) {
	logger.Debug("badger info", logPairs(f, v))
}

func (badgerLogger) Debugf(f string, v ...any) {
	logger.Debug("badger debug", logPairs(f, v))
}

func logPairs(f string, v []any) logging.Pairs {
	return logging.Pairs{"detail": fmt.Sprintf(f, v...)}
}
