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

// Package bbolt is the bbolt implementation of the durable storage interface
package bbolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
	"go.etcd.io/bbolt"
)

var _ cache.Client = &CacheClient{}

var errNotConnected = errors.New("bbolt cache is not connected")

// CacheClient describes a BBolt CacheClient
type CacheClient struct {
	Name   string
	Config *options.Options
	dbh    *bbolt.DB
}

// New returns a new bbolt cache client
func New(cacheName string, opts *options.Options) *CacheClient {
	if opts == nil {
		opts = options.New()
	}
	return &CacheClient{Name: cacheName, Config: opts}
}

// Connect opens the database file and creates the bucket if needed
func (c *CacheClient) Connect() error {
	var err error
	c.dbh, err = bbolt.Open(c.Config.BBolt.Filename, 0o644, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(c.Config.BBolt.Bucket)); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return nil
	})
}

// Close closes the database file
func (c *CacheClient) Close() error {
	if c.dbh == nil {
		return nil
	}
	return c.dbh.Close()
}

// Store places data in the bucket under cacheKey
func (c *CacheClient) Store(cacheKey string, data []byte) error {
	if c.dbh == nil {
		return errNotConnected
	}
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(c.Config.BBolt.Bucket)).Put([]byte(cacheKey), data)
	})
}

// Retrieve gets data from the bucket; the returned slice is a copy
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	if c.dbh == nil {
		return nil, status.LookupStatusError, errNotConnected
	}
	var data []byte
	err := c.dbh.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(c.Config.BBolt.Bucket)).Get([]byte(cacheKey))
		if v == nil {
			return cache.ErrKNF
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if errors.Is(err, cache.ErrKNF) {
		return nil, status.LookupStatusKeyMiss, err
	}
	if err != nil {
		return nil, status.LookupStatusError, err
	}
	return data, status.LookupStatusHit, nil
}

// Remove deletes the provided keys in a single transaction
func (c *CacheClient) Remove(cacheKeys ...string) error {
	if c.dbh == nil {
		return errNotConnected
	}
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		for _, cacheKey := range cacheKeys {
			if err := b.Delete([]byte(cacheKey)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys returns every key in the bucket
func (c *CacheClient) Keys() ([]string, error) {
	if c.dbh == nil {
		return nil, errNotConnected
	}
	var out []string
	err := c.dbh.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(c.Config.BBolt.Bucket)).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}
