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

// Package filesystem is the filesystem implementation of the durable storage
// interface. Each key is one file under the configured cache path.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
)

var _ cache.Client = &CacheClient{}

const fileSuffix = "data"

var (
	escaper   = strings.NewReplacer("~", "~0", "/", "~1", "\\", "~2", "..", "~3", ".", "~4")
	unescaper = strings.NewReplacer("~0", "~", "~1", "/", "~2", "\\", "~3", "..", "~4", ".")
)

var errKeyRequired = errors.New("cacheKey required")

// CacheClient describes a Filesystem CacheClient
type CacheClient struct {
	Name   string
	Config *options.Options
}

// NewCache returns a new Filesystem CacheClient
func NewCache(name string, config *options.Options) *CacheClient {
	return &CacheClient{Name: name, Config: config}
}

// Connect ensures the cache directory exists and is writable
func (c *CacheClient) Connect() error {
	return makeDirectory(c.Config.Filesystem.CachePath)
}

// Close is a no-op for the filesystem provider
func (c *CacheClient) Close() error {
	return nil
}

// Store writes data to the file for cacheKey
func (c *CacheClient) Store(cacheKey string, data []byte) error {
	if cacheKey == "" {
		return errKeyRequired
	}
	return os.WriteFile(c.getFileName(cacheKey), data, 0o600)
}

// Retrieve reads the file for cacheKey
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	data, err := os.ReadFile(c.getFileName(cacheKey))
	if errors.Is(err, os.ErrNotExist) {
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	if err != nil {
		return nil, status.LookupStatusError, err
	}
	return data, status.LookupStatusHit, nil
}

// Remove deletes the files for the provided keys; absent files are ignored
func (c *CacheClient) Remove(cacheKeys ...string) error {
	for _, cacheKey := range cacheKeys {
		err := os.Remove(c.getFileName(cacheKey))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Keys lists the keys stored under the cache path
func (c *CacheClient) Keys() ([]string, error) {
	entries, err := os.ReadDir(c.Config.Filesystem.CachePath)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		out = append(out, unescaper.Replace(strings.TrimSuffix(name, fileSuffix)))
	}
	return out, nil
}

func (c *CacheClient) getFileName(cacheKey string) string {
	return filepath.Join(c.Config.Filesystem.CachePath, escaper.Replace(cacheKey)) + fileSuffix
}

// makeDirectory creates a directory on the filesystem and returns the error in the event of a failure.
func makeDirectory(path string) error {
	err := os.MkdirAll(path, 0o755)
	if err == nil {
		// verify writability by attempting to touch a test file in the cache path
		tf := filepath.Join(path, ".test."+strconv.FormatInt(time.Now().UnixNano(), 10))
		err = os.WriteFile(tf, []byte(""), 0o600)
		if err == nil {
			os.Remove(tf)
		}
	}
	if err != nil {
		return fmt.Errorf("[%s] directory is not writeable by reelsync: %w", path, err)
	}
	return nil
}
