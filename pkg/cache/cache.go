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

// Package cache defines the durable key-value storage interface shared by
// the cache manager, the offline snapshot, the offline queue and the
// performance tracker
package cache

import (
	"errors"

	"github.com/trickstercache/reelsync/pkg/cache/status"
)

// ErrKNF represents the error "key not found in cache"
var ErrKNF = errors.New("key not found in cache")

// Client is the interface for the supported durable storage providers.
// Values are opaque text (JSON) owned by the caller.
// When making new providers, Retrieve() must return ErrKNF on a key miss,
// and Remove() must not fail for keys that are absent.
type Client interface {
	Connect() error
	Store(cacheKey string, data []byte) error
	Retrieve(cacheKey string) ([]byte, status.LookupStatus, error)
	Remove(cacheKeys ...string) error
	Keys() ([]string, error)
	Close() error
}
