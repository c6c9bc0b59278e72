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

package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
)

func newCacheClient(t *testing.T) *CacheClient {
	t.Helper()
	o := options.New()
	o.Provider = "badger"
	dir := t.TempDir()
	o.Badger.Directory = dir
	o.Badger.ValueDirectory = ""
	c := New("test", o)
	require.NoError(t, c.Connect())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNotConnected(t *testing.T) {
	c := New("test", nil)
	require.ErrorIs(t, c.Store("k", nil), errNotConnected)
	_, err := c.Keys()
	require.ErrorIs(t, err, errNotConnected)
}

func TestStoreRetrieveRemove(t *testing.T) {
	c := newCacheClient(t)

	_, ls, err := c.Retrieve("cache_a")
	require.ErrorIs(t, err, cache.ErrKNF)
	require.Equal(t, status.LookupStatusKeyMiss, ls)

	require.NoError(t, c.Store("cache_a", []byte("a")))
	require.NoError(t, c.Store("cache_b", []byte("b")))
	b, ls, err := c.Retrieve("cache_a")
	require.NoError(t, err)
	require.Equal(t, status.LookupStatusHit, ls)
	require.Equal(t, "a", string(b))

	keys, err := c.Keys()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"cache_a", "cache_b"}, keys)

	require.NoError(t, c.Remove("cache_a", "missing"))
	_, _, err = c.Retrieve("cache_a")
	require.ErrorIs(t, err, cache.ErrKNF)
}
