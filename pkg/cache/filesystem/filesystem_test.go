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

package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
)

func newCacheClient(t *testing.T) *CacheClient {
	t.Helper()
	o := options.New()
	o.Provider = "filesystem"
	o.Filesystem.CachePath = t.TempDir()
	c := NewCache("test", o)
	require.NoError(t, c.Connect())
	return c
}

func TestConfigurationRequiresWritableDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	o := options.New()
	o.Filesystem.CachePath = filepath.Join(file, "sub")
	require.Error(t, NewCache("test", o).Connect())
}

func TestStoreRetrieveRemove(t *testing.T) {
	c := newCacheClient(t)

	require.ErrorIs(t, c.Store("", []byte("x")), errKeyRequired)

	_, ls, err := c.Retrieve("cache_videos")
	require.ErrorIs(t, err, cache.ErrKNF)
	require.Equal(t, status.LookupStatusKeyMiss, ls)

	require.NoError(t, c.Store("cache_videos", []byte(`{"data":1}`)))
	b, ls, err := c.Retrieve("cache_videos")
	require.NoError(t, err)
	require.Equal(t, status.LookupStatusHit, ls)
	require.Equal(t, `{"data":1}`, string(b))

	require.NoError(t, c.Remove("cache_videos", "never_stored"))
	_, _, err = c.Retrieve("cache_videos")
	require.ErrorIs(t, err, cache.ErrKNF)
}

func TestKeysRoundTripEscaping(t *testing.T) {
	c := newCacheClient(t)
	keys := []string{
		"offline_actions",
		"video_https://cdn.example.com/a/../b.mp4",
		`odd~key\with.dots`,
	}
	for _, k := range keys {
		require.NoError(t, c.Store(k, []byte("1")))
	}
	got, err := c.Keys()
	require.NoError(t, err)
	require.ElementsMatch(t, keys, got)
}
