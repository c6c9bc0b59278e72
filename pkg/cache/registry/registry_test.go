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

package registry

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache/bbolt"
	"github.com/trickstercache/reelsync/pkg/cache/memory"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/providers"
	"github.com/trickstercache/reelsync/pkg/cache/redis"
	"github.com/trickstercache/reelsync/pkg/cache/sqlite"
)

func newOptions(t *testing.T, provider string) *options.Options {
	t.Helper()
	o := options.New()
	o.Provider = provider
	require.NoError(t, o.Initialize("default"))
	return o
}

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		check    func(any) bool
	}{
		{providers.Memory, func(c any) bool { _, ok := c.(*memory.Cache); return ok }},
		{providers.BBolt, func(c any) bool { _, ok := c.(*bbolt.CacheClient); return ok }},
		{providers.Redis, func(c any) bool { _, ok := c.(*redis.CacheClient); return ok }},
		{providers.SQLite, func(c any) bool { _, ok := c.(*sqlite.CacheClient); return ok }},
	}
	for _, test := range tests {
		t.Run(test.provider, func(t *testing.T) {
			c := New("default", newOptions(t, test.provider))
			oc, ok := c.(*observedClient)
			require.True(t, ok)
			require.True(t, test.check(oc.Client))
			require.Equal(t, test.provider, oc.provider)
		})
	}
}

func TestConnectDurable(t *testing.T) {
	o := newOptions(t, providers.BBolt)
	o.BBolt.Filename = filepath.Join(t.TempDir(), "reelsync.db")
	c, degraded := Connect("default", o)
	defer c.Close()
	require.False(t, degraded)
	require.NoError(t, c.Store("k", []byte("v")))
	b, _, err := c.Retrieve("k")
	require.NoError(t, err)
	require.Equal(t, "v", string(b))
}

func TestConnectFallsBackToMemory(t *testing.T) {
	s := miniredis.NewMiniRedis()
	require.NoError(t, s.Start())
	addr := s.Addr()
	s.Close()

	o := newOptions(t, providers.Redis)
	o.Redis.Endpoint = addr
	c, degraded := Connect("default", o)
	require.True(t, degraded)
	oc := c.(*observedClient)
	_, ok := oc.Client.(*memory.Cache)
	require.True(t, ok)
	require.NoError(t, c.Store("k", []byte("v")))
	require.NoError(t, c.Remove("k"))
}
