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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
)

func setupRedisCache(t *testing.T) (*CacheClient, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	o := options.New()
	o.Provider = "redis"
	o.Redis.Endpoint = s.Addr()
	c := New("test", o)
	require.NoError(t, c.Connect())
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestClientOptsValidation(t *testing.T) {
	o := options.New()
	o.Redis.Endpoint = ""
	c := New("test", o)
	require.ErrorIs(t, c.Connect(), ErrInvalidEndpointConfig)

	o.Redis.ClientType = "cluster"
	o.Redis.Endpoints = nil
	require.ErrorIs(t, c.Connect(), ErrInvalidEndpointsConfig)

	o.Redis.ClientType = "sentinel"
	o.Redis.Endpoints = []string{"127.0.0.1:26379"}
	require.ErrorIs(t, c.Connect(), ErrInvalidSentinelMasterConfig)

	o.Redis.ClientType = "bogus"
	require.ErrorIs(t, c.Connect(), ErrInvalidClientType)
}

func TestConnectUnreachable(t *testing.T) {
	s := miniredis.NewMiniRedis()
	require.NoError(t, s.Start())
	addr := s.Addr()
	s.Close()
	o := options.New()
	o.Redis.Endpoint = addr
	require.Error(t, New("test", o).Connect())
}

func TestStoreRetrieveRemove(t *testing.T) {
	c, s := setupRedisCache(t)

	_, ls, err := c.Retrieve("cache_a")
	require.ErrorIs(t, err, cache.ErrKNF)
	require.Equal(t, status.LookupStatusKeyMiss, ls)

	require.NoError(t, c.Store("cache_a", []byte(`{"data":"a"}`)))
	v, err := s.Get("reelsync:cache_a")
	require.NoError(t, err)
	require.Equal(t, `{"data":"a"}`, v)
	require.Zero(t, s.TTL("reelsync:cache_a"))

	b, ls, err := c.Retrieve("cache_a")
	require.NoError(t, err)
	require.Equal(t, status.LookupStatusHit, ls)
	require.Equal(t, `{"data":"a"}`, string(b))

	require.NoError(t, c.Remove("cache_a", "missing"))
	require.False(t, s.Exists("reelsync:cache_a"))
	require.NoError(t, c.Remove())
}

func TestKeysHonorsPrefix(t *testing.T) {
	c, s := setupRedisCache(t)
	require.NoError(t, s.Set("other:thing", "x"))
	require.NoError(t, c.Store("cache_a", []byte("1")))
	require.NoError(t, c.Store("offline_actions", []byte("[]")))
	keys, err := c.Keys()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"cache_a", "offline_actions"}, keys)
}

func TestRetrieveServerError(t *testing.T) {
	c, s := setupRedisCache(t)
	s.SetError("ERR boom")
	_, ls, err := c.Retrieve("cache_a")
	require.Error(t, err)
	require.Equal(t, status.LookupStatusError, ls)
}
