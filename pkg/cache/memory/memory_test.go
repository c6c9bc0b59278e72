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

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/status"
)

func TestCache(t *testing.T) {
	c := New("test", nil)
	require.NoError(t, c.Connect())

	_, ls, err := c.Retrieve("k1")
	require.ErrorIs(t, err, cache.ErrKNF)
	require.Equal(t, status.LookupStatusKeyMiss, ls)

	data := []byte("value")
	require.NoError(t, c.Store("k1", data))
	data[0] = 'X'
	b, ls, err := c.Retrieve("k1")
	require.NoError(t, err)
	require.Equal(t, status.LookupStatusHit, ls)
	require.Equal(t, "value", string(b))

	require.NoError(t, c.Store("k2", []byte("v2")))
	keys, err := c.Keys()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"k1", "k2"}, keys)

	require.NoError(t, c.Remove("k1", "missing"))
	_, _, err = c.Retrieve("k1")
	require.ErrorIs(t, err, cache.ErrKNF)

	require.NoError(t, c.Close())
	keys, _ = c.Keys()
	require.Empty(t, keys)
}
