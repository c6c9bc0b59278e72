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

package snapshot

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache/memory"
	"github.com/trickstercache/reelsync/pkg/model"
	"github.com/trickstercache/reelsync/pkg/offline/snapshot/options"
)

func newSnapshot(t *testing.T) (*Snapshot, *memory.Cache) {
	t.Helper()
	c := memory.New("test", nil)
	now := time.UnixMilli(1_700_000_000_000)
	return New(c, nil, WithClock(func() time.Time { return now })), c
}

func videoIDs(vs []model.Video) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestVideoEvictionKeepsNewest(t *testing.T) {
	s, _ := newSnapshot(t)
	for i := 1; i <= 51; i++ {
		require.NoError(t, s.CacheVideo(model.Video{ID: fmt.Sprintf("v%d", i)}))
	}
	vs := s.Videos()
	require.Len(t, vs, 50)
	require.NotContains(t, videoIDs(vs), "v1")
	require.Equal(t, "v2", vs[0].ID)
	require.Equal(t, "v51", vs[49].ID)
}

func TestUpsertMovesToNewest(t *testing.T) {
	s, _ := newSnapshot(t)
	require.NoError(t, s.CacheVideos([]model.Video{{ID: "a"}, {ID: "b"}, {ID: "c"}}))
	require.NoError(t, s.CacheVideo(model.Video{ID: "a", Likes: 9}))
	vs := s.Videos()
	require.Equal(t, []string{"b", "c", "a"}, videoIDs(vs))
	require.Equal(t, int64(9), vs[2].Likes)
}

func TestUpdatedVideoOutlivesOlderOnes(t *testing.T) {
	s, _ := newSnapshot(t)
	for i := 1; i <= options.DefaultMaxVideos; i++ {
		require.NoError(t, s.CacheVideo(model.Video{ID: fmt.Sprintf("v%d", i)}))
	}
	require.NoError(t, s.CacheVideo(model.Video{ID: "v1", Likes: 5}))
	require.NoError(t, s.CacheVideo(model.Video{ID: "v51"}))

	ids := videoIDs(s.Videos())
	require.Len(t, ids, options.DefaultMaxVideos)
	require.Equal(t, "v3", ids[0])
	require.NotContains(t, ids, "v2")
	require.Contains(t, ids, "v1")
	require.Equal(t, []string{"v1", "v51"}, ids[len(ids)-2:])
}

func TestCapsAreConfigurable(t *testing.T) {
	o := options.New()
	o.MaxProfiles = 2
	o.MaxCommentSets = 1
	s := New(memory.New("test", nil), o)
	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, s.CacheUserProfile(model.UserProfile{ID: id}))
	}
	_, ok := s.UserProfile("u1")
	require.False(t, ok)
	p, ok := s.UserProfile("u3")
	require.True(t, ok)
	require.Equal(t, "u3", p.ID)

	require.NoError(t, s.CacheComments("v1", []model.Comment{{ID: "c1"}}))
	require.NoError(t, s.CacheComments("v2", []model.Comment{{ID: "c2"}}))
	require.Empty(t, s.Comments("v1"))
	require.NotNil(t, s.Comments("v1"))
	require.Equal(t, "c2", s.Comments("v2")[0].ID)
}

func TestPersistAndLoad(t *testing.T) {
	s, c := newSnapshot(t)
	require.True(t, s.LastSync().IsZero())
	require.NoError(t, s.CacheVideo(model.Video{ID: "v1", LikedBy: []string{"u1"}}))
	require.NoError(t, s.CacheUserProfile(model.UserProfile{ID: "u1", Username: "alice"}))
	require.NoError(t, s.CacheComments("v1", []model.Comment{{ID: "c1", Text: "hi"}}))
	require.Equal(t, int64(1_700_000_000_000), s.LastSync().UnixMilli())

	b, _, err := c.Retrieve(DataKey)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	require.ElementsMatch(t, []string{"videos", "userProfiles", "comments", "lastSync"}, keysOf(raw))

	s2 := New(c, nil)
	s2.Load()
	require.Equal(t, s.Videos(), s2.Videos())
	p, ok := s2.UserProfile("u1")
	require.True(t, ok)
	require.Equal(t, "alice", p.Username)
	require.Equal(t, "hi", s2.Comments("v1")[0].Text)
	require.Equal(t, s.LastSync(), s2.LastSync())
}

func keysOf(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestLoadCorruptOrMissing(t *testing.T) {
	c := memory.New("test", nil)
	s := New(c, nil)
	s.Load()
	require.Empty(t, s.Videos())

	require.NoError(t, c.Store(DataKey, []byte("{broken")))
	s.Load()
	require.Empty(t, s.Videos())
	require.True(t, s.LastSync().IsZero())
}

func TestLoadTrimsToCaps(t *testing.T) {
	c := memory.New("test", nil)
	s := New(c, nil)
	for i := range 10 {
		require.NoError(t, s.CacheVideo(model.Video{ID: fmt.Sprintf("v%d", i)}))
	}
	o := options.New()
	o.MaxVideos = 3
	s2 := New(c, o)
	s2.Load()
	require.Equal(t, []string{"v7", "v8", "v9"}, videoIDs(s2.Videos()))
}

func TestVideosReturnsCopy(t *testing.T) {
	s, _ := newSnapshot(t)
	require.NoError(t, s.CacheVideo(model.Video{ID: "v1"}))
	vs := s.Videos()
	vs[0].ID = "changed"
	require.Equal(t, "v1", s.Videos()[0].ID)
}

func TestMissingID(t *testing.T) {
	s, _ := newSnapshot(t)
	require.ErrorIs(t, s.CacheVideo(model.Video{}), ErrMissingID)
	require.ErrorIs(t, s.CacheUserProfile(model.UserProfile{}), ErrMissingID)
	require.ErrorIs(t, s.CacheComments("", nil), ErrMissingID)
	require.NoError(t, s.CacheVideos(nil))
}

func TestClear(t *testing.T) {
	s, c := newSnapshot(t)
	require.NoError(t, s.CacheVideo(model.Video{ID: "v1"}))
	s.Clear()
	require.Empty(t, s.Videos())
	s2 := New(c, nil)
	s2.Load()
	require.Empty(t, s2.Videos())
}
