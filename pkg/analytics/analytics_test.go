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

package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache/memory"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/model"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func newService(t *testing.T) (*Service, *memory.Cache) {
	t.Helper()
	client := memory.New("test", nil)
	t.Cleanup(func() { client.Close() })
	return New(client, WithClock(func() time.Time { return testNow })), client
}

func TestBusEventsUpdateStats(t *testing.T) {
	s, _ := newService(t)
	bus := events.NewBus()
	detach := s.Attach(bus)

	bus.Emit(events.VideoView{VideoID: "v1", UserID: "u1", Timestamp: 1})
	bus.Emit(events.VideoView{VideoID: "v1", UserID: "u2", Timestamp: 2})
	bus.Emit(events.VideoLike{VideoID: "v1", UserID: "u1", IsLiked: true, Timestamp: 3})
	bus.Emit(events.VideoLike{VideoID: "v1", UserID: "u2", IsLiked: true, Timestamp: 4})
	bus.Emit(events.VideoLike{VideoID: "v1", UserID: "u2", IsLiked: false, Timestamp: 5})
	bus.Emit(events.NewComment{Comment: model.Comment{ID: "c1", VideoID: "v1",
		UserID: "u1", Text: "héllo", Timestamp: 6}})

	st, err := s.Video("v1")
	require.NoError(t, err)
	require.Equal(t, Stats{VideoID: "v1", Views: 2, Likes: 1, Comments: 1,
		Engagement: 100}, st)

	log, err := s.Events()
	require.NoError(t, err)
	require.Len(t, log, 6)
	require.Equal(t, TypeView, log[0].Type)
	require.Equal(t, TypeLike, log[2].Type)
	require.False(t, log[4].IsLiked)
	require.Equal(t, Event{Type: TypeComment, VideoID: "v1", UserID: "u1",
		CommentLength: 5, Timestamp: 6}, log[5])

	detach()
	require.Zero(t, bus.Count(events.KindVideoLike))
	bus.Emit(events.VideoView{VideoID: "v1", UserID: "u3", Timestamp: 7})
	st, err = s.Video("v1")
	require.NoError(t, err)
	require.Equal(t, int64(2), st.Views)
}

func TestLikesStayNonNegative(t *testing.T) {
	s, _ := newService(t)
	require.NoError(t, s.TrackLike("v1", "u1", false, 1))
	st, err := s.Video("v1")
	require.NoError(t, err)
	require.Zero(t, st.Likes)
}

func TestEventLogIsBounded(t *testing.T) {
	s, _ := newService(t)
	for i := range MaxEvents + 5 {
		require.NoError(t, s.TrackView("v1", "u1", int64(i+1)))
	}
	log, err := s.Events()
	require.NoError(t, err)
	require.Len(t, log, MaxEvents)
	require.Equal(t, int64(6), log[0].Timestamp)
	require.Equal(t, int64(MaxEvents+5), log[len(log)-1].Timestamp)

	st, err := s.Video("v1")
	require.NoError(t, err)
	require.Equal(t, int64(MaxEvents+5), st.Views)
}

func TestStatsSurviveRestart(t *testing.T) {
	s, client := newService(t)
	require.NoError(t, s.TrackView("v1", "u1", 0))
	require.NoError(t, s.TrackShare("v1", "u1", "copy", 0))

	s2 := New(client)
	st, err := s2.Video("v1")
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Views)
	require.Equal(t, int64(1), st.Shares)

	log, err := s2.Events()
	require.NoError(t, err)
	require.Len(t, log, 2)
	// a zero timestamp takes the clock's
	require.Equal(t, testNow.UnixMilli(), log[0].Timestamp)
	require.Equal(t, "copy", log[1].Platform)
}

func TestUnknownVideo(t *testing.T) {
	s, _ := newService(t)
	st, err := s.Video("nope")
	require.NoError(t, err)
	require.Equal(t, Stats{VideoID: "nope"}, st)

	log, err := s.Events()
	require.NoError(t, err)
	require.Empty(t, log)

	// events without a video are ignored
	require.NoError(t, s.TrackView("", "u1", 1))
	log, err = s.Events()
	require.NoError(t, err)
	require.Empty(t, log)
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	s, client := newService(t)
	require.NoError(t, client.Store(EventsKey, []byte("{")))
	require.NoError(t, client.Store(VideoKeyPrefix+"v1", []byte("[")))

	require.NoError(t, s.TrackComment("v1", "u1", 3, 1))
	log, err := s.Events()
	require.NoError(t, err)
	require.Len(t, log, 1)
	st, err := s.Video("v1")
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Comments)
}

func TestExport(t *testing.T) {
	s, _ := newService(t)
	require.NoError(t, s.TrackView("v1", "u1", 1))
	b, err := s.Export("v1")
	require.NoError(t, err)
	require.JSONEq(t, `{"videoId":"v1","views":1,"likes":0,"comments":0,
		"shares":0,"engagement":0}`, string(b))
}

func TestEngagementRate(t *testing.T) {
	tests := []struct {
		likes, comments, shares, views int64
		expected                       float64
	}{
		{0, 0, 0, 0, 0},
		{5, 0, 0, 0, 0},
		{1, 1, 2, 8, 50},
		{10, 5, 5, 10, 200},
	}
	for _, test := range tests {
		require.InDelta(t, test.expected,
			EngagementRate(test.likes, test.comments, test.shares, test.views), 1e-9)
	}
}

func TestViralityScore(t *testing.T) {
	tests := []struct {
		name          string
		shares, views int64
		age           time.Duration
		expected      float64
	}{
		{"new", 10, 100, 0, 100},
		{"half window", 10, 100, ViralityWindow / 2, 50},
		{"expired", 10, 100, 2 * ViralityWindow, 0},
		{"no views", 2, 0, 0, 2000},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.InDelta(t, test.expected,
				ViralityScore(test.shares, test.views, test.age), 1e-9)
		})
	}

	s, _ := newService(t)
	require.NoError(t, s.TrackView("v1", "u1", 1))
	require.NoError(t, s.TrackShare("v1", "u1", "copy", 2))
	v, err := s.Virality("v1", testNow.Add(-ViralityWindow/4))
	require.NoError(t, err)
	require.InDelta(t, 750, v, 1e-9)
}
