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

package perf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/cache/manager"
	"github.com/trickstercache/reelsync/pkg/cache/memory"
	"github.com/trickstercache/reelsync/pkg/cache/options"
	"github.com/trickstercache/reelsync/pkg/cache/status"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

type testClock struct {
	mtx sync.Mutex
	t   time.Time
}

func (c *testClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mtx.Lock()
	c.t = c.t.Add(d)
	c.mtx.Unlock()
}

func newTracker(t *testing.T, client cache.Client, o ...Option) (*Tracker, *manager.Manager, *testClock) {
	t.Helper()
	if client == nil {
		client = memory.New("test", nil)
	}
	clock := &testClock{t: time.UnixMilli(1_700_000_000_000)}
	co := options.New()
	co.Name = "test"
	co.ReapInterval = 0
	m := manager.New(client, co, manager.WithClock(clock.Now))
	t.Cleanup(func() { m.Close() })
	return New(m, append([]Option{WithClock(clock.Now)}, o...)...), m, clock
}

func TestTimers(t *testing.T) {
	tr, _, clock := newTracker(t, nil)

	require.Equal(t, time.Duration(0), tr.EndTimer(OpAppStart))

	tr.StartTimer(OpAppStart)
	clock.Advance(1200 * time.Millisecond)
	require.Equal(t, 1200*time.Millisecond, tr.EndTimer(OpAppStart))
	// a timer is consumed by EndTimer
	require.Equal(t, time.Duration(0), tr.EndTimer(OpAppStart))

	tr.StartTimer(OpNavigation)
	tr.StartTimer(OpAPICall)
	tr.StartTimer("custom")
	clock.Advance(300 * time.Millisecond)
	tr.EndTimer(OpNavigation)
	clock.Advance(100 * time.Millisecond)
	tr.EndTimer(OpAPICall)
	require.Equal(t, 400*time.Millisecond, tr.EndTimer("custom"))

	require.Equal(t, Metrics{
		AppStartTime:    1200 * time.Millisecond,
		NavigationTime:  300 * time.Millisecond,
		APIResponseTime: 400 * time.Millisecond,
	}, tr.Metrics())
	require.GreaterOrEqual(t, testutil.CollectAndCount(metrics.PerfTimerDuration), 4)
}

func TestMetricsPersist(t *testing.T) {
	client := memory.New("test", nil)
	tr, _, clock := newTracker(t, client)
	tr.StartTimer(OpVideoLoad)
	clock.Advance(250 * time.Millisecond)
	tr.EndTimer(OpVideoLoad)

	b, _, err := client.Retrieve(MetricsKey)
	require.NoError(t, err)
	require.Contains(t, string(b), `"videoLoadTime":250000000`)

	restored, _, _ := newTracker(t, client)
	require.Equal(t, Metrics{}, restored.Metrics())
	restored.Load()
	require.Equal(t, 250*time.Millisecond, restored.Metrics().VideoLoadTime)

	require.NoError(t, client.Store(MetricsKey, []byte("{bad")))
	corrupt, _, _ := newTracker(t, client)
	corrupt.Load()
	require.Equal(t, Metrics{}, corrupt.Metrics())
}

func TestCacheHitRate(t *testing.T) {
	tr, m, _ := newTracker(t, nil)
	require.Zero(t, tr.Metrics().CacheHitRate)
	require.NoError(t, m.Set("a", 1, 0))
	require.True(t, m.Get("a", nil))
	require.False(t, m.Get("b", nil))
	require.InDelta(t, 0.5, tr.Metrics().CacheHitRate, 0.0001)
}

func TestRecordErrorKeepsNewest(t *testing.T) {
	client := memory.New("test", nil)
	tr, _, clock := newTracker(t, client)
	tr.RecordError(nil, "ignored")
	for i := range 12 {
		tr.RecordError(fmt.Errorf("failure %d", i), "test")
		clock.Advance(time.Millisecond)
	}
	// same instant twice still yields two records
	tr.RecordError(errors.New("twin a"), "test")
	tr.RecordError(errors.New("twin b"), "test")

	keys, err := client.Keys()
	require.NoError(t, err)
	var n int
	for _, k := range keys {
		if strings.HasPrefix(k, ErrorKeyPrefix) {
			n++
		}
	}
	require.Equal(t, MaxErrorLogs, n)

	recs := tr.Errors()
	require.Len(t, recs, MaxErrorLogs)
	require.Equal(t, "twin b", recs[0].Message)
	require.Equal(t, "twin a", recs[1].Message)
	require.Equal(t, "failure 11", recs[2].Message)
	require.Equal(t, "failure 4", recs[9].Message)
	require.Equal(t, "test", recs[0].Context)
}

func TestPreloadVideo(t *testing.T) {
	var fetched []string
	var fail bool
	fetch := func(_ context.Context, url string) error {
		fetched = append(fetched, url)
		if fail {
			return errors.New("unreachable")
		}
		return nil
	}
	tr, _, clock := newTracker(t, nil, WithFetcher(fetch))
	ctx := context.Background()

	require.ErrorIs(t, tr.PreloadVideo(ctx, ""), manager.ErrInvalidKey)
	require.False(t, tr.IsVideoCached("https://cdn/a.mp4"))
	require.NoError(t, tr.PreloadVideo(ctx, "https://cdn/a.mp4"))
	require.True(t, tr.IsVideoCached("https://cdn/a.mp4"))
	require.NoError(t, tr.PreloadVideo(ctx, "https://cdn/a.mp4"))
	require.Equal(t, []string{"https://cdn/a.mp4"}, fetched)

	clock.Advance(VideoMarkerTTL + time.Millisecond)
	require.False(t, tr.IsVideoCached("https://cdn/a.mp4"))

	fail = true
	require.Error(t, tr.PreloadVideo(ctx, "https://cdn/b.mp4"))
	require.False(t, tr.IsVideoCached("https://cdn/b.mp4"))
	require.Len(t, tr.Errors(), 1)
	require.Equal(t, "preloadVideo", tr.Errors()[0].Context)
}

// unreadableClient stores writes but fails every read
type unreadableClient struct {
	*memory.Cache
}

var errUnreadable = errors.New("storage unreadable")

func (c unreadableClient) Retrieve(string) ([]byte, status.LookupStatus, error) {
	return nil, status.LookupStatusError, errUnreadable
}

func TestRecordErrorWithFailingReads(t *testing.T) {
	client := unreadableClient{Cache: memory.New("test", nil)}
	tr, _, _ := newTracker(t, client, WithFetcher(func(context.Context, string) error {
		return errors.New("unreachable")
	}))

	done := make(chan error)
	go func() {
		tr.RecordError(errors.New("boom"), "test")
		tr.RecordError(errors.New("boom again"), "test")
		done <- tr.PreloadVideo(context.Background(), "https://cdn/c.mp4")
	}()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RecordError did not return with durable reads failing")
	}

	keys, err := client.Keys()
	require.NoError(t, err)
	var n int
	for _, k := range keys {
		if strings.HasPrefix(k, ErrorKeyPrefix) {
			n++
		}
	}
	// same clock reading, so every record lands on one key
	require.Equal(t, 1, n)
}
