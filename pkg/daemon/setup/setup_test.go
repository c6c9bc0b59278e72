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

package setup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache/providers"
	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/realtime"
)

const testConfig = `
logging:
  log_level: warn
metrics:
  listen_port: 0
caches:
  default:
    provider: memory
connectivity:
  provider: switch
  assume_online: true
docstore:
  provider: memory
`

func testInstanceConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reelsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))
	return path
}

func TestApplyConfigOfflineRoundTrip(t *testing.T) {
	conf, err := LoadAndValidate([]string{"-config", testInstanceConfig(t)})
	require.NoError(t, err)

	ctx := context.Background()
	si, err := ApplyConfig(ctx, conf)
	require.NoError(t, err)
	defer si.Shutdown(ctx)

	require.Nil(t, si.MetricsServer)
	require.NotNil(t, si.Switch)
	require.True(t, si.Monitor.IsOnline())
	require.NoError(t, si.Store.Create(ctx, realtime.VideosCollection, "v1",
		docstore.Fields{"id": "v1", "likes": 0}))

	var synced []events.SyncComplete
	done := make(chan struct{}, 1)
	events.Subscribe(si.Bus, func(e events.SyncComplete) {
		synced = append(synced, e)
		done <- struct{}{}
	})

	si.Switch.Set(false)
	require.False(t, si.Monitor.IsOnline())
	require.NoError(t, si.Realtime.Like(ctx, "v1", "u1", true))
	require.Equal(t, 1, si.Queue.PendingCount())

	rec := httptest.NewRecorder()
	newRouter(si).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StatusPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var s Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	require.False(t, s.Online)
	require.False(t, s.SharedCache)
	require.Equal(t, 1, s.Pending)

	si.Switch.Set(true)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue was not drained after reconnecting")
	}
	require.Equal(t, 0, si.Queue.PendingCount())
	require.Len(t, synced, 1)
	require.Equal(t, 1, synced[0].Count)
	// the replayed like reaches analytics
	st, err := si.Analytics.Video("v1")
	require.NoError(t, err)
	require.Equal(t, int64(1), st.Likes)

	require.NoError(t, si.Shutdown(ctx))
	// repeated shutdowns return the first result
	require.NoError(t, si.Shutdown(ctx))
}

func TestSharedCache(t *testing.T) {
	require.True(t, sharedCache(providers.Redis, false))
	require.False(t, sharedCache(providers.Redis, true))
	require.False(t, sharedCache(providers.BBolt, false))
	require.False(t, sharedCache(providers.Memory, false))
}

func TestApplyConfigNil(t *testing.T) {
	_, err := ApplyConfig(context.Background(), nil)
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	rec := httptest.NewRecorder()
	pingHandler(rec, httptest.NewRequest(http.MethodGet, PingPath, nil))
	require.Equal(t, "pong", rec.Body.String())
}

func TestSimulatedEvents(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	l := simulatedLike(now)
	require.Equal(t, SimulatedVideoID, l.VideoID)
	require.True(t, l.IsLiked)
	require.Equal(t, now.UnixMilli(), l.Timestamp)
	require.Regexp(t, `^user_\d+$`, l.UserID)

	c := simulatedComment(now)
	require.Equal(t, SimulatedVideoID, c.Comment.VideoID)
	require.Contains(t, simulatedComments, c.Comment.Text)
	require.Regexp(t, `^User\d+$`, c.Comment.Username)
	require.NotEmpty(t, c.Comment.ID)
}

func TestSimulateStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		Simulate(ctx, events.NewBus(), nil)
		close(stopped)
	}()
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Simulate did not return after cancel")
	}
}
