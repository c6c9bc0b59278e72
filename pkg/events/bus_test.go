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

package events

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

func TestEmitInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var calls []string
	b.On(KindVideoLike, func(Event) { calls = append(calls, "A") })
	b.On(KindVideoLike, func(Event) { calls = append(calls, "B") })
	b.On(KindVideoView, func(Event) { calls = append(calls, "other") })
	b.Emit(VideoLike{VideoID: "v1"})
	require.Equal(t, []string{"A", "B"}, calls)
}

func TestOffBeforeEmit(t *testing.T) {
	b := NewBus()
	var calls []string
	a := b.On(KindVideoLike, func(Event) { calls = append(calls, "A") })
	b.On(KindVideoLike, func(Event) { calls = append(calls, "B") })
	require.True(t, b.Off(KindVideoLike, a))
	require.False(t, b.Off(KindVideoLike, a))
	b.Emit(VideoLike{})
	require.Equal(t, []string{"B"}, calls)
	require.Equal(t, 1, b.Count(KindVideoLike))
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := NewBus()
	before := testutil.ToFloat64(metrics.EventHandlerPanics.WithLabelValues(string(KindNewComment)))
	var ran bool
	b.On(KindNewComment, func(Event) { panic("boom") })
	b.On(KindNewComment, func(Event) { ran = true })
	require.NotPanics(t, func() { b.Emit(NewComment{}) })
	require.True(t, ran)
	require.Equal(t, before+1,
		testutil.ToFloat64(metrics.EventHandlerPanics.WithLabelValues(string(KindNewComment))))
}

func TestHandlerMayUnregisterDuringEmit(t *testing.T) {
	b := NewBus()
	var calls []string
	var idB HandlerID
	b.On(KindConnected, func(Event) {
		calls = append(calls, "A")
		b.Off(KindConnected, idB)
	})
	idB = b.On(KindConnected, func(Event) { calls = append(calls, "B") })
	b.Emit(Connected{})
	b.Emit(Connected{})
	require.Equal(t, []string{"A", "B", "A"}, calls)
}

func TestSubscribeTyped(t *testing.T) {
	b := NewBus()
	var got SyncComplete
	Subscribe(b, func(e SyncComplete) { got = e })
	b.Emit(SyncComplete{Count: 2, Committed: 1, Dropped: 1})
	require.Equal(t, SyncComplete{Count: 2, Committed: 1, Dropped: 1}, got)
}

func TestClear(t *testing.T) {
	b := NewBus()
	b.On(KindDisconnected, func(Event) { t.Fatal("cleared handler ran") })
	b.Clear()
	require.Zero(t, b.Count(KindDisconnected))
	b.Emit(Disconnected{})
	b.Emit(nil)
}

func TestKinds(t *testing.T) {
	require.Equal(t, Kind("connectionChange"), ConnectivityChanged{}.Kind())
	require.Equal(t, Kind("syncComplete"), SyncComplete{}.Kind())
	require.Equal(t, Kind("newComment"), NewComment{}.Kind())
}
