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

package probe

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/connectivity"
	po "github.com/trickstercache/reelsync/pkg/connectivity/probe/options"
)

type recorder struct {
	mtx    sync.Mutex
	states []bool
}

func (r *recorder) add(s connectivity.State) {
	r.mtx.Lock()
	r.states = append(r.states, s.IsConnected)
	r.mtx.Unlock()
}

func (r *recorder) get() []bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]bool(nil), r.states...)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, nil)
	require.ErrorIs(t, err, po.ErrInvalidURL)
	o := po.New()
	o.URL = "http://127.0.0.1/health"
	o.Interval = 0
	_, err = New(o, nil)
	require.ErrorIs(t, err, po.ErrInvalidInterval)
}

func TestProbeThresholds(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	o := po.New()
	o.URL = ts.URL
	o.Interval = 5 * time.Millisecond
	o.ExpectedCodes = []int{http.StatusNoContent}
	o.FailureThreshold = 2
	o.RecoveryThreshold = 2
	tg, err := New(o, nil)
	require.NoError(t, err)

	rec := &recorder{}
	tg.AddListener(rec.add)
	require.NoError(t, tg.Start())
	defer tg.Stop()

	// first result sets the initial state without waiting for the threshold
	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []bool{true}, rec.get())

	healthy.Store(false)
	require.Eventually(t, func() bool { return len(rec.get()) == 2 }, time.Second, time.Millisecond)
	healthy.Store(true)
	require.Eventually(t, func() bool { return len(rec.get()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []bool{true, false, true}, rec.get())
}

func TestProbeUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	o := po.New()
	o.URL = url
	o.Interval = 5 * time.Millisecond
	o.Timeout = 100 * time.Millisecond
	tg, err := New(o, nil)
	require.NoError(t, err)
	rec := &recorder{}
	tg.AddListener(rec.add)
	require.NoError(t, tg.Start())
	require.Eventually(t, func() bool { return len(rec.get()) >= 1 }, time.Second, time.Millisecond)
	tg.Stop()
	tg.Stop()
	require.Equal(t, []bool{false}, rec.get())
}
