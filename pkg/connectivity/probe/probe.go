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

// Package probe provides a connectivity Provider that polls an HTTP endpoint
// and reports a state change after a run of consecutive results
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/trickstercache/reelsync/pkg/connectivity"
	po "github.com/trickstercache/reelsync/pkg/connectivity/probe/options"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
)

var _ connectivity.Provider = &Target{}

// Target probes a URL on an interval
type Target struct {
	baseRequest       *http.Request
	httpClient        *http.Client
	interval          time.Duration
	expectedCodes     []int
	failureThreshold  int
	recoveryThreshold int

	ls connectivity.Listeners

	// probe loop state; only touched by the loop goroutine
	failCnt    int
	successCnt int
	ks         int // -1 offline, 0 unknown, 1 online
	detail     string

	mtx    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Target for the provided options. A nil client gets a client
// honoring the configured timeout.
func New(o *po.Options, client *http.Client) (*Target, error) {
	if o == nil {
		o = po.New()
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	method := o.Method
	if method == "" {
		method = po.DefaultMethod
	}
	r, err := http.NewRequest(method, o.URL, nil)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = newHTTPClient(o.Timeout)
	}
	t := &Target{
		baseRequest:       r,
		httpClient:        client,
		interval:          o.Interval,
		expectedCodes:     o.ExpectedCodes,
		failureThreshold:  o.FailureThreshold,
		recoveryThreshold: o.RecoveryThreshold,
	}
	if len(t.expectedCodes) == 0 {
		t.expectedCodes = []int{http.StatusOK}
	}
	if t.failureThreshold < 1 {
		t.failureThreshold = po.DefaultFailureThreshold
	}
	if t.recoveryThreshold < 1 {
		t.recoveryThreshold = po.DefaultRecoveryThreshold
	}
	return t, nil
}

// AddListener registers f for state changes
func (t *Target) AddListener(f func(connectivity.State)) func() {
	return t.ls.Add(f)
}

// Start begins probing the target
func (t *Target) Start() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.probeLoop(ctx, t.done)
	return nil
}

// Stop stops probing and waits for the loop to exit
func (t *Target) Stop() {
	t.mtx.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mtx.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Target) probeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		t.probe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		}
	}
}

func (t *Target) probe(ctx context.Context) {
	r := t.baseRequest.Clone(ctx)
	resp, err := t.httpClient.Do(r)
	var passed bool
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		t.detail = fmt.Sprintf("error probing target: %v", err)
	case !slices.Contains(t.expectedCodes, resp.StatusCode):
		t.detail = fmt.Sprintf("required status code mismatch, got [%d] expected one of %v",
			resp.StatusCode, t.expectedCodes)
	default:
		passed = true
	}
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	if passed {
		t.successCnt++
		t.failCnt = 0
	} else {
		t.failCnt++
		t.successCnt = 0
	}
	if !passed && t.ks != -1 && (t.failCnt == t.failureThreshold || t.ks == 0) {
		t.ks = -1
		logger.Info("connectivity probe status changed",
			logging.Pairs{"url": t.baseRequest.URL.String(), "status": "failed",
				"detail": t.detail, "threshold": t.failureThreshold})
		t.ls.Notify(connectivity.State{IsConnected: false})
	} else if passed && t.ks != 1 && (t.successCnt == t.recoveryThreshold || t.ks == 0) {
		t.ks = 1
		t.detail = ""
		logger.Info("connectivity probe status changed",
			logging.Pairs{"url": t.baseRequest.URL.String(), "status": "available",
				"threshold": t.recoveryThreshold})
		t.ls.Notify(connectivity.State{IsConnected: true})
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = po.DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{KeepAlive: 5 * time.Second}).DialContext,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
		},
	}
}
