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

package connectivity

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

// ReconnectHook runs after an offline to online transition has been announced
type ReconnectHook func(ctx context.Context)

// Monitor holds the current connectivity state and turns provider
// observations into Connected, Disconnected and ConnectivityChanged events.
// Only actual transitions are announced.
type Monitor struct {
	provider Provider
	bus      *events.Bus
	online   atomic.Bool

	transitionMtx sync.Mutex

	hookMtx sync.RWMutex
	hooks   []ReconnectHook

	ctx    context.Context
	cancel context.CancelFunc
	remove func()
}

// NewMonitor returns a Monitor over p that starts in the assumed state
func NewMonitor(p Provider, bus *events.Bus, assumeOnline bool) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{provider: p, bus: bus, ctx: ctx, cancel: cancel}
	m.online.Store(assumeOnline)
	observeState(assumeOnline)
	return m
}

func observeState(online bool) {
	if online {
		metrics.ConnectivityOnline.Set(1)
	} else {
		metrics.ConnectivityOnline.Set(0)
	}
}

// IsOnline returns true when the remote store is believed reachable
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// IsOffline returns true when the remote store is believed unreachable
func (m *Monitor) IsOffline() bool {
	return !m.online.Load()
}

// OnReconnect registers h to run on every offline to online transition
func (m *Monitor) OnReconnect(h ReconnectHook) {
	m.hookMtx.Lock()
	m.hooks = append(m.hooks, h)
	m.hookMtx.Unlock()
}

// Start subscribes to the provider and starts it
func (m *Monitor) Start() error {
	m.remove = m.provider.AddListener(m.observe)
	return m.provider.Start()
}

// Stop detaches from the provider and cancels running reconnect hooks
func (m *Monitor) Stop() {
	if m.remove != nil {
		m.remove()
	}
	m.provider.Stop()
	m.cancel()
}

func (m *Monitor) observe(s State) {
	m.transitionMtx.Lock()
	was := m.online.Swap(s.IsConnected)
	if was == s.IsConnected {
		m.transitionMtx.Unlock()
		return
	}
	observeState(s.IsConnected)
	if s.IsConnected {
		metrics.ConnectivityTransitions.WithLabelValues("online").Inc()
		logger.Info("connectivity restored", nil)
		m.bus.Emit(events.Connected{})
	} else {
		metrics.ConnectivityTransitions.WithLabelValues("offline").Inc()
		logger.Info("connectivity lost", nil)
		m.bus.Emit(events.Disconnected{})
	}
	m.bus.Emit(events.ConnectivityChanged{IsConnected: s.IsConnected})
	m.transitionMtx.Unlock()

	if !s.IsConnected {
		return
	}
	m.hookMtx.RLock()
	hooks := append([]ReconnectHook(nil), m.hooks...)
	m.hookMtx.RUnlock()
	for _, h := range hooks {
		if m.IsOffline() {
			logger.Debug("connectivity lost during reconnect hooks", nil)
			return
		}
		h(m.ctx)
	}
}
