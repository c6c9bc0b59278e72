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

// Package connectivity tracks whether the remote store is reachable and
// announces transitions on the event bus
package connectivity

import (
	"sync"
)

// State is a connectivity observation
type State struct {
	IsConnected bool
}

// Provider delivers connectivity observations. Listeners may be called on
// any goroutine, and may be called with an unchanged state.
type Provider interface {
	AddListener(func(State)) (remove func())
	Start() error
	Stop()
}

// Listeners is a registry of Provider callbacks, notified in registration order
type Listeners struct {
	mtx  sync.Mutex
	next int
	fns  map[int]func(State)
}

// Add registers f and returns a function that removes it
func (l *Listeners) Add(f func(State)) func() {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(State))
	}
	id := l.next
	l.next++
	l.fns[id] = f
	return func() {
		l.mtx.Lock()
		delete(l.fns, id)
		l.mtx.Unlock()
	}
}

// Notify calls every registered listener on the calling goroutine
func (l *Listeners) Notify(s State) {
	l.mtx.Lock()
	fns := make([]func(State), 0, len(l.fns))
	for i := 0; i < l.next; i++ {
		if f, ok := l.fns[i]; ok {
			fns = append(fns, f)
		}
	}
	l.mtx.Unlock()
	for _, f := range fns {
		f(s)
	}
}

// Switch is a Provider whose state is set programmatically, by a platform
// bridge or a test
type Switch struct {
	ls        Listeners
	mtx       sync.Mutex
	connected bool
}

var _ Provider = &Switch{}

// NewSwitch returns a Switch in the provided state
func NewSwitch(connected bool) *Switch {
	return &Switch{connected: connected}
}

// Set records the state and notifies listeners on the calling goroutine
func (s *Switch) Set(connected bool) {
	s.mtx.Lock()
	s.connected = connected
	s.mtx.Unlock()
	s.ls.Notify(State{IsConnected: connected})
}

// IsConnected returns the last state set
func (s *Switch) IsConnected() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.connected
}

// AddListener registers f for future Set calls
func (s *Switch) AddListener(f func(State)) func() {
	return s.ls.Add(f)
}

// Start delivers the current state to the registered listeners
func (s *Switch) Start() error {
	s.ls.Notify(State{IsConnected: s.IsConnected()})
	return nil
}

// Stop is a no-op for the Switch provider
func (s *Switch) Stop() {}
