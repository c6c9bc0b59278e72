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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/events"
)

func recordKinds(bus *events.Bus) *[]string {
	var out []string
	for _, k := range []events.Kind{events.KindConnected, events.KindDisconnected,
		events.KindConnectivityChanged} {
		bus.On(k, func(e events.Event) {
			if cc, ok := e.(events.ConnectivityChanged); ok {
				if cc.IsConnected {
					out = append(out, "changed:true")
				} else {
					out = append(out, "changed:false")
				}
				return
			}
			out = append(out, string(e.Kind()))
		})
	}
	return &out
}

func TestMonitorTransitions(t *testing.T) {
	sw := NewSwitch(true)
	bus := events.NewBus()
	got := recordKinds(bus)
	m := NewMonitor(sw, bus, true)
	var hooks int
	m.OnReconnect(func(context.Context) {
		hooks++
		*got = append(*got, "hook")
	})
	require.NoError(t, m.Start())
	defer m.Stop()
	require.True(t, m.IsOnline())
	require.Empty(t, *got, "no transition on start in the assumed state")

	sw.Set(false)
	require.True(t, m.IsOffline())
	sw.Set(false)
	sw.Set(true)
	require.True(t, m.IsOnline())

	require.Equal(t, []string{
		"disconnected", "changed:false",
		"connected", "changed:true", "hook",
	}, *got)
	require.Equal(t, 1, hooks)
}

func TestMonitorStartsOffline(t *testing.T) {
	sw := NewSwitch(true)
	bus := events.NewBus()
	got := recordKinds(bus)
	m := NewMonitor(sw, bus, false)
	require.True(t, m.IsOffline())
	require.NoError(t, m.Start())
	require.True(t, m.IsOnline())
	require.Equal(t, []string{"connected", "changed:true"}, *got)
}

func TestHooksSkippedWhenOfflineAgain(t *testing.T) {
	sw := NewSwitch(false)
	bus := events.NewBus()
	m := NewMonitor(sw, bus, false)
	var second bool
	m.OnReconnect(func(context.Context) { sw.Set(false) })
	m.OnReconnect(func(context.Context) { second = true })
	require.NoError(t, m.Start())
	sw.Set(true)
	require.False(t, second)
	require.True(t, m.IsOffline())
}

func TestStopCancelsHookContext(t *testing.T) {
	sw := NewSwitch(false)
	m := NewMonitor(sw, events.NewBus(), false)
	var hookCtx context.Context
	m.OnReconnect(func(ctx context.Context) { hookCtx = ctx })
	require.NoError(t, m.Start())
	sw.Set(true)
	require.NotNil(t, hookCtx)
	require.NoError(t, hookCtx.Err())
	m.Stop()
	require.Error(t, hookCtx.Err())
	sw.Set(false)
	require.True(t, m.IsOnline(), "stopped monitor ignores the provider")
}

func TestSwitchListeners(t *testing.T) {
	sw := NewSwitch(false)
	var a, b []bool
	removeA := sw.AddListener(func(s State) { a = append(a, s.IsConnected) })
	sw.AddListener(func(s State) { b = append(b, s.IsConnected) })
	sw.Set(true)
	removeA()
	sw.Set(false)
	require.Equal(t, []bool{true}, a)
	require.Equal(t, []bool{true, false}, b)
	require.False(t, sw.IsConnected())
}
