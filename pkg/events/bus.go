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
	"fmt"
	"slices"
	"sync"

	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

// Handler receives emitted events
type Handler func(Event)

// HandlerID identifies a registration for removal with Off
type HandlerID uint64

type registration struct {
	id HandlerID
	h  Handler
}

// Bus is a synchronous publish/subscribe hub. Handlers for a kind run on the
// emitting goroutine in registration order.
type Bus struct {
	mtx      sync.RWMutex
	handlers map[Kind][]registration
	nextID   HandlerID
}

// NewBus returns an empty Bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]registration)}
}

// On registers h for events of kind k
func (b *Bus) On(k Kind, h Handler) HandlerID {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.nextID++
	b.handlers[k] = append(b.handlers[k], registration{id: b.nextID, h: h})
	return b.nextID
}

// Off removes a registration and reports whether it was present
func (b *Bus) Off(k Kind, id HandlerID) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	regs := b.handlers[k]
	i := slices.IndexFunc(regs, func(r registration) bool { return r.id == id })
	if i < 0 {
		return false
	}
	// copy on write so an in-progress Emit keeps its view
	regs = slices.Delete(slices.Clone(regs), i, i+1)
	if len(regs) == 0 {
		delete(b.handlers, k)
	} else {
		b.handlers[k] = regs
	}
	return true
}

// Emit calls every handler registered for e's kind, in registration order.
// A panicking handler is logged and the remaining handlers still run.
func (b *Bus) Emit(e Event) {
	if e == nil {
		return
	}
	k := e.Kind()
	b.mtx.RLock()
	regs := b.handlers[k]
	b.mtx.RUnlock()
	metrics.EventsEmitted.WithLabelValues(string(k)).Inc()
	for _, r := range regs {
		b.call(k, r.h, e)
	}
}

func (b *Bus) call(k Kind, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EventHandlerPanics.WithLabelValues(string(k)).Inc()
			logger.Error("event handler panic", logging.Pairs{
				"event":  string(k),
				"detail": fmt.Sprint(r),
			})
		}
	}()
	h(e)
}

// Clear removes every registration
func (b *Bus) Clear() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	clear(b.handlers)
}

// Count returns the number of handlers registered for k
func (b *Bus) Count(k Kind) int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return len(b.handlers[k])
}

// Subscribe registers a handler typed to a single event type
func Subscribe[E Event](b *Bus, h func(E)) HandlerID {
	var zero E
	return b.On(zero.Kind(), func(e Event) {
		if te, ok := e.(E); ok {
			h(te)
		}
	})
}
