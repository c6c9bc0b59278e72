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

package memory

import "sync"

// mailbox runs queued deliveries one at a time on its own goroutine, in
// push order, without blocking the pusher
type mailbox struct {
	mtx     sync.Mutex
	items   []func()
	wake    chan struct{}
	stopped bool
}

func newMailbox() *mailbox {
	mb := &mailbox{wake: make(chan struct{}, 1)}
	go mb.run()
	return mb
}

func (mb *mailbox) push(f func()) {
	mb.mtx.Lock()
	if mb.stopped {
		mb.mtx.Unlock()
		return
	}
	mb.items = append(mb.items, f)
	select {
	case mb.wake <- struct{}{}:
	default:
	}
	mb.mtx.Unlock()
}

// stop drops pending deliveries; one already running completes
func (mb *mailbox) stop() {
	mb.mtx.Lock()
	if mb.stopped {
		mb.mtx.Unlock()
		return
	}
	mb.stopped = true
	mb.items = nil
	close(mb.wake)
	mb.mtx.Unlock()
}

func (mb *mailbox) run() {
	for range mb.wake {
		for {
			mb.mtx.Lock()
			if mb.stopped || len(mb.items) == 0 {
				mb.mtx.Unlock()
				break
			}
			f := mb.items[0]
			mb.items[0] = nil
			mb.items = mb.items[1:]
			mb.mtx.Unlock()
			f()
		}
	}
}
