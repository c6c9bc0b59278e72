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

package realtime

import (
	"slices"
	"sync"

	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/model"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

// topic is one shared remote listener and its local subscribers
type topic struct {
	key string
	typ string

	mtx    sync.Mutex
	subs   []*subscriber
	nextID uint64
	// seq numbers delivered values; zero means nothing was delivered yet
	seq    uint64
	last   any
	stop   docstore.Unsubscribe
	closed bool
}

// subscriber receives a topic's values in sequence order. No topic lock is
// held while f runs, so f may subscribe or unsubscribe freely.
type subscriber struct {
	id uint64
	f  func(any)

	mtx  sync.Mutex
	seen uint64
}

// offer calls f with v unless a newer value already reached the subscriber
func (sub *subscriber) offer(seq uint64, v any) {
	sub.mtx.Lock()
	defer sub.mtx.Unlock()
	if seq <= sub.seen {
		return
	}
	sub.seen = seq
	sub.f(v)
}

func (t *topic) deliver(v any) {
	t.mtx.Lock()
	if t.closed {
		t.mtx.Unlock()
		return
	}
	t.seq++
	seq := t.seq
	t.last = v
	subs := slices.Clone(t.subs)
	t.mtx.Unlock()
	for _, sub := range subs {
		sub.offer(seq, v)
	}
}

// close detaches the remote listener; pending deliveries are dropped
func (t *topic) close() {
	t.mtx.Lock()
	if t.closed {
		t.mtx.Unlock()
		return
	}
	t.closed = true
	t.subs = nil
	stop := t.stop
	t.mtx.Unlock()
	t.finish(stop)
}

func (t *topic) finish(stop docstore.Unsubscribe) {
	if stop != nil {
		stop()
	}
	metrics.RealtimeSubscriptions.WithLabelValues(t.typ).Dec()
	logger.Debug("realtime listener closed", logging.Pairs{"topic": t.key})
}

// subscribe adds f to the topic named key, opening the remote listener with
// open when f is the first subscriber. A later subscriber immediately
// receives the last delivered value.
func (s *Service) subscribe(key, typ string, f func(any),
	open func(t *topic) docstore.Unsubscribe) Unsubscribe {
	s.mtx.Lock()
	t, ok := s.topics[key]
	if !ok {
		t = &topic{key: key, typ: typ}
		s.topics[key] = t
	}
	s.mtx.Unlock()

	t.mtx.Lock()
	if t.closed {
		// torn down between lookup and registration
		t.mtx.Unlock()
		return s.subscribe(key, typ, f, open)
	}
	t.nextID++
	id := t.nextID
	sub := &subscriber{id: id, f: f}
	t.subs = append(t.subs, sub)
	first := !ok
	seq, last := t.seq, t.last
	t.mtx.Unlock()
	if seq > 0 {
		sub.offer(seq, last)
	}

	if first {
		metrics.RealtimeSubscriptions.WithLabelValues(typ).Inc()
		logger.Debug("realtime listener opened", logging.Pairs{"topic": key})
		stop := open(t)
		t.mtx.Lock()
		closed := t.closed
		if !closed {
			t.stop = stop
		}
		t.mtx.Unlock()
		if closed {
			stop()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(t, id) })
	}
}

func (s *Service) unsubscribe(t *topic, id uint64) {
	t.mtx.Lock()
	for i, sub := range t.subs {
		if sub.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			break
		}
	}
	if len(t.subs) > 0 || t.closed {
		t.mtx.Unlock()
		return
	}
	t.closed = true
	stop := t.stop
	t.mtx.Unlock()

	s.mtx.Lock()
	if s.topics[t.key] == t {
		delete(s.topics, t.key)
	}
	s.mtx.Unlock()
	t.finish(stop)
}

// SubscribeToVideoUpdates delivers the engagement counters of videoID on
// every change. Nothing is delivered while the video does not exist.
func (s *Service) SubscribeToVideoUpdates(videoID string, cb func(model.VideoUpdate)) Unsubscribe {
	return s.subscribe("video:"+videoID, "video", func(v any) { cb(v.(model.VideoUpdate)) },
		func(t *topic) docstore.Unsubscribe {
			return s.store.WatchDocument(VideosCollection, videoID,
				func(d docstore.Document, exists bool) {
					if !exists {
						return
					}
					var v model.Video
					if err := d.Decode(&v); err != nil {
						s.listenerError(t)(err)
						return
					}
					if s.snap != nil {
						s.snap.CacheVideo(v)
					}
					t.deliver(v.Update())
				}, s.listenerError(t))
		})
}

// SubscribeToUserUpdates delivers the social counters of userID on every change
func (s *Service) SubscribeToUserUpdates(userID string, cb func(model.UserUpdate)) Unsubscribe {
	return s.subscribe("user:"+userID, "user", func(v any) { cb(v.(model.UserUpdate)) },
		func(t *topic) docstore.Unsubscribe {
			return s.store.WatchDocument(UsersCollection, userID,
				func(d docstore.Document, exists bool) {
					if !exists {
						return
					}
					var u model.UserProfile
					if err := d.Decode(&u); err != nil {
						s.listenerError(t)(err)
						return
					}
					if s.snap != nil {
						s.snap.CacheUserProfile(u)
					}
					t.deliver(u.Update())
				}, s.listenerError(t))
		})
}

// SubscribeToComments delivers the newest comments of videoID, newest first
func (s *Service) SubscribeToComments(videoID string, cb func([]model.Comment)) Unsubscribe {
	q := docstore.Query{Collection: CommentsCollection}.
		Where("videoId", videoID).
		Order("timestamp", true).
		WithLimit(CommentsLimit)
	return s.subscribe("comments:"+videoID, "comments", func(v any) { cb(v.([]model.Comment)) },
		func(t *topic) docstore.Unsubscribe {
			return s.store.WatchQuery(q, func(docs []docstore.Document) {
				out := make([]model.Comment, 0, len(docs))
				for _, d := range docs {
					var c model.Comment
					if err := d.Decode(&c); err != nil {
						s.listenerError(t)(err)
						continue
					}
					out = append(out, c)
				}
				if s.snap != nil {
					s.snap.CacheComments(videoID, out)
				}
				t.deliver(out)
			}, s.listenerError(t))
		})
}

// SubscribeToTrending delivers the most liked videos, ties broken by views
func (s *Service) SubscribeToTrending(cb func([]model.Video)) Unsubscribe {
	q := docstore.Query{Collection: VideosCollection}.
		Order("likes", true).
		Order("views", true).
		WithLimit(TrendingLimit)
	return s.subscribe("trending", "trending", func(v any) { cb(v.([]model.Video)) },
		func(t *topic) docstore.Unsubscribe {
			return s.store.WatchQuery(q, func(docs []docstore.Document) {
				out := make([]model.Video, 0, len(docs))
				for _, d := range docs {
					var v model.Video
					if err := d.Decode(&v); err != nil {
						s.listenerError(t)(err)
						continue
					}
					out = append(out, v)
				}
				if s.snap != nil {
					s.snap.CacheVideos(out)
				}
				t.deliver(out)
			}, s.listenerError(t))
		})
}
