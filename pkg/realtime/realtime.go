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

// Package realtime keeps subscribers current with remote engagement data,
// performs direct remote writes, and announces them on the local event bus
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/model"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
	"github.com/trickstercache/reelsync/pkg/observability/tracing"
	"github.com/trickstercache/reelsync/pkg/offline/actions"
	"github.com/trickstercache/reelsync/pkg/offline/queue"
	"github.com/trickstercache/reelsync/pkg/offline/snapshot"
)

const (
	// CommentsLimit is the number of newest comments delivered per video
	CommentsLimit = 50
	// TrendingLimit is the number of videos in the trending list
	TrendingLimit = 20
)

// ErrNoQueue is returned by routed writes that need the offline queue when
// none is configured
var ErrNoQueue = errors.New("no offline queue configured")

// Unsubscribe removes a subscription. It is safe to call more than once.
type Unsubscribe func()

// Enqueuer buffers an action for later replay
type Enqueuer interface {
	EnqueueAction(ctx context.Context, a actions.Action) (actions.Action, error)
}

// Service is the real-time update layer
type Service struct {
	store  docstore.Store
	exec   *Executor
	bus    *events.Bus
	snap   *snapshot.Snapshot
	queue  Enqueuer
	conn   queue.Connectivity
	tracer *tracing.Tracer
	now    func() time.Time

	mtx    sync.Mutex
	topics map[string]*topic
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the Service's time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTracer sets the tracer of the Executor created when none is provided
func WithTracer(tr *tracing.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// New returns a Service. snap may be nil to disable write-through and
// fallback reads; q and conn may be nil when routed writes are not used.
func New(store docstore.Store, exec *Executor, bus *events.Bus, snap *snapshot.Snapshot,
	q Enqueuer, conn queue.Connectivity, o ...Option) *Service {
	s := &Service{
		store:  store,
		exec:   exec,
		bus:    bus,
		snap:   snap,
		queue:  q,
		conn:   conn,
		now:    time.Now,
		topics: make(map[string]*topic),
	}
	for _, f := range o {
		f(s)
	}
	if s.exec == nil {
		s.exec = NewExecutor(store, bus, s.tracer)
	}
	return s
}

// On registers h for events of kind k
func (s *Service) On(k events.Kind, h events.Handler) events.HandlerID {
	return s.bus.On(k, h)
}

// Off removes a handler registration
func (s *Service) Off(k events.Kind, id events.HandlerID) bool {
	return s.bus.Off(k, id)
}

// Emit publishes e on the local bus
func (s *Service) Emit(e events.Event) {
	s.bus.Emit(e)
}

// UpdateVideoLike writes a like or unlike and emits VideoLike. On failure
// the error is logged and returned and no event is emitted.
func (s *Service) UpdateVideoLike(ctx context.Context, videoID, userID string, isLiked bool) error {
	p := actions.LikePayload{VideoID: videoID, UserID: userID, Liked: isLiked}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.exec.like(ctx, p); err != nil {
		logger.Warn("video like update failed", logging.Pairs{
			"videoID": videoID, "userID": userID, "detail": err.Error()})
		return err
	}
	s.bus.Emit(events.VideoLike{VideoID: videoID, UserID: userID, IsLiked: isLiked,
		Timestamp: s.now().UnixMilli()})
	return nil
}

// UpdateVideoView records a view and emits VideoView
func (s *Service) UpdateVideoView(ctx context.Context, videoID, userID string) error {
	p := actions.ViewPayload{VideoID: videoID, UserID: userID}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.exec.view(ctx, p); err != nil {
		logger.Warn("video view update failed", logging.Pairs{
			"videoID": videoID, "userID": userID, "detail": err.Error()})
		return err
	}
	s.bus.Emit(events.VideoView{VideoID: videoID, UserID: userID,
		Timestamp: s.now().UnixMilli()})
	return nil
}

// AddComment writes a new comment and emits NewComment
func (s *Service) AddComment(ctx context.Context, videoID, userID, text,
	username string) (model.Comment, error) {
	p := actions.CommentPayload{VideoID: videoID, UserID: userID, Username: username, Text: text}
	if err := p.Validate(); err != nil {
		return model.Comment{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.Comment{}, err
	}
	return s.addComment(ctx, id.String(), s.now().UnixMilli(), p)
}

func (s *Service) addComment(ctx context.Context, id string, ts int64,
	p actions.CommentPayload) (model.Comment, error) {
	if err := s.exec.comment(ctx, id, p, ts); err != nil {
		logger.Warn("add comment failed", logging.Pairs{
			"videoID": p.VideoID, "userID": p.UserID, "detail": err.Error()})
		return model.Comment{}, err
	}
	c := commentOf(id, p, ts)
	s.bus.Emit(events.NewComment{Comment: c})
	return c, nil
}

// route builds one action for p and performs direct with it when online.
// Offline, or when direct fails, that same action is buffered on the queue,
// so a replay of a partly applied direct write reuses its document ids.
func (s *Service) route(ctx context.Context, p actions.Payload,
	direct func(actions.Action) error) error {
	a, err := actions.New(p, s.now())
	if err != nil {
		return err
	}
	if s.conn != nil && s.conn.IsOnline() {
		err := direct(a)
		if err == nil || s.queue == nil {
			return err
		}
		logger.Debug("direct write failed, queueing",
			logging.Pairs{"id": a.ID, "kind": string(p.Kind()), "detail": err.Error()})
	}
	if s.queue == nil {
		return ErrNoQueue
	}
	_, err = s.queue.EnqueueAction(ctx, a)
	return err
}

// Like likes or unlikes a video, directly when online or through the queue
func (s *Service) Like(ctx context.Context, videoID, userID string, liked bool) error {
	return s.route(ctx, actions.LikePayload{VideoID: videoID, UserID: userID, Liked: liked},
		func(actions.Action) error { return s.UpdateVideoLike(ctx, videoID, userID, liked) })
}

// View records a view, directly when online or through the queue
func (s *Service) View(ctx context.Context, videoID, userID string) error {
	return s.route(ctx, actions.ViewPayload{VideoID: videoID, UserID: userID},
		func(actions.Action) error { return s.UpdateVideoView(ctx, videoID, userID) })
}

// Comment adds a comment, directly when online or through the queue
func (s *Service) Comment(ctx context.Context, videoID, userID, text, username string) error {
	p := actions.CommentPayload{VideoID: videoID, UserID: userID, Username: username, Text: text}
	return s.route(ctx, p, func(a actions.Action) error {
		_, err := s.addComment(ctx, a.ID, a.EnqueuedAt.UnixMilli(), p)
		return err
	})
}

// Follow follows or unfollows a user, directly when online or through the queue
func (s *Service) Follow(ctx context.Context, followerID, followeeID string, follow bool) error {
	p := actions.FollowPayload{FollowerID: followerID, FolloweeID: followeeID, Follow: follow}
	return s.route(ctx, p, func(actions.Action) error { return s.exec.follow(ctx, p) })
}

// Share records a share, directly when online or through the queue
func (s *Service) Share(ctx context.Context, videoID, userID, platform string) error {
	p := actions.SharePayload{VideoID: videoID, UserID: userID, Platform: platform}
	return s.route(ctx, p, func(a actions.Action) error {
		return s.exec.share(ctx, a.ID, p, a.EnqueuedAt.UnixMilli())
	})
}

// CachedVideos returns the snapshot's videos, oldest first
func (s *Service) CachedVideos() []model.Video {
	if s.snap == nil {
		return []model.Video{}
	}
	return s.snap.Videos()
}

// CachedComments returns the snapshot's comments for videoID
func (s *Service) CachedComments(videoID string) []model.Comment {
	if s.snap == nil {
		return []model.Comment{}
	}
	return s.snap.Comments(videoID)
}

// CachedUserProfile returns the snapshot's profile for id
func (s *Service) CachedUserProfile(id string) (model.UserProfile, bool) {
	if s.snap == nil {
		return model.UserProfile{}, false
	}
	return s.snap.UserProfile(id)
}

// Cleanup closes every remote listener and removes every bus handler. The
// Service remains usable.
func (s *Service) Cleanup() {
	s.mtx.Lock()
	topics := s.topics
	s.topics = make(map[string]*topic)
	s.mtx.Unlock()
	for _, t := range topics {
		t.close()
	}
	s.bus.Clear()
	if len(topics) > 0 {
		logger.Info("realtime listeners closed", logging.Pairs{"topics": len(topics)})
	}
}

func (s *Service) listenerError(t *topic) docstore.ErrorHandler {
	return func(err error) {
		metrics.RealtimeListenerErrors.WithLabelValues(t.typ).Inc()
		pairs := logging.Pairs{"topic": t.key, "detail": err.Error()}
		if !logger.WarnOnce("realtime.listener."+t.key, "realtime listener error", pairs) {
			logger.Debug("realtime listener error", pairs)
		}
	}
}
