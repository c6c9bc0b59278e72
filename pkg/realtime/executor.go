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
	"context"
	"errors"
	"fmt"

	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/model"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
	"github.com/trickstercache/reelsync/pkg/observability/tracing"
	"github.com/trickstercache/reelsync/pkg/offline/actions"
	"github.com/trickstercache/reelsync/pkg/offline/queue"

	"go.opentelemetry.io/otel/attribute"
)

// Collection names in the document store
const (
	VideosCollection   = "videos"
	UsersCollection    = "users"
	CommentsCollection = "comments"
	SharesCollection   = "shares"
)

var _ queue.Executor = &Executor{}

// Executor performs remote writes for actions. Every write uses set
// semantics or a create keyed by the action id, so replaying an action that
// already committed changes nothing.
type Executor struct {
	store  docstore.Store
	bus    *events.Bus
	tracer *tracing.Tracer
}

// NewExecutor returns an Executor writing to store and announcing replayed
// actions on bus. bus and tr may be nil.
func NewExecutor(store docstore.Store, bus *events.Bus, tr *tracing.Tracer) *Executor {
	return &Executor{store: store, bus: bus, tracer: tr}
}

// Announce emits the local event of a committed replayed action, the same
// event the direct write emits. Follows and shares have none.
func (e *Executor) Announce(a actions.Action) {
	if e.bus == nil {
		return
	}
	ts := a.EnqueuedAt.UnixMilli()
	switch p := a.Payload.(type) {
	case actions.LikePayload:
		e.bus.Emit(events.VideoLike{VideoID: p.VideoID, UserID: p.UserID,
			IsLiked: p.Liked, Timestamp: ts})
	case actions.ViewPayload:
		e.bus.Emit(events.VideoView{VideoID: p.VideoID, UserID: p.UserID, Timestamp: ts})
	case actions.CommentPayload:
		e.bus.Emit(events.NewComment{Comment: commentOf(a.ID, p, ts)})
	}
}

func commentOf(id string, p actions.CommentPayload, ts int64) model.Comment {
	return model.Comment{
		ID:        id,
		VideoID:   p.VideoID,
		UserID:    p.UserID,
		Username:  p.Username,
		Text:      p.Text,
		Timestamp: ts,
	}
}

// Execute performs the remote write for a
func (e *Executor) Execute(ctx context.Context, a actions.Action) error {
	ts := a.EnqueuedAt.UnixMilli()
	switch p := a.Payload.(type) {
	case actions.LikePayload:
		return e.like(ctx, p)
	case actions.ViewPayload:
		return e.view(ctx, p)
	case actions.CommentPayload:
		return e.comment(ctx, a.ID, p, ts)
	case actions.FollowPayload:
		return e.follow(ctx, p)
	case actions.SharePayload:
		return e.share(ctx, a.ID, p, ts)
	}
	return fmt.Errorf("%w: %q", actions.ErrUnknownKind, a.Kind())
}

// run wraps a remote write with a span and the write counter
func (e *Executor) run(ctx context.Context, op string, f func(context.Context) error,
	attrs ...attribute.KeyValue) error {
	ctx, span := tracing.NewChildSpan(ctx, e.tracer, "realtime."+op, attrs...)
	defer span.End()
	err := f(ctx)
	status := "success"
	if err != nil {
		status = "error"
		tracing.SetSpanError(span, err)
	}
	metrics.RealtimeWrites.WithLabelValues(op, status).Inc()
	return err
}

func (e *Executor) like(ctx context.Context, p actions.LikePayload) error {
	op := docstore.ArrayUnion("likedBy", p.UserID)
	if !p.Liked {
		op = docstore.ArrayRemove("likedBy", p.UserID)
	}
	return e.run(ctx, "like", func(ctx context.Context) error {
		return e.store.Update(ctx, VideosCollection, p.VideoID,
			op, docstore.SizeOf("likes", "likedBy"))
	}, attribute.String("video.id", p.VideoID))
}

func (e *Executor) view(ctx context.Context, p actions.ViewPayload) error {
	return e.run(ctx, "view", func(ctx context.Context) error {
		return e.store.Update(ctx, VideosCollection, p.VideoID,
			docstore.ArrayUnion("viewedBy", p.UserID), docstore.SizeOf("views", "viewedBy"))
	}, attribute.String("video.id", p.VideoID))
}

// createOnce creates a document keyed by an action id; an existing document
// means an earlier attempt already created it
func (e *Executor) createOnce(ctx context.Context, collection, id string,
	fields docstore.Fields) error {
	err := e.store.Create(ctx, collection, id, fields)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (e *Executor) comment(ctx context.Context, id string, p actions.CommentPayload,
	ts int64) error {
	return e.run(ctx, "comment", func(ctx context.Context) error {
		err := e.createOnce(ctx, CommentsCollection, id, docstore.Fields{
			"id":        id,
			"videoId":   p.VideoID,
			"userId":    p.UserID,
			"username":  p.Username,
			"text":      p.Text,
			"timestamp": ts,
		})
		if err != nil {
			return err
		}
		return e.store.Update(ctx, VideosCollection, p.VideoID,
			docstore.ArrayUnion("commentIds", id), docstore.SizeOf("comments", "commentIds"))
	}, attribute.String("video.id", p.VideoID), attribute.String("comment.id", id))
}

func (e *Executor) follow(ctx context.Context, p actions.FollowPayload) error {
	following := docstore.ArrayUnion("followingIds", p.FolloweeID)
	followers := docstore.ArrayUnion("followerIds", p.FollowerID)
	if !p.Follow {
		following = docstore.ArrayRemove("followingIds", p.FolloweeID)
		followers = docstore.ArrayRemove("followerIds", p.FollowerID)
	}
	return e.run(ctx, "follow", func(ctx context.Context) error {
		err := e.store.Update(ctx, UsersCollection, p.FollowerID,
			following, docstore.SizeOf("following", "followingIds"))
		if err != nil {
			return err
		}
		return e.store.Update(ctx, UsersCollection, p.FolloweeID,
			followers, docstore.SizeOf("followers", "followerIds"))
	}, attribute.String("user.id", p.FollowerID))
}

func (e *Executor) share(ctx context.Context, id string, p actions.SharePayload,
	ts int64) error {
	return e.run(ctx, "share", func(ctx context.Context) error {
		err := e.createOnce(ctx, SharesCollection, id, docstore.Fields{
			"videoId":   p.VideoID,
			"userId":    p.UserID,
			"platform":  p.Platform,
			"timestamp": ts,
		})
		if err != nil {
			return err
		}
		return e.store.Update(ctx, VideosCollection, p.VideoID,
			docstore.ArrayUnion("shareIds", id), docstore.SizeOf("shares", "shareIds"))
	}, attribute.String("video.id", p.VideoID))
}
