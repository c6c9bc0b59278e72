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

package setup

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/model"
)

const (
	// LikeInterval is the period of simulated likes
	LikeInterval = 5 * time.Second
	// CommentInterval is the period of simulated comments
	CommentInterval = 8 * time.Second
	// SimulatedVideoID is the video every simulated event refers to
	SimulatedVideoID = "demo_video_1"
)

var simulatedComments = []string{
	"Amazing! 🔥",
	"Love this! ❤️",
	"So cool! 😍",
	"Can't stop watching! 👀",
	"Incredible! 🤩",
}

// Simulate emits a synthetic VideoLike every LikeInterval and NewComment
// every CommentInterval on bus until ctx is done. A nil now uses time.Now.
func Simulate(ctx context.Context, bus *events.Bus, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	likes := time.NewTicker(LikeInterval)
	defer likes.Stop()
	comments := time.NewTicker(CommentInterval)
	defer comments.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-likes.C:
			bus.Emit(simulatedLike(now()))
		case <-comments.C:
			bus.Emit(simulatedComment(now()))
		}
	}
}

func simulatedLike(t time.Time) events.VideoLike {
	return events.VideoLike{
		VideoID:   SimulatedVideoID,
		UserID:    fmt.Sprintf("user_%d", rand.IntN(1000)),
		IsLiked:   true,
		Timestamp: t.UnixMilli(),
	}
}

func simulatedComment(t time.Time) events.NewComment {
	return events.NewComment{Comment: model.Comment{
		ID:        uuid.NewString(),
		VideoID:   SimulatedVideoID,
		UserID:    fmt.Sprintf("user_%d", rand.IntN(1000)),
		Username:  fmt.Sprintf("User%d", rand.IntN(1000)),
		Text:      simulatedComments[rand.IntN(len(simulatedComments))],
		Timestamp: t.UnixMilli(),
	}}
}
