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

// Package analytics keeps a bounded log of engagement events and per-video
// aggregates derived from them
package analytics

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
)

const (
	// EventsKey is the durable key of the event log
	EventsKey = "analytics_events"
	// VideoKeyPrefix prefixes the durable key of each video's Stats
	VideoKeyPrefix = "analytics_video_"
	// MaxEvents is the number of events retained in the log
	MaxEvents = 1000
	// ViralityWindow is the age at which a video's virality reaches zero
	ViralityWindow = 7 * 24 * time.Hour
)

// EventType names a recorded event
type EventType string

const (
	TypeView    EventType = "video_view"
	TypeLike    EventType = "video_like"
	TypeComment EventType = "video_comment"
	TypeShare   EventType = "video_share"
)

// Event is an entry of the event log
type Event struct {
	Type          EventType `json:"type"`
	VideoID       string    `json:"videoId"`
	UserID        string    `json:"userId"`
	IsLiked       bool      `json:"isLiked,omitempty"`
	CommentLength int       `json:"commentLength,omitempty"`
	Platform      string    `json:"platform,omitempty"`
	Timestamp     int64     `json:"timestamp"`
}

// Stats are the engagement aggregates of a video
type Stats struct {
	VideoID  string `json:"videoId"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
	// Engagement is likes, comments and shares per view, as a percentage
	Engagement float64 `json:"engagement"`
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the Service's time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service records engagement events to a durable client
type Service struct {
	client cache.Client
	now    func() time.Time
	// mtx serializes the read-modify-write of the log and aggregates
	mtx sync.Mutex
}

// New returns a Service persisting to client
func New(client cache.Client, o ...Option) *Service {
	s := &Service{client: client, now: time.Now}
	for _, f := range o {
		f(s)
	}
	return s
}

// Attach records every VideoLike, VideoView and NewComment emitted on bus
// until the returned function is called
func (s *Service) Attach(bus *events.Bus) func() {
	like := events.Subscribe(bus, func(e events.VideoLike) {
		s.TrackLike(e.VideoID, e.UserID, e.IsLiked, e.Timestamp)
	})
	view := events.Subscribe(bus, func(e events.VideoView) {
		s.TrackView(e.VideoID, e.UserID, e.Timestamp)
	})
	comment := events.Subscribe(bus, func(e events.NewComment) {
		c := e.Comment
		s.TrackComment(c.VideoID, c.UserID, len([]rune(c.Text)), c.Timestamp)
	})
	return func() {
		bus.Off(events.KindVideoLike, like)
		bus.Off(events.KindVideoView, view)
		bus.Off(events.KindNewComment, comment)
	}
}

// TrackView records a view of videoID
func (s *Service) TrackView(videoID, userID string, ts int64) error {
	return s.record(Event{Type: TypeView, VideoID: videoID, UserID: userID, Timestamp: ts},
		func(st *Stats) { st.Views++ })
}

// TrackLike records a like, or an unlike when liked is false. Likes never
// drop below zero.
func (s *Service) TrackLike(videoID, userID string, liked bool, ts int64) error {
	return s.record(Event{Type: TypeLike, VideoID: videoID, UserID: userID,
		IsLiked: liked, Timestamp: ts},
		func(st *Stats) {
			if liked {
				st.Likes++
			} else if st.Likes > 0 {
				st.Likes--
			}
		})
}

// TrackComment records a comment of length runes
func (s *Service) TrackComment(videoID, userID string, length int, ts int64) error {
	return s.record(Event{Type: TypeComment, VideoID: videoID, UserID: userID,
		CommentLength: length, Timestamp: ts},
		func(st *Stats) { st.Comments++ })
}

// TrackShare records a share to platform
func (s *Service) TrackShare(videoID, userID, platform string, ts int64) error {
	return s.record(Event{Type: TypeShare, VideoID: videoID, UserID: userID,
		Platform: platform, Timestamp: ts},
		func(st *Stats) { st.Shares++ })
}

func (s *Service) record(e Event, apply func(*Stats)) error {
	if e.VideoID == "" {
		return nil
	}
	if e.Timestamp == 0 {
		e.Timestamp = s.now().UnixMilli()
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()

	log, err := s.events()
	if err != nil && !errors.Is(err, cache.ErrKNF) {
		logger.Warn("analytics event log unreadable, starting empty",
			logging.Pairs{"detail": err.Error()})
	}
	log = append(log, e)
	if n := len(log) - MaxEvents; n > 0 {
		log = log[n:]
	}
	if err := s.store(EventsKey, log); err != nil {
		return err
	}

	st, err := s.stats(e.VideoID)
	if err != nil && !errors.Is(err, cache.ErrKNF) {
		logger.Warn("analytics video stats unreadable, starting empty",
			logging.Pairs{"videoID": e.VideoID, "detail": err.Error()})
		st = Stats{VideoID: e.VideoID}
	}
	apply(&st)
	st.Engagement = EngagementRate(st.Likes, st.Comments, st.Shares, st.Views)
	if err := s.store(VideoKeyPrefix+e.VideoID, st); err != nil {
		return err
	}
	metrics.AnalyticsEvents.WithLabelValues(string(e.Type)).Inc()
	return nil
}

func (s *Service) store(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.client.Store(key, b); err != nil {
		logger.Warn("analytics write failed", logging.Pairs{"key": key, "detail": err.Error()})
		return err
	}
	return nil
}

func (s *Service) events() ([]Event, error) {
	b, _, err := s.client.Retrieve(EventsKey)
	if err != nil {
		return nil, err
	}
	var log []Event
	if err := json.Unmarshal(b, &log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *Service) stats(videoID string) (Stats, error) {
	st := Stats{VideoID: videoID}
	b, _, err := s.client.Retrieve(VideoKeyPrefix + videoID)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return Stats{VideoID: videoID}, err
	}
	return st, nil
}

// Events returns the event log, oldest first
func (s *Service) Events() ([]Event, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	log, err := s.events()
	if errors.Is(err, cache.ErrKNF) {
		return nil, nil
	}
	return log, err
}

// Video returns the aggregates of videoID. A video with no recorded events
// returns zero Stats.
func (s *Service) Video(videoID string) (Stats, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	st, err := s.stats(videoID)
	if errors.Is(err, cache.ErrKNF) {
		return st, nil
	}
	return st, err
}

// Virality returns the virality score of videoID for a video posted at
// postedAt
func (s *Service) Virality(videoID string, postedAt time.Time) (float64, error) {
	st, err := s.Video(videoID)
	if err != nil {
		return 0, err
	}
	return ViralityScore(st.Shares, st.Views, s.now().Sub(postedAt)), nil
}

// Export returns the aggregates of videoID as indented JSON
func (s *Service) Export(videoID string) ([]byte, error) {
	st, err := s.Video(videoID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(st, "", "  ")
}

// EngagementRate returns likes, comments and shares per view as a
// percentage. No views is a rate of 0.
func EngagementRate(likes, comments, shares, views int64) float64 {
	if views == 0 {
		return 0
	}
	return float64(likes+comments+shares) / float64(views) * 100
}

// ViralityScore scales the share rate by a linear decay that reaches zero
// once age is ViralityWindow
func ViralityScore(shares, views int64, age time.Duration) float64 {
	rate := float64(shares) / float64(max(views, 1))
	decay := math.Max(0, 1-float64(age)/float64(ViralityWindow))
	return rate * decay * 1000
}
