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

// Package snapshot keeps bounded collections of recently seen videos, user
// profiles and comment lists in durable storage, so screens have data to
// show while offline
package snapshot

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/model"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
	"github.com/trickstercache/reelsync/pkg/offline/snapshot/options"
)

// DataKey is the durable key holding the snapshot document
const DataKey = "offline_data"

// ErrMissingID is returned when an entity without an ID is cached
var ErrMissingID = errors.New("snapshot entity requires an id")

type document struct {
	Videos       []model.Video       `json:"videos"`
	UserProfiles []model.UserProfile `json:"userProfiles"`
	Comments     []model.CommentSet  `json:"comments"`
	LastSync     int64               `json:"lastSync"`
}

// Snapshot is the offline snapshot
type Snapshot struct {
	client cache.Client
	opts   *options.Options
	now    func() time.Time

	mtx sync.RWMutex
	doc document
}

// Option configures a Snapshot
type Option func(*Snapshot)

// WithClock replaces the Snapshot's time source
func WithClock(now func() time.Time) Option {
	return func(s *Snapshot) {
		s.now = now
	}
}

// New returns an empty Snapshot persisted through client
func New(client cache.Client, opts *options.Options, o ...Option) *Snapshot {
	if opts == nil {
		opts = options.New()
	}
	s := &Snapshot{client: client, opts: opts, now: time.Now}
	for _, f := range o {
		f(s)
	}
	return s
}

// Load replaces the in-memory snapshot with the persisted one. A missing or
// unreadable document leaves the snapshot empty.
func (s *Snapshot) Load() {
	b, _, err := s.client.Retrieve(DataKey)
	var doc document
	switch {
	case errors.Is(err, cache.ErrKNF):
	case err != nil:
		logger.Warn("offline snapshot load failed", logging.Pairs{"detail": err.Error()})
	default:
		if err := json.Unmarshal(b, &doc); err != nil {
			logger.Warn("offline snapshot corrupt, starting empty",
				logging.Pairs{"detail": err.Error()})
			doc = document{}
		}
	}
	s.mtx.Lock()
	s.doc = doc
	s.trim()
	s.observe()
	s.mtx.Unlock()
	logger.Debug("offline snapshot loaded", logging.Pairs{
		"videos": len(doc.Videos), "profiles": len(doc.UserProfiles), "commentSets": len(doc.Comments),
	})
}

// upsert moves item to the back of list, replacing any entry with the same
// id, and evicts from the front until the list fits in limit. The front is
// always the least recently inserted or updated entry.
func upsert[T any](list []T, item T, id func(T) string, limit int) []T {
	if i := slices.IndexFunc(list, func(e T) bool { return id(e) == id(item) }); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	list = append(list, item)
	return bound(list, limit)
}

func bound[T any](list []T, limit int) []T {
	if len(list) <= limit {
		return list
	}
	return slices.Clone(list[len(list)-limit:])
}

func videoID(v model.Video) string {
	return v.ID
}

func profileID(p model.UserProfile) string {
	return p.ID
}

func commentSetID(c model.CommentSet) string {
	return c.VideoID
}

// CacheVideo upserts v and persists the snapshot
func (s *Snapshot) CacheVideo(v model.Video) error {
	return s.CacheVideos([]model.Video{v})
}

// CacheVideos upserts each video in order and persists the snapshot once
func (s *Snapshot) CacheVideos(vs []model.Video) error {
	for _, v := range vs {
		if v.ID == "" {
			return ErrMissingID
		}
	}
	if len(vs) == 0 {
		return nil
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, v := range vs {
		v.LikedBy = slices.Clone(v.LikedBy)
		v.ViewedBy = slices.Clone(v.ViewedBy)
		s.doc.Videos = upsert(s.doc.Videos, v, videoID, s.opts.MaxVideos)
	}
	s.persist()
	return nil
}

// CacheUserProfile upserts p and persists the snapshot
func (s *Snapshot) CacheUserProfile(p model.UserProfile) error {
	if p.ID == "" {
		return ErrMissingID
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.doc.UserProfiles = upsert(s.doc.UserProfiles, p, profileID, s.opts.MaxProfiles)
	s.persist()
	return nil
}

// CacheComments replaces the comment list of videoID and persists the snapshot
func (s *Snapshot) CacheComments(videoID string, comments []model.Comment) error {
	if videoID == "" {
		return ErrMissingID
	}
	set := model.CommentSet{VideoID: videoID, Comments: slices.Clone(comments)}
	if set.Comments == nil {
		set.Comments = []model.Comment{}
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.doc.Comments = upsert(s.doc.Comments, set, commentSetID, s.opts.MaxCommentSets)
	s.persist()
	return nil
}

// Videos returns a copy of the cached videos, oldest first
func (s *Snapshot) Videos() []model.Video {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	out := make([]model.Video, len(s.doc.Videos))
	copy(out, s.doc.Videos)
	return out
}

// UserProfile returns the cached profile for id
func (s *Snapshot) UserProfile(id string) (model.UserProfile, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	for _, p := range s.doc.UserProfiles {
		if p.ID == id {
			return p, true
		}
	}
	return model.UserProfile{}, false
}

// Comments returns the cached comments of videoID, or an empty slice
func (s *Snapshot) Comments(videoID string) []model.Comment {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	for _, c := range s.doc.Comments {
		if c.VideoID == videoID {
			return slices.Clone(c.Comments)
		}
	}
	return []model.Comment{}
}

// LastSync returns the time the snapshot was last persisted
func (s *Snapshot) LastSync() time.Time {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.doc.LastSync == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.doc.LastSync)
}

// Clear empties the snapshot and persists the empty document
func (s *Snapshot) Clear() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.doc = document{}
	s.persist()
}

func (s *Snapshot) trim() {
	s.doc.Videos = bound(s.doc.Videos, s.opts.MaxVideos)
	s.doc.UserProfiles = bound(s.doc.UserProfiles, s.opts.MaxProfiles)
	s.doc.Comments = bound(s.doc.Comments, s.opts.MaxCommentSets)
}

// persist must be called with mtx held
func (s *Snapshot) persist() {
	s.doc.LastSync = s.now().UnixMilli()
	s.observe()
	b, err := json.Marshal(s.doc)
	if err == nil {
		err = s.client.Store(DataKey, b)
	}
	if err != nil {
		logger.Warn("offline snapshot persist failed", logging.Pairs{"detail": err.Error()})
	}
}

func (s *Snapshot) observe() {
	metrics.SnapshotEntries.WithLabelValues("videos").Set(float64(len(s.doc.Videos)))
	metrics.SnapshotEntries.WithLabelValues("profiles").Set(float64(len(s.doc.UserProfiles)))
	metrics.SnapshotEntries.WithLabelValues("comments").Set(float64(len(s.doc.Comments)))
}
