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

// Package events defines the typed local events and the synchronous bus that
// fans them out to registered handlers
package events

import (
	"github.com/trickstercache/reelsync/pkg/model"
)

// Kind names an event type
type Kind string

const (
	KindVideoLike           Kind = "videoLike"
	KindVideoView           Kind = "videoView"
	KindNewComment          Kind = "newComment"
	KindConnected           Kind = "connected"
	KindDisconnected        Kind = "disconnected"
	KindConnectivityChanged Kind = "connectionChange"
	KindSyncComplete        Kind = "syncComplete"
)

// Event is implemented by every event type
type Event interface {
	Kind() Kind
}

// VideoLike is emitted after a like or unlike is written
type VideoLike struct {
	VideoID   string `json:"videoId"`
	UserID    string `json:"userId"`
	IsLiked   bool   `json:"isLiked"`
	Timestamp int64  `json:"timestamp"`
}

// VideoView is emitted after a view is written
type VideoView struct {
	VideoID   string `json:"videoId"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// NewComment is emitted after a comment is written
type NewComment struct {
	Comment model.Comment `json:"comment"`
}

// Connected is emitted on an offline to online transition
type Connected struct{}

// Disconnected is emitted on an online to offline transition
type Disconnected struct{}

// ConnectivityChanged is emitted on every connectivity transition
type ConnectivityChanged struct {
	IsConnected bool `json:"isConnected"`
}

// SyncComplete is emitted at the end of every queue drain pass that
// attempted at least one action. Count is Committed + Dropped.
type SyncComplete struct {
	Count     int `json:"count"`
	Committed int `json:"committed"`
	Dropped   int `json:"dropped"`
	Remaining int `json:"remaining"`
}

func (VideoLike) Kind() Kind           { return KindVideoLike }
func (VideoView) Kind() Kind           { return KindVideoView }
func (NewComment) Kind() Kind          { return KindNewComment }
func (Connected) Kind() Kind           { return KindConnected }
func (Disconnected) Kind() Kind        { return KindDisconnected }
func (ConnectivityChanged) Kind() Kind { return KindConnectivityChanged }
func (SyncComplete) Kind() Kind        { return KindSyncComplete }
