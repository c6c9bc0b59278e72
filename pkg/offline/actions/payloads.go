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

package actions

import (
	"encoding/json"
	"fmt"
)

// LikePayload likes or unlikes a video
type LikePayload struct {
	VideoID string
	UserID  string
	Liked   bool
}

func (LikePayload) Kind() Kind { return KindLike }

func (p LikePayload) Validate() error {
	switch {
	case p.VideoID == "":
		return missing(KindLike, "videoId")
	case p.UserID == "":
		return missing(KindLike, "userId")
	}
	return nil
}

type likeWire struct {
	VideoID string `json:"videoId"`
	UserID  string `json:"userId"`
	Action  string `json:"action"`
}

func (p LikePayload) MarshalJSON() ([]byte, error) {
	w := likeWire{VideoID: p.VideoID, UserID: p.UserID, Action: "unlike"}
	if p.Liked {
		w.Action = "like"
	}
	return json.Marshal(w)
}

func (p *LikePayload) UnmarshalJSON(b []byte) error {
	var w likeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Action {
	case "like", "":
		p.Liked = true
	case "unlike":
		p.Liked = false
	default:
		return fmt.Errorf("%w: like action %q", ErrInvalidPayload, w.Action)
	}
	p.VideoID, p.UserID = w.VideoID, w.UserID
	return nil
}

// CommentPayload adds a comment to a video
type CommentPayload struct {
	VideoID  string `json:"videoId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

func (CommentPayload) Kind() Kind { return KindComment }

func (p CommentPayload) Validate() error {
	switch {
	case p.VideoID == "":
		return missing(KindComment, "videoId")
	case p.UserID == "":
		return missing(KindComment, "userId")
	case p.Text == "":
		return missing(KindComment, "text")
	}
	return nil
}

// FollowPayload follows or unfollows a user
type FollowPayload struct {
	FollowerID string
	FolloweeID string
	Follow     bool
}

func (FollowPayload) Kind() Kind { return KindFollow }

func (p FollowPayload) Validate() error {
	switch {
	case p.FollowerID == "":
		return missing(KindFollow, "followerId")
	case p.FolloweeID == "":
		return missing(KindFollow, "followeeId")
	case p.FollowerID == p.FolloweeID:
		return fmt.Errorf("%w: a user cannot follow themself", ErrInvalidPayload)
	}
	return nil
}

type followWire struct {
	FollowerID string `json:"followerId"`
	FolloweeID string `json:"followeeId"`
	Action     string `json:"action"`
}

func (p FollowPayload) MarshalJSON() ([]byte, error) {
	w := followWire{FollowerID: p.FollowerID, FolloweeID: p.FolloweeID, Action: "unfollow"}
	if p.Follow {
		w.Action = "follow"
	}
	return json.Marshal(w)
}

func (p *FollowPayload) UnmarshalJSON(b []byte) error {
	var w followWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Action {
	case "follow", "":
		p.Follow = true
	case "unfollow":
		p.Follow = false
	default:
		return fmt.Errorf("%w: follow action %q", ErrInvalidPayload, w.Action)
	}
	p.FollowerID, p.FolloweeID = w.FollowerID, w.FolloweeID
	return nil
}

// ViewPayload records a video view
type ViewPayload struct {
	VideoID string `json:"videoId"`
	UserID  string `json:"userId"`
}

func (ViewPayload) Kind() Kind { return KindView }

func (p ViewPayload) Validate() error {
	switch {
	case p.VideoID == "":
		return missing(KindView, "videoId")
	case p.UserID == "":
		return missing(KindView, "userId")
	}
	return nil
}

// SharePayload records a video share
type SharePayload struct {
	VideoID  string `json:"videoId"`
	UserID   string `json:"userId"`
	Platform string `json:"platform,omitempty"`
}

func (SharePayload) Kind() Kind { return KindShare }

func (p SharePayload) Validate() error {
	switch {
	case p.VideoID == "":
		return missing(KindShare, "videoId")
	case p.UserID == "":
		return missing(KindShare, "userId")
	}
	return nil
}
