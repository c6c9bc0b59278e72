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

// Package model defines the entities exchanged between the document store,
// the offline snapshot and subscribers. Timestamps are Unix milliseconds.
package model

// Video is a short video and its engagement counters
type Video struct {
	ID         string   `json:"id"`
	AuthorID   string   `json:"authorId,omitempty"`
	Caption    string   `json:"caption,omitempty"`
	URL        string   `json:"url,omitempty"`
	Likes      int64    `json:"likes"`
	Comments   int64    `json:"comments"`
	Views      int64    `json:"views"`
	Shares     int64    `json:"shares"`
	LikedBy    []string `json:"likedBy,omitempty"`
	ViewedBy   []string `json:"viewedBy,omitempty"`
	CommentIDs []string `json:"commentIds,omitempty"`
	ShareIDs   []string `json:"shareIds,omitempty"`
	CreatedAt  int64    `json:"createdAt,omitempty"`
}

// UserProfile is a user and their social counters
type UserProfile struct {
	ID           string   `json:"id"`
	Username     string   `json:"username,omitempty"`
	DisplayName  string   `json:"displayName,omitempty"`
	AvatarURL    string   `json:"avatarUrl,omitempty"`
	Followers    int64    `json:"followers"`
	Following    int64    `json:"following"`
	Videos       int64    `json:"videos"`
	FollowerIDs  []string `json:"followerIds,omitempty"`
	FollowingIDs []string `json:"followingIds,omitempty"`
}

// Comment is a single comment on a video
type Comment struct {
	ID        string `json:"id"`
	VideoID   string `json:"videoId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// CommentSet is the cached comment list of one video
type CommentSet struct {
	VideoID  string    `json:"videoId"`
	Comments []Comment `json:"comments"`
}

// VideoUpdate is the normalized video shape delivered to video subscribers
type VideoUpdate struct {
	ID       string   `json:"id"`
	Likes    int64    `json:"likes"`
	Comments int64    `json:"comments"`
	Views    int64    `json:"views"`
	LikedBy  []string `json:"likedBy"`
}

// UserUpdate is the normalized user shape delivered to user subscribers
type UserUpdate struct {
	ID        string `json:"id"`
	Followers int64  `json:"followers"`
	Following int64  `json:"following"`
	Videos    int64  `json:"videos"`
}

// Update returns the normalized subscriber view of the Video
func (v Video) Update() VideoUpdate {
	likedBy := v.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return VideoUpdate{
		ID:       v.ID,
		Likes:    v.Likes,
		Comments: v.Comments,
		Views:    v.Views,
		LikedBy:  likedBy,
	}
}

// Update returns the normalized subscriber view of the UserProfile
func (u UserProfile) Update() UserUpdate {
	return UserUpdate{
		ID:        u.ID,
		Followers: u.Followers,
		Following: u.Following,
		Videos:    u.Videos,
	}
}
