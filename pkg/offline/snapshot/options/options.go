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

// Package options holds the capacity configuration of the offline snapshot
package options

import "errors"

const (
	DefaultMaxVideos      = 50
	DefaultMaxProfiles    = 20
	DefaultMaxCommentSets = 30
)

// ErrInvalidCapacity is returned when a capacity is not positive
var ErrInvalidCapacity = errors.New("snapshot capacities must be greater than zero")

// Options bounds the collections kept for offline use
type Options struct {
	// MaxVideos is the number of videos retained, oldest evicted first
	MaxVideos int `yaml:"max_videos,omitempty"`
	// MaxProfiles is the number of user profiles retained
	MaxProfiles int `yaml:"max_profiles,omitempty"`
	// MaxCommentSets is the number of per-video comment lists retained
	MaxCommentSets int `yaml:"max_comment_sets,omitempty"`
}

// New returns Options with the default capacities
func New() *Options {
	return &Options{
		MaxVideos:      DefaultMaxVideos,
		MaxProfiles:    DefaultMaxProfiles,
		MaxCommentSets: DefaultMaxCommentSets,
	}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	out := *o
	return &out
}

// Validate returns an error if any capacity is not positive
func (o *Options) Validate() error {
	if o.MaxVideos <= 0 || o.MaxProfiles <= 0 || o.MaxCommentSets <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

func (o *Options) UnmarshalYAML(unmarshal func(any) error) error {
	type loadOptions Options
	lo := loadOptions(*(New()))
	if err := unmarshal(&lo); err != nil {
		return err
	}
	*o = Options(lo)
	return nil
}
