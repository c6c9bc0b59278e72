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

// Package options holds the configuration of the offline action queue
package options

import (
	"errors"
	"time"
)

const (
	// DefaultMaxRetries is the number of failed replays after which an action is dropped
	DefaultMaxRetries = 3
	// DefaultAttemptTimeout bounds a single replay attempt
	DefaultAttemptTimeout = 10 * time.Second
)

var (
	// ErrInvalidMaxRetries is returned when max_retries is not positive
	ErrInvalidMaxRetries = errors.New("queue max_retries must be greater than zero")
	// ErrInvalidAttemptTimeout is returned when attempt_timeout is not positive
	ErrInvalidAttemptTimeout = errors.New("queue attempt_timeout must be greater than zero")
)

// Options configures replay of queued actions
type Options struct {
	// MaxRetries is the number of failed replays after which an action is dropped
	MaxRetries int `yaml:"max_retries,omitempty"`
	// AttemptTimeout bounds a single replay attempt
	AttemptTimeout time.Duration `yaml:"attempt_timeout,omitempty"`
}

// New returns Options with default values
func New() *Options {
	return &Options{
		MaxRetries:     DefaultMaxRetries,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	out := *o
	return &out
}

// Validate returns an error if the Options are not usable
func (o *Options) Validate() error {
	if o.MaxRetries <= 0 {
		return ErrInvalidMaxRetries
	}
	if o.AttemptTimeout <= 0 {
		return ErrInvalidAttemptTimeout
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
