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

package options

import (
	"slices"
	"time"
)

const (
	// DefaultEndpoint is the default etcd client endpoint
	DefaultEndpoint = "127.0.0.1:2379"
	// DefaultPrefix namespaces reelsync's documents in a shared etcd
	DefaultPrefix = "/reelsync"
	// DefaultDialTimeout bounds the initial connection
	DefaultDialTimeout = 5 * time.Second
	// DefaultRequestTimeout bounds a single request issued without a deadline
	DefaultRequestTimeout = 5 * time.Second
)

// Options configures the etcd document store
type Options struct {
	// Endpoints is the etcd cluster member list
	Endpoints []string `yaml:"endpoints,omitempty"`
	// Prefix is prepended to every document key
	Prefix string `yaml:"prefix,omitempty"`
	// Username and Password authenticate against an auth-enabled cluster
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	// DialTimeout bounds the initial connection
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
	// RequestTimeout bounds the initial reads of a watch
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// New returns Options with default values
func New() *Options {
	return &Options{
		Endpoints:      []string{DefaultEndpoint},
		Prefix:         DefaultPrefix,
		DialTimeout:    DefaultDialTimeout,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	out := *o
	out.Endpoints = slices.Clone(o.Endpoints)
	return &out
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
