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

// Package options holds the document store configuration
package options

import (
	"fmt"
	"strings"

	etcd "github.com/trickstercache/reelsync/pkg/docstore/etcd/options"
	"github.com/trickstercache/reelsync/pkg/errors"
)

const (
	// ProviderMemory keeps documents in process
	ProviderMemory = "memory"
	// ProviderEtcd keeps documents in an etcd cluster
	ProviderEtcd = "etcd"
)

// Options configures the document store
type Options struct {
	// Provider is "memory" or "etcd"
	Provider string `yaml:"provider,omitempty"`
	// Etcd configures the "etcd" provider
	Etcd *etcd.Options `yaml:"etcd,omitempty"`
}

// New returns Options with default values
func New() *Options {
	return &Options{
		Provider: ProviderMemory,
		Etcd:     etcd.New(),
	}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	out := *o
	if o.Etcd != nil {
		out.Etcd = o.Etcd.Clone()
	}
	return &out
}

// Validate returns an error if the Options are not usable
func (o *Options) Validate() error {
	o.Provider = strings.ToLower(o.Provider)
	switch o.Provider {
	case ProviderMemory:
		return nil
	case ProviderEtcd:
		if o.Etcd == nil || len(o.Etcd.Endpoints) == 0 {
			return fmt.Errorf("%w: docstore etcd", errors.ErrMissingEndpoint)
		}
		return nil
	}
	return fmt.Errorf("%w: docstore provider %q", errors.ErrUnknownProvider, o.Provider)
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
