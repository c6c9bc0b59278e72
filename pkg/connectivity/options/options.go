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

// Package options holds the connectivity configuration
package options

import (
	"fmt"
	"strings"

	probe "github.com/trickstercache/reelsync/pkg/connectivity/probe/options"
	"github.com/trickstercache/reelsync/pkg/errors"
)

const (
	// ProviderSwitch is set programmatically by the host
	ProviderSwitch = "switch"
	// ProviderProbe polls an HTTP endpoint
	ProviderProbe = "probe"
)

// Options configures the connectivity monitor
type Options struct {
	// Provider is "switch" or "probe"
	Provider string `yaml:"provider,omitempty"`
	// AssumeOnline is the state before the provider's first observation
	AssumeOnline bool `yaml:"assume_online"`
	// Probe configures the "probe" provider
	Probe *probe.Options `yaml:"probe,omitempty"`
}

// New returns Options with default values
func New() *Options {
	return &Options{
		Provider:     ProviderSwitch,
		AssumeOnline: true,
		Probe:        probe.New(),
	}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	out := *o
	if o.Probe != nil {
		out.Probe = o.Probe.Clone()
	}
	return &out
}

// Validate returns an error if the Options are not usable
func (o *Options) Validate() error {
	o.Provider = strings.ToLower(o.Provider)
	switch o.Provider {
	case ProviderSwitch:
		return nil
	case ProviderProbe:
		if o.Probe == nil {
			return fmt.Errorf("%w: connectivity probe", errors.ErrInvalidOptions)
		}
		return o.Probe.Validate()
	}
	return fmt.Errorf("%w: connectivity provider %q", errors.ErrUnknownProvider, o.Provider)
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
