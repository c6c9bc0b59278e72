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

// Package options holds the configuration of the HTTP connectivity probe
package options

import (
	"errors"
	"net/url"
	"time"
)

const (
	DefaultMethod            = "GET"
	DefaultInterval          = 5 * time.Second
	DefaultTimeout           = 2 * time.Second
	DefaultFailureThreshold  = 3
	DefaultRecoveryThreshold = 3
)

var (
	// ErrInvalidURL is returned when the probe URL is missing or not absolute
	ErrInvalidURL = errors.New("connectivity probe requires an absolute url")
	// ErrInvalidInterval is returned when interval is not positive
	ErrInvalidInterval = errors.New("connectivity probe interval must be greater than zero")
)

// Options configures the HTTP connectivity probe
type Options struct {
	// URL is probed on every interval
	URL string `yaml:"url,omitempty"`
	// Method is the HTTP method of the probe request
	Method string `yaml:"method,omitempty"`
	// Interval is the time between probes
	Interval time.Duration `yaml:"interval,omitempty"`
	// Timeout bounds a single probe
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// ExpectedCodes are the response codes that count as reachable; defaults to 200
	ExpectedCodes []int `yaml:"expected_codes,omitempty"`
	// FailureThreshold is the number of consecutive failed probes before going offline
	FailureThreshold int `yaml:"failure_threshold,omitempty"`
	// RecoveryThreshold is the number of consecutive good probes before going online
	RecoveryThreshold int `yaml:"recovery_threshold,omitempty"`
}

// New returns Options with default values
func New() *Options {
	return &Options{
		Method:            DefaultMethod,
		Interval:          DefaultInterval,
		Timeout:           DefaultTimeout,
		ExpectedCodes:     []int{200},
		FailureThreshold:  DefaultFailureThreshold,
		RecoveryThreshold: DefaultRecoveryThreshold,
	}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	out := *o
	out.ExpectedCodes = append([]int(nil), o.ExpectedCodes...)
	return &out
}

// Validate returns an error if the Options are not usable
func (o *Options) Validate() error {
	u, err := url.Parse(o.URL)
	if err != nil || !u.IsAbs() {
		return ErrInvalidURL
	}
	if o.Interval <= 0 {
		return ErrInvalidInterval
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
