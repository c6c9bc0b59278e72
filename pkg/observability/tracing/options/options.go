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

const (
	// DefaultTracerProvider is the default tracing provider; none disables tracing
	DefaultTracerProvider = "none"
	// DefaultTracerServiceName is the default service.name attribute on spans
	DefaultTracerServiceName = "reelsync"
)

// Options is a Tracing Options collection
type Options struct {
	Name        string            `yaml:"-"`
	Provider    string            `yaml:"provider,omitempty"`
	ServiceName string            `yaml:"service_name,omitempty"`
	SampleRate  float64           `yaml:"sample_rate,omitempty"`
	Tags        map[string]string `yaml:"tags,omitempty"`

	StdOutOptions *StdOutOptions `yaml:"stdout,omitempty"`
}

// StdOutOptions configures the stdout exporter
type StdOutOptions struct {
	PrettyPrint bool `yaml:"pretty_print,omitempty"`
}

// New returns a new *Options with the default values
func New() *Options {
	return &Options{
		Name:          "default",
		Provider:      DefaultTracerProvider,
		ServiceName:   DefaultTracerServiceName,
		SampleRate:    1,
		StdOutOptions: &StdOutOptions{},
	}
}

// UnmarshalYAML applies the default values before overlaying the YAML-provided ones
func (o *Options) UnmarshalYAML(unmarshal func(any) error) error {
	type loadOptions Options
	lo := loadOptions(*(New()))
	if err := unmarshal(&lo); err != nil {
		return err
	}
	*o = Options(lo)
	if o.StdOutOptions == nil {
		o.StdOutOptions = &StdOutOptions{}
	}
	return nil
}
