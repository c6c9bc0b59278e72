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

// Package registry builds the configured Tracer
package registry

import (
	"fmt"
	"strings"

	"github.com/trickstercache/reelsync/pkg/errors"
	"github.com/trickstercache/reelsync/pkg/observability/tracing"
	"github.com/trickstercache/reelsync/pkg/observability/tracing/exporters/stdout"
	"github.com/trickstercache/reelsync/pkg/observability/tracing/options"

	"go.opentelemetry.io/otel/trace/noop"
)

// New returns a Tracer for the provided options. The "none" provider returns a
// Tracer backed by the no-op implementation so callers never need nil checks.
func New(opts *options.Options) (*tracing.Tracer, error) {
	if opts == nil {
		opts = options.New()
	}
	switch strings.ToLower(opts.Provider) {
	case "", "none":
		return &tracing.Tracer{
			Name:    opts.Name,
			Tracer:  noop.NewTracerProvider().Tracer(opts.ServiceName),
			Options: opts,
		}, nil
	case "stdout":
		return stdout.New(opts, nil)
	}
	return nil, fmt.Errorf("%w: tracing provider %q", errors.ErrUnknownProvider, opts.Provider)
}
