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

// Package errors holds process-level sentinel errors shared across packages
package errors

import "errors"

// ErrInvalidOptions is an error for when a configuration is invalid
var ErrInvalidOptions = errors.New("invalid options")

// ErrDaemonAlreadyStarted is returned when the daemon is started twice in one process
var ErrDaemonAlreadyStarted = errors.New("daemon was already started")

// ErrUnknownProvider is returned when a configured provider name is not supported
var ErrUnknownProvider = errors.New("unknown provider")

// ErrMissingEndpoint is returned when a remote provider is configured without an endpoint
var ErrMissingEndpoint = errors.New("missing endpoint")
