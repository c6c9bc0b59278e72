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

package config

import "time"

const (
	// DefaultConfigPath is the config file read when -config is not provided;
	// a missing default file is not an error
	DefaultConfigPath = "/etc/reelsync/reelsync.yaml"
	// DefaultCacheName is the name of the cache the core uses by default
	DefaultCacheName = "default"
	// DefaultShutdownTimeout bounds a graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second
)
