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

import "time"

const (
	// DefaultPath is the default sqlite database file
	DefaultPath = "reelsync.sqlite"
	// DefaultTable is the default table holding key-value rows
	DefaultTable = "kv"
	// DefaultBusyTimeout is how long a writer waits on a locked database
	DefaultBusyTimeout = 5 * time.Second
)

// Options is a collection of Configurations for storing cached data in SQLite
type Options struct {
	// Path is the database file; ":memory:" keeps the database in process memory
	Path string `yaml:"path,omitempty"`
	// Table is the name of the key-value table
	Table string `yaml:"table,omitempty"`
	// BusyTimeout is how long a writer waits on a locked database
	BusyTimeout time.Duration `yaml:"busy_timeout,omitempty"`
}

// New returns a reference to a new SQLite Options
func New() *Options {
	return &Options{Path: DefaultPath, Table: DefaultTable, BusyTimeout: DefaultBusyTimeout}
}
