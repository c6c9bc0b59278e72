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

import (
	"errors"
	"io"
	"io/fs"
)

// Load returns the Application Configuration, starting with a default config,
// then overriding with any provided config file, then env vars, and finally flags
func Load(applicationName string, arguments []string) (*Config, error) {
	return load(applicationName, arguments, nil)
}

func load(applicationName string, arguments []string, output io.Writer) (*Config, error) {
	c := NewConfig()
	// flags are parsed first to get the config file path and version flags
	flags, err := parseFlags(applicationName, arguments, output)
	if err != nil {
		return nil, err
	}
	c.Flags = flags
	if flags.PrintVersion {
		return c, nil
	}

	e, err := parseEnv()
	if err != nil {
		return nil, err
	}
	path := flags.ConfigPath
	if path == "" && e.ConfigPath != "" {
		path = e.ConfigPath
		flags.customPath = true
	}
	if path == "" {
		path = DefaultConfigPath
	}
	if err := c.loadFile(path); err != nil {
		// only a user-provided path must exist
		if flags.customPath || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	c.loadEnvVars(e)
	c.loadFlags(flags)

	if err := c.setDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
