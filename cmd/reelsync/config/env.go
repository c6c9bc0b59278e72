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
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envVars holds the environment overrides. Unset variables leave the
// loaded configuration unchanged.
type envVars struct {
	ConfigPath           string   `env:"RSY_CONFIG"`
	LogLevel             string   `env:"RSY_LOG_LEVEL"`
	LogFile              string   `env:"RSY_LOG_FILE"`
	MetricsPort          int      `env:"RSY_METRICS_PORT"`
	InstanceID           int      `env:"RSY_INSTANCE_ID"`
	CacheName            string   `env:"RSY_CACHE_NAME"`
	TracingProvider      string   `env:"RSY_TRACING_PROVIDER"`
	ConnectivityProvider string   `env:"RSY_CONNECTIVITY_PROVIDER"`
	ProbeURL             string   `env:"RSY_PROBE_URL"`
	DocstoreProvider     string   `env:"RSY_DOCSTORE_PROVIDER"`
	EtcdEndpoints        []string `env:"RSY_ETCD_ENDPOINTS" envSeparator:","`
	Simulate             bool     `env:"RSY_SIMULATE"`
}

func parseEnv() (*envVars, error) {
	e := &envVars{}
	if err := env.Parse(e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// loadEnvVars overlays the environment onto the configuration
func (c *Config) loadEnvVars(e *envVars) {
	if e.LogLevel != "" {
		c.Logging.LogLevel = e.LogLevel
	}
	if e.LogFile != "" {
		c.Logging.LogFile = e.LogFile
	}
	if e.MetricsPort > 0 {
		c.Metrics.ListenPort = e.MetricsPort
	}
	if e.InstanceID > 0 {
		c.Main.InstanceID = e.InstanceID
	}
	if e.CacheName != "" {
		c.Cache.Name = e.CacheName
	}
	if e.TracingProvider != "" {
		c.Tracing.Provider = e.TracingProvider
	}
	if e.ConnectivityProvider != "" {
		c.Connectivity.Provider = e.ConnectivityProvider
	}
	if e.ProbeURL != "" && c.Connectivity.Probe != nil {
		c.Connectivity.Probe.URL = e.ProbeURL
	}
	if e.DocstoreProvider != "" {
		c.Docstore.Provider = e.DocstoreProvider
	}
	if len(e.EtcdEndpoints) > 0 && c.Docstore.Etcd != nil {
		c.Docstore.Etcd.Endpoints = e.EtcdEndpoints
	}
	if e.Simulate {
		c.Main.Simulate = true
	}
}
