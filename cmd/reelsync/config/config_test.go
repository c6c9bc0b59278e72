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
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trickstercache/reelsync/pkg/cache/providers"
	conn "github.com/trickstercache/reelsync/pkg/connectivity/options"
	docstore "github.com/trickstercache/reelsync/pkg/docstore/options"
	"github.com/trickstercache/reelsync/pkg/errors"
	queue "github.com/trickstercache/reelsync/pkg/offline/queue/options"
)

const testConfig = `
main:
  instance_id: 2
  shutdown_timeout: 3s
logging:
  log_level: debug
metrics:
  listen_port: 9100
tracing:
  provider: stdout
  stdout:
    pretty_print: true
caches:
  primary:
    provider: memory
    default_ttl: 10m
  spare:
    provider: redis
    redis:
      password: hunter2
cache:
  name: primary
  reap_interval: 30s
snapshot:
  max_videos: 10
queue:
  max_retries: 5
connectivity:
  provider: probe
  assume_online: false
  probe:
    url: http://example.com/health
docstore:
  provider: etcd
  etcd:
    endpoints: [10.0.0.1:2379, 10.0.0.2:2379]
    password: secret
`

func writeConfig(t *testing.T, yml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reelsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := load("reelsync-test", []string{}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, DefaultCacheName, c.Cache.Name)
	co := c.CacheOptions()
	require.NotNil(t, co)
	require.Equal(t, providers.BBoltID, co.ProviderID)
	require.Equal(t, queue.DefaultMaxRetries, c.Queue.MaxRetries)
	require.Equal(t, conn.ProviderSwitch, c.Connectivity.Provider)
	require.Equal(t, docstore.ProviderMemory, c.Docstore.Provider)
	require.Equal(t, "none", c.Tracing.Provider)
	require.Equal(t, DefaultShutdownTimeout, c.Main.ShutdownTimeout)
	require.Empty(t, c.ConfigFilePath())
	require.Empty(t, c.LoaderWarnings)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, testConfig)
	c, err := load("reelsync-test", []string{"-config", path}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, path, c.ConfigFilePath())

	require.Equal(t, 2, c.Main.InstanceID)
	require.Equal(t, 3*time.Second, c.Main.ShutdownTimeout)
	require.Equal(t, "debug", c.Logging.LogLevel)
	require.Equal(t, 9100, c.Metrics.ListenPort)
	require.Equal(t, "stdout", c.Tracing.Provider)
	require.True(t, c.Tracing.StdOutOptions.PrettyPrint)

	require.Len(t, c.Caches, 2)
	co := c.CacheOptions()
	require.Equal(t, "primary", co.Name)
	require.Equal(t, providers.MemoryID, co.ProviderID)
	require.Equal(t, 10*time.Minute, co.DefaultTTL)
	require.Equal(t, 30*time.Second, co.ReapInterval)
	require.Equal(t, []string{`cache "spare" is configured but not used`}, c.LoaderWarnings)

	require.Equal(t, 10, c.Snapshot.MaxVideos)
	require.Equal(t, 20, c.Snapshot.MaxProfiles)
	require.Equal(t, 5, c.Queue.MaxRetries)
	require.Equal(t, queue.DefaultAttemptTimeout, c.Queue.AttemptTimeout)
	require.Equal(t, conn.ProviderProbe, c.Connectivity.Provider)
	require.False(t, c.Connectivity.AssumeOnline)
	require.Equal(t, "http://example.com/health", c.Connectivity.Probe.URL)
	require.Equal(t, docstore.ProviderEtcd, c.Docstore.Provider)
	require.Equal(t, []string{"10.0.0.1:2379", "10.0.0.2:2379"}, c.Docstore.Etcd.Endpoints)
	require.Equal(t, "/reelsync", c.Docstore.Etcd.Prefix)

	s := c.String()
	require.NotContains(t, s, "hunter2")
	require.NotContains(t, s, "secret")
	require.Contains(t, s, "*****")
	// masking does not touch the live config
	require.Equal(t, "hunter2", c.Caches["spare"].Redis.Password)
	require.Equal(t, "secret", c.Docstore.Etcd.Password)
}

func TestLoadFileFailures(t *testing.T) {
	tests := []struct {
		name     string
		yml      string
		expected string
	}{
		{"bad yaml", "main: [", "yaml"},
		{"unknown cache", "cache:\n  name: nope\n", `invalid cache name "nope"`},
		{"bad provider", "caches:\n  default:\n    provider: floppy\n", "invalid cache provider"},
		{"bad retries", "queue:\n  max_retries: -1\n", "max_retries"},
		{"bad snapshot", "snapshot:\n  max_videos: -2\n", "capacities"},
		{"probe url", "connectivity:\n  provider: probe\n", "absolute url"},
		{"docstore", "docstore:\n  provider: mongo\n", errors.ErrUnknownProvider.Error()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeConfig(t, test.yml)
			_, err := load("reelsync-test", []string{"-config", path}, io.Discard)
			require.Error(t, err)
			require.Contains(t, err.Error(), test.expected)
		})
	}
}

func TestMissingCustomPath(t *testing.T) {
	_, err := load("reelsync-test",
		[]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEnvVars(t *testing.T) {
	path := writeConfig(t, testConfig)
	t.Setenv("RSY_CONFIG", path)
	t.Setenv("RSY_LOG_LEVEL", "warn")
	t.Setenv("RSY_METRICS_PORT", "4002")
	t.Setenv("RSY_CACHE_NAME", "spare")
	t.Setenv("RSY_DOCSTORE_PROVIDER", "memory")
	t.Setenv("RSY_ETCD_ENDPOINTS", "a:1,b:2")
	t.Setenv("RSY_PROBE_URL", "http://probe.local/")
	t.Setenv("RSY_SIMULATE", "true")

	c, err := load("reelsync-test", []string{}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, path, c.ConfigFilePath())
	require.Equal(t, "warn", c.Logging.LogLevel)
	require.Equal(t, 4002, c.Metrics.ListenPort)
	require.Equal(t, "spare", c.CacheOptions().Name)
	require.Equal(t, docstore.ProviderMemory, c.Docstore.Provider)
	require.Equal(t, []string{"a:1", "b:2"}, c.Docstore.Etcd.Endpoints)
	require.Equal(t, "http://probe.local/", c.Connectivity.Probe.URL)
	require.True(t, c.Main.Simulate)

	t.Setenv("RSY_METRICS_PORT", "lots")
	_, err = load("reelsync-test", []string{}, io.Discard)
	require.Error(t, err)
}

func TestLoadFlags(t *testing.T) {
	t.Setenv("RSY_LOG_LEVEL", "warn")
	t.Setenv("RSY_METRICS_PORT", "4002")
	a := []string{
		"-metrics-port", "9092",
		"-log-level", "info",
		"-instance-id", "1",
		"-simulate",
	}
	c, err := load("reelsync-test", a, io.Discard)
	require.NoError(t, err)
	require.Equal(t, 9092, c.Metrics.ListenPort)
	require.Equal(t, "info", c.Logging.LogLevel)
	require.Equal(t, 1, c.Main.InstanceID)
	require.True(t, c.Main.Simulate)
	require.False(t, c.Flags.ValidateConfig)

	c, err = load("reelsync-test", []string{"-validate-config"}, io.Discard)
	require.NoError(t, err)
	require.True(t, c.Flags.ValidateConfig)

	_, err = load("reelsync-test", []string{"-no-such-flag"}, io.Discard)
	require.Error(t, err)
}

func TestPrintVersionSkipsLoading(t *testing.T) {
	c, err := load("reelsync-test",
		[]string{"-version", "-config", "/nonexistent.yaml"}, io.Discard)
	require.NoError(t, err)
	require.True(t, c.Flags.PrintVersion)
}

func TestNullSections(t *testing.T) {
	path := writeConfig(t, "queue:\nlogging:\ncaches:\n")
	c, err := load("reelsync-test", []string{"-config", path}, io.Discard)
	require.NoError(t, err)
	require.NotNil(t, c.Queue)
	require.NotNil(t, c.Logging)
	require.Contains(t, c.Caches, DefaultCacheName)
	require.True(t, strings.HasPrefix(c.String(), "main:"))
}
