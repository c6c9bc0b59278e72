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

import (
	"testing"

	"github.com/stretchr/testify/require"
	probe "github.com/trickstercache/reelsync/pkg/connectivity/probe/options"
	"github.com/trickstercache/reelsync/pkg/errors"
	"gopkg.in/yaml.v2"
)

func TestValidate(t *testing.T) {
	o := New()
	require.NoError(t, o.Validate())

	o.Provider = "Probe"
	require.ErrorIs(t, o.Validate(), probe.ErrInvalidURL)
	require.Equal(t, ProviderProbe, o.Provider)
	o.Probe.URL = "http://127.0.0.1:8080/health"
	require.NoError(t, o.Validate())

	o.Probe = nil
	require.ErrorIs(t, o.Validate(), errors.ErrInvalidOptions)

	o.Provider = "carrier-pigeon"
	require.ErrorIs(t, o.Validate(), errors.ErrUnknownProvider)
}

func TestUnmarshalYAMLDefaults(t *testing.T) {
	const doc = `
provider: probe
probe:
  url: https://example.com/ping
  failure_threshold: 5
`
	o := &Options{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), o))
	require.Equal(t, ProviderProbe, o.Provider)
	require.True(t, o.AssumeOnline)
	require.Equal(t, 5, o.Probe.FailureThreshold)
	require.Equal(t, probe.DefaultRecoveryThreshold, o.Probe.RecoveryThreshold)
	require.Equal(t, probe.DefaultInterval, o.Probe.Interval)
}

func TestClone(t *testing.T) {
	o := New()
	c := o.Clone()
	c.Probe.ExpectedCodes[0] = 204
	require.Equal(t, 200, o.Probe.ExpectedCodes[0])
}
