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
	"gopkg.in/yaml.v2"
)

func TestUnmarshalYAML(t *testing.T) {
	o := &Options{}
	require.NoError(t, yaml.Unmarshal([]byte("max_videos: 5"), o))
	require.Equal(t, 5, o.MaxVideos)
	require.Equal(t, DefaultMaxProfiles, o.MaxProfiles)
	require.NoError(t, o.Validate())
	o.MaxCommentSets = 0
	require.ErrorIs(t, o.Validate(), ErrInvalidCapacity)
}
