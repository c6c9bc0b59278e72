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

package level

import "testing"

func TestGetID(t *testing.T) {
	tests := []struct {
		in       Level
		expected ID
	}{
		{"invalid", 0},
		{Debug, DebugID},
		{Info, InfoID},
		{Warn, WarnID},
		{Error, ErrorID},
		{Fatal, FatalID},
	}
	for _, test := range tests {
		t.Run(string(test.in), func(t *testing.T) {
			if id := GetID(test.in); id != test.expected {
				t.Errorf("expected %d got %d", test.expected, id)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		expected Level
	}{
		{"DEBUG", Debug},
		{" info ", Info},
		{"warning", Warn},
		{"Err", Error},
		{"trace", "trace"},
	}
	for _, test := range tests {
		if l := Parse(test.in); l != test.expected {
			t.Errorf("expected %s got %s", test.expected, l)
		}
	}
}
