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

package providers

import "testing"

func TestProviderString(t *testing.T) {
	if s := BBoltID.String(); s != BBolt {
		t.Errorf("expected %s got %s", BBolt, s)
	}
	if s := SQLiteID.String(); s != SQLite {
		t.Errorf("expected %s got %s", SQLite, s)
	}
	if s := Provider(99).String(); s != "99" {
		t.Errorf("expected %s got %s", "99", s)
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote(Redis) {
		t.Error("expected redis to be remote")
	}
	if IsRemote(BBolt) {
		t.Error("expected bbolt to be local")
	}
}
