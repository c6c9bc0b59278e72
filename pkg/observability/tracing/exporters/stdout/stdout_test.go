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

package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/trickstercache/reelsync/pkg/observability/tracing"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	tr, err := New(nil, buf)
	if err != nil {
		t.Fatal(err)
	}
	_, span := tracing.NewChildSpan(context.Background(), tr, "queue.drain")
	span.End()
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Error(err)
	}
	if !strings.Contains(buf.String(), "queue.drain") {
		t.Errorf("expected span name in exporter output, got %q", buf.String())
	}
}
