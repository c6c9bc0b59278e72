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

package actions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	a, err := New(LikePayload{VideoID: "v1", UserID: "u1", Liked: true}, now)
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.Equal(t, KindLike, a.Kind())
	require.Equal(t, now, a.EnqueuedAt)
	require.Zero(t, a.RetryCount)

	b, err := New(ViewPayload{VideoID: "v1", UserID: "u1"}, now)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.Less(t, a.ID, b.ID, "ids are time ordered")
}

func TestNewValidates(t *testing.T) {
	tests := []Payload{
		nil,
		LikePayload{UserID: "u1"},
		LikePayload{VideoID: "v1"},
		CommentPayload{VideoID: "v1", UserID: "u1"},
		FollowPayload{FollowerID: "u1"},
		FollowPayload{FollowerID: "u1", FolloweeID: "u1", Follow: true},
		ViewPayload{VideoID: "v1"},
		SharePayload{UserID: "u1"},
	}
	for _, p := range tests {
		_, err := New(p, time.Now())
		require.ErrorIs(t, err, ErrInvalidPayload, "%#v", p)
	}
}

func TestDurableFormat(t *testing.T) {
	a := Action{
		ID:         "a1",
		Payload:    LikePayload{VideoID: "v1", UserID: "u1", Liked: true},
		EnqueuedAt: time.UnixMilli(1000),
		RetryCount: 2,
	}
	b, err := json.Marshal(a)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"a1","type":"like","timestamp":1000,"retryCount":2,
		"data":{"videoId":"v1","userId":"u1","action":"like"}}`, string(b))

	var out Action
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, a, out)
}

func TestDecodeEachKind(t *testing.T) {
	tests := []struct {
		in   string
		want Payload
	}{
		{`{"id":"1","type":"like","data":{"videoId":"v","userId":"u","action":"unlike"}}`,
			LikePayload{VideoID: "v", UserID: "u"}},
		{`{"id":"2","type":"comment","data":{"videoId":"v","userId":"u","username":"n","text":"hi"}}`,
			CommentPayload{VideoID: "v", UserID: "u", Username: "n", Text: "hi"}},
		{`{"id":"3","type":"follow","data":{"followerId":"a","followeeId":"b","action":"follow"}}`,
			FollowPayload{FollowerID: "a", FolloweeID: "b", Follow: true}},
		{`{"id":"4","type":"view","data":{"videoId":"v","userId":"u"}}`,
			ViewPayload{VideoID: "v", UserID: "u"}},
		{`{"id":"5","type":"share","data":{"videoId":"v","userId":"u","platform":"sms"}}`,
			SharePayload{VideoID: "v", UserID: "u", Platform: "sms"}},
	}
	for _, test := range tests {
		var a Action
		require.NoError(t, json.Unmarshal([]byte(test.in), &a))
		require.Equal(t, test.want, a.Payload)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []string{
		`{"id":"1","type":"poke","data":{}}`,
		`{"id":"","type":"view","data":{"videoId":"v","userId":"u"}}`,
		`{"id":"1","type":"view","data":{"videoId":"v"}}`,
		`{"id":"1","type":"like","data":{"videoId":"v","userId":"u","action":"love"}}`,
		`{"id":"1","type":"follow","data":"nope"}`,
	}
	for _, in := range tests {
		var a Action
		require.Error(t, json.Unmarshal([]byte(in), &a), in)
	}
	var a Action
	err := json.Unmarshal([]byte(`{"id":"1","type":"poke","data":{}}`), &a)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestMarshalNilPayload(t *testing.T) {
	_, err := json.Marshal(Action{ID: "x"})
	require.Error(t, err)
}
