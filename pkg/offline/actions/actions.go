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

// Package actions defines the user mutations buffered by the offline queue.
// Each kind carries its own typed payload.
package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the type of an Action
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
	KindFollow  Kind = "follow"
	KindView    Kind = "view"
	KindShare   Kind = "share"
)

var (
	// ErrInvalidPayload is wrapped by every payload validation failure
	ErrInvalidPayload = errors.New("invalid action payload")
	// ErrUnknownKind is returned when decoding an action of an unsupported kind
	ErrUnknownKind = errors.New("unknown action kind")
)

// Payload is the typed body of an Action
type Payload interface {
	Kind() Kind
	Validate() error
}

func missing(k Kind, field string) error {
	return fmt.Errorf("%w: %s requires %s", ErrInvalidPayload, k, field)
}

// Action is a buffered user mutation awaiting replay
type Action struct {
	ID         string
	Payload    Payload
	EnqueuedAt time.Time
	RetryCount int
}

// New returns a validated Action for p with a time-ordered ID
func New(p Payload, now time.Time) (Action, error) {
	if p == nil {
		return Action{}, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if err := p.Validate(); err != nil {
		return Action{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Action{}, err
	}
	return Action{
		ID:         id.String(),
		Payload:    p,
		EnqueuedAt: time.UnixMilli(now.UnixMilli()),
	}, nil
}

// Kind returns the kind of the Action's payload
func (a Action) Kind() Kind {
	if a.Payload == nil {
		return ""
	}
	return a.Payload.Kind()
}

type wireAction struct {
	ID         string          `json:"id"`
	Type       Kind            `json:"type"`
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
}

// MarshalJSON encodes the Action in its durable form
func (a Action) MarshalJSON() ([]byte, error) {
	if a.Payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	data, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireAction{
		ID:         a.ID,
		Type:       a.Payload.Kind(),
		Data:       data,
		Timestamp:  a.EnqueuedAt.UnixMilli(),
		RetryCount: a.RetryCount,
	})
}

// UnmarshalJSON decodes the durable form, selecting the payload type by kind
func (a *Action) UnmarshalJSON(b []byte) error {
	var w wireAction
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var p Payload
	switch w.Type {
	case KindLike:
		p = &LikePayload{}
	case KindComment:
		p = &CommentPayload{}
	case KindFollow:
		p = &FollowPayload{}
	case KindView:
		p = &ViewPayload{}
	case KindShare:
		p = &SharePayload{}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, w.Type)
	}
	if err := json.Unmarshal(w.Data, p); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}
	*a = Action{
		ID:         w.ID,
		Payload:    deref(p),
		EnqueuedAt: time.UnixMilli(w.Timestamp),
		RetryCount: w.RetryCount,
	}
	return a.Payload.Validate()
}

// deref stores payloads by value so type switches match either form
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *LikePayload:
		return *v
	case *CommentPayload:
		return *v
	case *FollowPayload:
		return *v
	case *ViewPayload:
		return *v
	case *SharePayload:
		return *v
	}
	return p
}
