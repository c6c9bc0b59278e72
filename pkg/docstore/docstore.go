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

// Package docstore defines the remote document store used for real-time
// engagement data: JSON documents grouped in collections, atomic field
// operators, simple queries and change listeners
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document exists
	ErrAlreadyExists = errors.New("document already exists")
	// ErrInvalidField is returned when an operator targets a field of the wrong type
	ErrInvalidField = errors.New("invalid field for operation")
	// ErrInvalidPath is returned for an empty collection or document id
	ErrInvalidPath = errors.New("collection and document id are required")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("document store is closed")
)

// Fields is the JSON object body of a document. Numbers are float64 after
// normalization.
type Fields map[string]any

// Document is a stored document and its id
type Document struct {
	ID     string
	Fields Fields
}

// Decode unmarshals the document into dest, with the id under "id"
func (d Document) Decode(dest any) error {
	m := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		m[k] = v
	}
	m["id"] = d.ID
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

// Unsubscribe stops a listener. It is safe to call more than once.
type Unsubscribe func()

// DocumentHandler receives the current state of a watched document. exists is
// false when the document is absent or was deleted.
type DocumentHandler func(doc Document, exists bool)

// QueryHandler receives the current results of a watched query
type QueryHandler func(docs []Document)

// ErrorHandler receives listener errors; the listener keeps running
type ErrorHandler func(error)

// Store is a document store. Watchers receive the current state first and
// then every subsequent change, one at a time, in the order the store
// applied them.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, fields Fields, merge bool) error
	Create(ctx context.Context, collection, id string, fields Fields) error
	Update(ctx context.Context, collection, id string, ops ...FieldOp) error
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	WatchDocument(collection, id string, onChange DocumentHandler, onError ErrorHandler) Unsubscribe
	WatchQuery(q Query, onChange QueryHandler, onError ErrorHandler) Unsubscribe
	Close() error
}

// Normalize returns a deep copy of f with every value in its JSON form:
// numbers as float64, arrays as []any and objects as map[string]any
func Normalize(f Fields) (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	out := Fields{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns a deep copy of normalized fields
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	}
	return v
}

// Merge returns base overlaid with the top-level keys of patch
func Merge(base, patch Fields) Fields {
	out := base.Clone()
	if out == nil {
		out = Fields{}
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneDocuments deep-copies a result set
func CloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Fields: d.Fields.Clone()}
	}
	return out
}

// ValidatePath returns ErrInvalidPath when collection or id is empty
func ValidatePath(collection, id string) error {
	if collection == "" || id == "" {
		return ErrInvalidPath
	}
	return nil
}
