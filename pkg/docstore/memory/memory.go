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

// Package memory is an in-process docstore.Store for embedded mode and tests
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/trickstercache/reelsync/pkg/docstore"
)

var _ docstore.Store = &Store{}

// Store keeps every document in memory. Changes are delivered to each
// watcher on its own goroutine, in the order they were applied.
type Store struct {
	mtx     sync.Mutex
	colls   map[string]map[string]docstore.Fields
	docs    map[*docWatch]struct{}
	queries map[*queryWatch]struct{}
	closed  bool
}

type docWatch struct {
	collection, id string
	onChange       docstore.DocumentHandler
	mb             *mailbox
}

type queryWatch struct {
	q        docstore.Query
	onChange docstore.QueryHandler
	mb       *mailbox
}

// New returns an empty Store
func New() *Store {
	return &Store{
		colls:   make(map[string]map[string]docstore.Fields),
		docs:    make(map[*docWatch]struct{}),
		queries: make(map[*queryWatch]struct{}),
	}
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := docstore.ValidatePath(collection, id); err != nil {
		return docstore.Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return docstore.Document{}, docstore.ErrClosed
	}
	f, ok := s.colls[collection][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{ID: id, Fields: f.Clone()}, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields,
	merge bool) error {
	return s.write(ctx, collection, id, func(cur docstore.Fields, exists bool) (docstore.Fields, error) {
		n, err := docstore.Normalize(fields)
		if err != nil {
			return nil, err
		}
		if merge && exists {
			return docstore.Merge(cur, n), nil
		}
		return n, nil
	})
}

func (s *Store) Create(ctx context.Context, collection, id string, fields docstore.Fields) error {
	return s.write(ctx, collection, id, func(_ docstore.Fields, exists bool) (docstore.Fields, error) {
		if exists {
			return nil, docstore.ErrAlreadyExists
		}
		return docstore.Normalize(fields)
	})
}

func (s *Store) Update(ctx context.Context, collection, id string, ops ...docstore.FieldOp) error {
	return s.write(ctx, collection, id, func(cur docstore.Fields, exists bool) (docstore.Fields, error) {
		if !exists {
			return nil, docstore.ErrNotFound
		}
		return docstore.Apply(cur, ops...)
	})
}

func (s *Store) Add(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	id := uuid.NewString()
	if err := s.Create(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// write applies f to the current document and notifies watchers while the
// store lock is held, so mailboxes receive changes in store order
func (s *Store) write(ctx context.Context, collection, id string,
	f func(cur docstore.Fields, exists bool) (docstore.Fields, error)) error {
	if err := docstore.ValidatePath(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	coll := s.colls[collection]
	cur, exists := coll[id]
	next, err := f(cur, exists)
	if err != nil {
		return err
	}
	if coll == nil {
		coll = make(map[string]docstore.Fields)
		s.colls[collection] = coll
	}
	coll[id] = next
	s.notify(collection, id)
	return nil
}

// Delete removes a document. A missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := docstore.ValidatePath(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return docstore.ErrClosed
	}
	if _, ok := s.colls[collection][id]; !ok {
		return nil
	}
	delete(s.colls[collection], id)
	s.notify(collection, id)
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	return s.query(q), nil
}

// query must be called with mtx held
func (s *Store) query(q docstore.Query) []docstore.Document {
	coll := s.colls[q.Collection]
	docs := make([]docstore.Document, 0, len(coll))
	for id, f := range coll {
		docs = append(docs, docstore.Document{ID: id, Fields: f})
	}
	return docstore.CloneDocuments(q.Run(docs))
}

// notify must be called with mtx held
func (s *Store) notify(collection, id string) {
	for w := range s.docs {
		if w.collection == collection && w.id == id {
			s.pushDocument(w)
		}
	}
	for w := range s.queries {
		if w.q.Collection == collection {
			s.pushQuery(w)
		}
	}
}

func (s *Store) pushDocument(w *docWatch) {
	f, ok := s.colls[w.collection][w.id]
	doc := docstore.Document{ID: w.id, Fields: f.Clone()}
	w.mb.push(func() { w.onChange(doc, ok) })
}

func (s *Store) pushQuery(w *queryWatch) {
	docs := s.query(w.q)
	w.mb.push(func() { w.onChange(docs) })
}

// WatchDocument delivers the current state of the document, then every
// change to it. onError is never called by the memory store.
func (s *Store) WatchDocument(collection, id string, onChange docstore.DocumentHandler,
	_ docstore.ErrorHandler) docstore.Unsubscribe {
	w := &docWatch{collection: collection, id: id, onChange: onChange, mb: newMailbox()}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		w.mb.stop()
		return func() {}
	}
	s.docs[w] = struct{}{}
	s.pushDocument(w)
	return func() {
		s.mtx.Lock()
		delete(s.docs, w)
		s.mtx.Unlock()
		w.mb.stop()
	}
}

// WatchQuery delivers the current results of q, then the full results after
// every change to its collection
func (s *Store) WatchQuery(q docstore.Query, onChange docstore.QueryHandler,
	_ docstore.ErrorHandler) docstore.Unsubscribe {
	w := &queryWatch{q: q, onChange: onChange, mb: newMailbox()}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		w.mb.stop()
		return func() {}
	}
	s.queries[w] = struct{}{}
	s.pushQuery(w)
	return func() {
		s.mtx.Lock()
		delete(s.queries, w)
		s.mtx.Unlock()
		w.mb.stop()
	}
}

// Close stops every watcher and rejects further operations
func (s *Store) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for w := range s.docs {
		w.mb.stop()
	}
	for w := range s.queries {
		w.mb.stop()
	}
	clear(s.docs)
	clear(s.queries)
	return nil
}
