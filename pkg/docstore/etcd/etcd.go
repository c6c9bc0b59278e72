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

// Package etcd is a docstore.Store backed by an etcd cluster. Each document is
// a JSON value under <prefix>/<collection>/<id>.
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trickstercache/reelsync/pkg/docstore"
	"github.com/trickstercache/reelsync/pkg/docstore/etcd/options"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var _ docstore.Store = &Store{}

// time to wait before re-reading after a failed watch setup
const retryInterval = time.Second

// Store is the etcd document store
type Store struct {
	cli    *clientv3.Client
	owned  bool
	prefix string
	reqTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Store over an existing client. Close does not close cli.
func New(cli *clientv3.Client, o *options.Options) *Store {
	if o == nil {
		o = options.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		cli:    cli,
		prefix: strings.TrimSuffix(o.Prefix, "/"),
		reqTTL: o.RequestTimeout,
		ctx:    ctx,
		cancel: cancel,
	}
	if s.reqTTL <= 0 {
		s.reqTTL = options.DefaultRequestTimeout
	}
	return s
}

// Dial connects to the configured cluster and returns a Store that closes the
// client on Close
func Dial(o *options.Options) (*Store, error) {
	if o == nil {
		o = options.New()
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   o.Endpoints,
		DialTimeout: o.DialTimeout,
		Username:    o.Username,
		Password:    o.Password,
	})
	if err != nil {
		return nil, err
	}
	s := New(cli, o)
	s.owned = true
	logger.Info("docstore connected",
		logging.Pairs{"provider": "etcd", "endpoints": strings.Join(o.Endpoints, ",")})
	return s, nil
}

func (s *Store) collectionKey(collection string) string {
	return s.prefix + "/" + collection + "/"
}

func (s *Store) key(collection, id string) string {
	return s.collectionKey(collection) + id
}

func decode(id string, b []byte) (docstore.Document, error) {
	f := docstore.Fields{}
	if err := json.Unmarshal(b, &f); err != nil {
		return docstore.Document{}, fmt.Errorf("decoding document %s: %w", id, err)
	}
	return docstore.Document{ID: id, Fields: f}, nil
}

func (s *Store) check(collection, id string) error {
	if err := docstore.ValidatePath(collection, id); err != nil {
		return err
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("%w: id %q contains '/'", docstore.ErrInvalidPath, id)
	}
	if s.ctx.Err() != nil {
		return docstore.ErrClosed
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := s.check(collection, id); err != nil {
		return docstore.Document{}, err
	}
	resp, err := s.cli.Get(ctx, s.key(collection, id))
	if err != nil {
		return docstore.Document{}, err
	}
	if len(resp.Kvs) == 0 {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return decode(id, resp.Kvs[0].Value)
}

func (s *Store) Set(ctx context.Context, collection, id string, fields docstore.Fields,
	merge bool) error {
	if err := s.check(collection, id); err != nil {
		return err
	}
	n, err := docstore.Normalize(fields)
	if err != nil {
		return err
	}
	if !merge {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		_, err = s.cli.Put(ctx, s.key(collection, id), string(b))
		return err
	}
	return s.cas(ctx, collection, id, func(cur docstore.Fields, exists bool) (docstore.Fields, error) {
		if !exists {
			return n, nil
		}
		return docstore.Merge(cur, n), nil
	})
}

func (s *Store) Create(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if err := s.check(collection, id); err != nil {
		return err
	}
	n, err := docstore.Normalize(fields)
	if err != nil {
		return err
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := s.key(collection, id)
	tr, err := s.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(b))).
		Commit()
	if err != nil {
		return err
	}
	if !tr.Succeeded {
		return docstore.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, ops ...docstore.FieldOp) error {
	if err := s.check(collection, id); err != nil {
		return err
	}
	return s.cas(ctx, collection, id, func(cur docstore.Fields, exists bool) (docstore.Fields, error) {
		if !exists {
			return nil, docstore.ErrNotFound
		}
		return docstore.Apply(cur, ops...)
	})
}

// cas reads the document, computes its next value with f and writes it only
// if the document is unchanged since the read, retrying until it is
func (s *Store) cas(ctx context.Context, collection, id string,
	f func(cur docstore.Fields, exists bool) (docstore.Fields, error)) error {
	key := s.key(collection, id)
	for {
		resp, err := s.cli.Get(ctx, key)
		if err != nil {
			return err
		}
		var cur docstore.Fields
		cmp := clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
		exists := len(resp.Kvs) > 0
		if exists {
			d, err := decode(id, resp.Kvs[0].Value)
			if err != nil {
				return err
			}
			cur = d.Fields
			cmp = clientv3.Compare(clientv3.ModRevision(key), "=", resp.Kvs[0].ModRevision)
		}
		next, err := f(cur, exists)
		if err != nil {
			return err
		}
		b, err := json.Marshal(next)
		if err != nil {
			return err
		}
		tr, err := s.cli.Txn(ctx).If(cmp).Then(clientv3.OpPut(key, string(b))).Commit()
		if err != nil {
			return err
		}
		if tr.Succeeded {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (s *Store) Add(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	id := uuid.NewString()
	if err := s.Create(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a document. A missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.check(collection, id); err != nil {
		return err
	}
	_, err := s.cli.Delete(ctx, s.key(collection, id))
	return err
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if s.ctx.Err() != nil {
		return nil, docstore.ErrClosed
	}
	docs, _, err := s.query(ctx, q, 0)
	return docs, err
}

// query runs q against the collection at rev, or the latest revision when
// rev is zero, and returns the revision read
func (s *Store) query(ctx context.Context, q docstore.Query,
	rev int64) ([]docstore.Document, int64, error) {
	if q.Collection == "" {
		return nil, 0, docstore.ErrInvalidPath
	}
	prefix := s.collectionKey(q.Collection)
	opts := []clientv3.OpOption{clientv3.WithPrefix()}
	if rev > 0 {
		opts = append(opts, clientv3.WithRev(rev))
	}
	resp, err := s.cli.Get(ctx, prefix, opts...)
	if err != nil {
		return nil, 0, err
	}
	docs := make([]docstore.Document, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		id := strings.TrimPrefix(string(kv.Key), prefix)
		if id == "" || strings.Contains(id, "/") {
			continue
		}
		d, err := decode(id, kv.Value)
		if err != nil {
			logger.Debug("skipping undecodable document",
				logging.Pairs{"key": string(kv.Key), "detail": err.Error()})
			continue
		}
		docs = append(docs, d)
	}
	return q.Run(docs), resp.Header.Revision, nil
}

// Close stops every watch, waits for them to exit and closes the client when
// the Store dialed it
func (s *Store) Close() error {
	if s.ctx.Err() != nil {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	if s.owned {
		return s.cli.Close()
	}
	return nil
}
