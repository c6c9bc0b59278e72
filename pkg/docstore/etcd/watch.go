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

package etcd

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trickstercache/reelsync/pkg/docstore"

	clientv3 "go.etcd.io/etcd/client/v3"
)

var errCompacted = errors.New("watch revision compacted, resynchronizing")

func (s *Store) startWatch(run func(ctx context.Context)) docstore.Unsubscribe {
	ctx, cancel := context.WithCancel(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}

func reportError(onError docstore.ErrorHandler, err error) {
	if onError != nil && err != nil {
		onError(err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// WatchDocument delivers the current state of the document, then every
// change to it. A watch that closes is re-established from the last
// revision seen; a compacted revision triggers a fresh read.
func (s *Store) WatchDocument(collection, id string, onChange docstore.DocumentHandler,
	onError docstore.ErrorHandler) docstore.Unsubscribe {
	if err := s.check(collection, id); err != nil {
		reportError(onError, err)
		return func() {}
	}
	key := s.key(collection, id)
	return s.startWatch(func(ctx context.Context) {
		var rev int64
		for ctx.Err() == nil {
			if rev == 0 {
				r, err := s.readDocument(ctx, key, id, onChange)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					reportError(onError, err)
					if !sleepCtx(ctx, retryInterval) {
						return
					}
					continue
				}
				rev = r
			}
			rev = s.followDocument(ctx, key, id, rev, onChange, onError)
			if ctx.Err() == nil && !sleepCtx(ctx, retryInterval) {
				return
			}
		}
	})
}

func (s *Store) readDocument(ctx context.Context, key, id string,
	onChange docstore.DocumentHandler) (int64, error) {
	rctx, cancel := context.WithTimeout(ctx, s.reqTTL)
	defer cancel()
	resp, err := s.cli.Get(rctx, key)
	if err != nil {
		return 0, err
	}
	if len(resp.Kvs) == 0 {
		onChange(docstore.Document{ID: id}, false)
		return resp.Header.Revision, nil
	}
	d, err := decode(id, resp.Kvs[0].Value)
	if err != nil {
		return 0, err
	}
	onChange(d, true)
	return resp.Header.Revision, nil
}

// followDocument delivers events after rev until the watch ends, returning
// the revision to resume from, or zero to re-read
func (s *Store) followDocument(ctx context.Context, key, id string, rev int64,
	onChange docstore.DocumentHandler, onError docstore.ErrorHandler) int64 {
	wctx, cancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	defer cancel()
	for resp := range s.cli.Watch(wctx, key, clientv3.WithRev(rev+1)) {
		if resp.CompactRevision != 0 {
			reportError(onError, errCompacted)
			return 0
		}
		if err := resp.Err(); err != nil {
			reportError(onError, err)
			continue
		}
		for _, ev := range resp.Events {
			rev = ev.Kv.ModRevision
			if ev.Type == clientv3.EventTypeDelete {
				onChange(docstore.Document{ID: id}, false)
				continue
			}
			d, err := decode(id, ev.Kv.Value)
			if err != nil {
				reportError(onError, err)
				continue
			}
			onChange(d, true)
		}
	}
	return rev
}

// WatchQuery delivers the current results of q, then the full results as of
// every watch response that changed the collection
func (s *Store) WatchQuery(q docstore.Query, onChange docstore.QueryHandler,
	onError docstore.ErrorHandler) docstore.Unsubscribe {
	if q.Collection == "" {
		reportError(onError, docstore.ErrInvalidPath)
		return func() {}
	}
	prefix := s.collectionKey(q.Collection)
	return s.startWatch(func(ctx context.Context) {
		var rev int64
		for ctx.Err() == nil {
			if rev == 0 {
				rctx, cancel := context.WithTimeout(ctx, s.reqTTL)
				docs, r, err := s.query(rctx, q, 0)
				cancel()
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					reportError(onError, err)
					if !sleepCtx(ctx, retryInterval) {
						return
					}
					continue
				}
				onChange(docs)
				rev = r
			}
			rev = s.followQuery(ctx, q, prefix, rev, onChange, onError)
			if ctx.Err() == nil && !sleepCtx(ctx, retryInterval) {
				return
			}
		}
	})
}

func (s *Store) followQuery(ctx context.Context, q docstore.Query, prefix string, rev int64,
	onChange docstore.QueryHandler, onError docstore.ErrorHandler) int64 {
	wctx, cancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	defer cancel()
	for resp := range s.cli.Watch(wctx, prefix, clientv3.WithPrefix(), clientv3.WithRev(rev+1)) {
		if resp.CompactRevision != 0 {
			reportError(onError, errCompacted)
			return 0
		}
		if err := resp.Err(); err != nil {
			reportError(onError, err)
			continue
		}
		if len(resp.Events) == 0 {
			continue
		}
		last := resp.Events[len(resp.Events)-1].Kv.ModRevision
		rctx, rcancel := context.WithTimeout(ctx, s.reqTTL)
		docs, _, err := s.query(rctx, q, last)
		rcancel()
		if err != nil {
			if ctx.Err() != nil {
				return rev
			}
			reportError(onError, err)
			continue
		}
		rev = last
		onChange(docs)
	}
	return rev
}
