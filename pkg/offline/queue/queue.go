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

// Package queue buffers user actions in durable storage while the remote
// store is unreachable and replays them, in order, once it is reachable again
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/trickstercache/reelsync/pkg/cache"
	"github.com/trickstercache/reelsync/pkg/events"
	"github.com/trickstercache/reelsync/pkg/observability/logging"
	"github.com/trickstercache/reelsync/pkg/observability/logging/logger"
	"github.com/trickstercache/reelsync/pkg/observability/metrics"
	"github.com/trickstercache/reelsync/pkg/observability/tracing"
	"github.com/trickstercache/reelsync/pkg/offline/actions"
	"github.com/trickstercache/reelsync/pkg/offline/queue/options"

	"go.opentelemetry.io/otel/attribute"
)

// DataKey is the durable key holding the pending action list
const DataKey = "offline_actions"

// ErrClosed is returned by Enqueue after Close
var ErrClosed = errors.New("offline queue is closed")

// Executor performs the remote write for an action. Implementations must be
// idempotent, since an action may be replayed after a crash.
type Executor interface {
	Execute(ctx context.Context, a actions.Action) error
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, a actions.Action) error

// Execute calls f(ctx, a)
func (f ExecutorFunc) Execute(ctx context.Context, a actions.Action) error {
	return f(ctx, a)
}

// Connectivity reports whether the remote store is believed reachable
type Connectivity interface {
	IsOnline() bool
}

// SyncResult summarizes a drain pass
type SyncResult struct {
	Attempted int
	Committed int
	Dropped   int
	Remaining int
}

// Queue is the offline action queue
type Queue struct {
	client cache.Client
	exec   Executor
	conn   Connectivity
	bus    *events.Bus
	opts   *options.Options
	tracer *tracing.Tracer
	now    func() time.Time
	// committed runs for every committed action once its drain pass ends
	committed func(actions.Action)

	mtx      sync.Mutex
	list     []actions.Action
	lastSync time.Time
	closed   bool

	drainMtx sync.Mutex
}

// Option configures a Queue
type Option func(*Queue)

// WithClock replaces the Queue's time source
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// WithTracer records a span for every drain pass and replay attempt
func WithTracer(tr *tracing.Tracer) Option {
	return func(q *Queue) {
		q.tracer = tr
	}
}

// WithCommitHook calls f for each committed action after the drain pass that
// committed it has released the queue, in commit order
func WithCommitHook(f func(actions.Action)) Option {
	return func(q *Queue) {
		q.committed = f
	}
}

// New returns an empty Queue. Call Load to restore persisted actions.
func New(client cache.Client, exec Executor, conn Connectivity, bus *events.Bus,
	opts *options.Options, o ...Option) *Queue {
	if opts == nil {
		opts = options.New()
	}
	q := &Queue{
		client: client,
		exec:   exec,
		conn:   conn,
		bus:    bus,
		opts:   opts,
		now:    time.Now,
	}
	for _, f := range o {
		f(q)
	}
	return q
}

// Load replaces the in-memory list with the persisted one. Entries that
// cannot be decoded are skipped; an unreadable list leaves the queue empty.
func (q *Queue) Load() {
	b, _, err := q.client.Retrieve(DataKey)
	var list []actions.Action
	switch {
	case errors.Is(err, cache.ErrKNF):
	case err != nil:
		logger.Warn("offline queue load failed", logging.Pairs{"detail": err.Error()})
	default:
		list = decodeList(b)
	}
	q.mtx.Lock()
	q.list = list
	metrics.QueuePending.Set(float64(len(list)))
	q.mtx.Unlock()
	logger.Debug("offline queue loaded", logging.Pairs{"pending": len(list)})
}

func decodeList(b []byte) []actions.Action {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		logger.Warn("offline queue corrupt, starting empty",
			logging.Pairs{"detail": err.Error()})
		return nil
	}
	list := make([]actions.Action, 0, len(raw))
	for i, r := range raw {
		var a actions.Action
		if err := json.Unmarshal(r, &a); err != nil {
			logger.Warn("skipping unreadable offline action",
				logging.Pairs{"index": i, "detail": err.Error()})
			continue
		}
		list = append(list, a)
	}
	return list
}

// Enqueue validates p, appends it as a new action, persists the list and,
// when online, drains the queue before returning. Replay failures are not
// returned; they are reflected in PendingCount and the SyncComplete event.
func (q *Queue) Enqueue(ctx context.Context, p actions.Payload) (actions.Action, error) {
	a, err := actions.New(p, q.now())
	if err != nil {
		return actions.Action{}, err
	}
	return q.EnqueueAction(ctx, a)
}

// EnqueueAction is Enqueue for an action built by the caller, keeping its id
// and time. An action whose id is already pending is not added twice.
func (q *Queue) EnqueueAction(ctx context.Context, a actions.Action) (actions.Action, error) {
	if a.ID == "" || a.Payload == nil {
		return actions.Action{}, fmt.Errorf("%w: incomplete action", actions.ErrInvalidPayload)
	}
	if err := a.Payload.Validate(); err != nil {
		return actions.Action{}, err
	}
	q.mtx.Lock()
	if q.closed {
		q.mtx.Unlock()
		return actions.Action{}, ErrClosed
	}
	if !slices.ContainsFunc(q.list, func(e actions.Action) bool { return e.ID == a.ID }) {
		q.list = append(q.list, a)
		q.persist()
	}
	q.mtx.Unlock()
	logger.Debug("offline action enqueued",
		logging.Pairs{"id": a.ID, "kind": string(a.Kind())})
	if q.conn.IsOnline() {
		q.Drain(ctx)
	}
	return a, nil
}

// Drain attempts every pending action once, oldest first, and removes the
// ones that were committed or have exhausted their retries. It is a no-op
// while offline or empty. Concurrent calls run one after another.
func (q *Queue) Drain(ctx context.Context) SyncResult {
	res, committed := q.drain(ctx)
	if q.committed != nil {
		for _, a := range committed {
			q.committed(a)
		}
	}
	if res.Attempted > 0 && q.bus != nil {
		q.bus.Emit(events.SyncComplete{
			Count:     res.Committed + res.Dropped,
			Committed: res.Committed,
			Dropped:   res.Dropped,
			Remaining: res.Remaining,
		})
	}
	return res
}

func (q *Queue) drain(ctx context.Context) (SyncResult, []actions.Action) {
	q.drainMtx.Lock()
	defer q.drainMtx.Unlock()

	q.mtx.Lock()
	if q.closed || len(q.list) == 0 || !q.conn.IsOnline() {
		res := SyncResult{Remaining: len(q.list)}
		q.mtx.Unlock()
		return res, nil
	}
	batch := slices.Clone(q.list)
	q.mtx.Unlock()

	ctx, span := tracing.NewChildSpan(ctx, q.tracer, "queue.drain",
		attribute.Int("pending", len(batch)))
	defer span.End()
	start := time.Now()

	var res SyncResult
	var committed []actions.Action
	resolved := make(map[string]struct{}, len(batch))
	for _, a := range batch {
		if ctx.Err() != nil || !q.conn.IsOnline() {
			logger.Info("offline queue drain interrupted",
				logging.Pairs{"attempted": res.Attempted, "pending": len(batch)})
			break
		}
		res.Attempted++
		err := q.attempt(ctx, a)
		if err == nil {
			res.Committed++
			resolved[a.ID] = struct{}{}
			committed = append(committed, a)
			metrics.QueueAttempts.WithLabelValues(string(a.Kind()), "committed").Inc()
			continue
		}
		if ctx.Err() != nil {
			// cancelled by the caller, not a failed write
			res.Attempted--
			break
		}
		retries, ok := q.recordFailure(a)
		if !ok {
			logger.Debug("offline action cleared during replay",
				logging.Pairs{"id": a.ID, "kind": string(a.Kind())})
			continue
		}
		if retries >= q.opts.MaxRetries {
			res.Dropped++
			resolved[a.ID] = struct{}{}
			metrics.QueueAttempts.WithLabelValues(string(a.Kind()), "dropped").Inc()
			logger.Warn("offline action dropped after exhausting retries",
				logging.Pairs{"id": a.ID, "kind": string(a.Kind()),
					"retries": retries, "detail": err.Error()})
			continue
		}
		metrics.QueueAttempts.WithLabelValues(string(a.Kind()), "failed").Inc()
		logger.Debug("offline action replay failed",
			logging.Pairs{"id": a.ID, "kind": string(a.Kind()),
				"retries": retries, "detail": err.Error()})
	}

	q.mtx.Lock()
	if len(resolved) > 0 {
		q.list = slices.DeleteFunc(q.list, func(a actions.Action) bool {
			_, ok := resolved[a.ID]
			return ok
		})
		q.persist()
	}
	if res.Committed > 0 {
		q.lastSync = q.now()
	}
	res.Remaining = len(q.list)
	q.mtx.Unlock()

	metrics.QueueDrainDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("committed", res.Committed),
		attribute.Int("dropped", res.Dropped),
		attribute.Int("remaining", res.Remaining),
	)
	if res.Attempted > 0 {
		logger.Info("offline queue drained", logging.Pairs{
			"committed": res.Committed, "dropped": res.Dropped, "remaining": res.Remaining,
		})
	}
	return res, committed
}

func (q *Queue) attempt(ctx context.Context, a actions.Action) error {
	ctx, cancel := context.WithTimeout(ctx, q.opts.AttemptTimeout)
	defer cancel()
	ctx, span := tracing.NewChildSpan(ctx, q.tracer, "queue.attempt",
		attribute.String("action.id", a.ID),
		attribute.String("action.kind", string(a.Kind())),
		attribute.Int("action.retries", a.RetryCount))
	defer span.End()
	err := q.exec.Execute(ctx, a)
	tracing.SetSpanError(span, err)
	return err
}

// recordFailure bumps the retry count of a in the live list and persists it,
// returning the new count. ok is false when a was cleared while the attempt
// was running.
func (q *Queue) recordFailure(a actions.Action) (retries int, ok bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	i := slices.IndexFunc(q.list, func(e actions.Action) bool { return e.ID == a.ID })
	if i < 0 {
		return 0, false
	}
	q.list[i].RetryCount++
	q.persist()
	return q.list[i].RetryCount, true
}

// RetryFailed drains the queue when online
func (q *Queue) RetryFailed(ctx context.Context) SyncResult {
	if !q.conn.IsOnline() {
		return SyncResult{Remaining: q.PendingCount()}
	}
	return q.Drain(ctx)
}

// PendingCount returns the number of actions awaiting replay
func (q *Queue) PendingCount() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.list)
}

// Pending returns a copy of the actions awaiting replay, oldest first
func (q *Queue) Pending() []actions.Action {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return slices.Clone(q.list)
}

// LastSyncTime returns when a drain pass last committed an action, or the
// zero time if none has since the process started
func (q *Queue) LastSyncTime() time.Time {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.lastSync
}

// Clear discards every pending action and removes the persisted list
func (q *Queue) Clear() {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	q.list = nil
	metrics.QueuePending.Set(0)
	if err := q.client.Remove(DataKey); err != nil {
		logger.Warn("offline queue clear failed", logging.Pairs{"detail": err.Error()})
	}
}

// Close rejects further Enqueue calls and waits for a running drain to finish.
// Pending actions stay persisted for the next Load.
func (q *Queue) Close() error {
	q.mtx.Lock()
	q.closed = true
	q.mtx.Unlock()
	q.drainMtx.Lock()
	q.drainMtx.Unlock()
	return nil
}

// persist must be called with mtx held
func (q *Queue) persist() {
	metrics.QueuePending.Set(float64(len(q.list)))
	list := q.list
	if list == nil {
		list = []actions.Action{}
	}
	b, err := json.Marshal(list)
	if err == nil {
		err = q.client.Store(DataKey, b)
	}
	if err != nil {
		logger.Warn("offline queue persist failed", logging.Pairs{"detail": err.Error()})
	}
}
