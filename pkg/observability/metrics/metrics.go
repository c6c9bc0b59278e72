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

// Package metrics implements prometheus metrics and exposes the metrics HTTP handler
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricNamespace       = "reelsync"
	buildSubsystem        = "build"
	cacheSubsystem        = "cache"
	snapshotSubsystem     = "snapshot"
	queueSubsystem        = "queue"
	connectivitySubsystem = "connectivity"
	eventsSubsystem       = "events"
	realtimeSubsystem     = "realtime"
	perfSubsystem         = "perf"
	analyticsSubsystem    = "analytics"
)

// Default histogram buckets, in seconds
var defaultBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// BuildInfo is a Gauge representing the binary build information of the running instance
var BuildInfo *prometheus.GaugeVec

// CacheObjectOperations is a Counter of operations (in # of objects) performed on a cache
var CacheObjectOperations *prometheus.CounterVec

// CacheByteOperations is a Counter of operations (in # of bytes) performed on a cache
var CacheByteOperations *prometheus.CounterVec

// CacheEvents is a Counter of notable events (errors, expirations) observed on a cache
var CacheEvents *prometheus.CounterVec

// CacheObjects is a Gauge representing the number of entries held in a cache's memory tier
var CacheObjects *prometheus.GaugeVec

// SnapshotEntries is a Gauge of the number of records held in each offline snapshot collection
var SnapshotEntries *prometheus.GaugeVec

// QueuePending is a Gauge of offline actions awaiting replay
var QueuePending prometheus.Gauge

// QueueAttempts is a Counter of replay attempts by action kind and outcome
var QueueAttempts *prometheus.CounterVec

// QueueDrainDuration is a Histogram of the time taken by a full drain pass
var QueueDrainDuration prometheus.Histogram

// ConnectivityOnline is a Gauge set to 1 while online and 0 while offline
var ConnectivityOnline prometheus.Gauge

// ConnectivityTransitions is a Counter of connectivity transitions by direction
var ConnectivityTransitions *prometheus.CounterVec

// EventsEmitted is a Counter of events emitted on the local event bus
var EventsEmitted *prometheus.CounterVec

// EventHandlerPanics is a Counter of event handlers that panicked during emission
var EventHandlerPanics *prometheus.CounterVec

// RealtimeSubscriptions is a Gauge of open remote listeners by topic type
var RealtimeSubscriptions *prometheus.GaugeVec

// RealtimeWrites is a Counter of remote writes by operation and status
var RealtimeWrites *prometheus.CounterVec

// RealtimeListenerErrors is a Counter of errors reported by remote listeners
var RealtimeListenerErrors *prometheus.CounterVec

// PerfTimerDuration is a Histogram of durations recorded by the performance tracker
var PerfTimerDuration *prometheus.HistogramVec

// AnalyticsEvents is a Counter of engagement events recorded by type
var AnalyticsEvents *prometheus.CounterVec

func init() {
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: buildSubsystem,
			Name:      "info",
			Help: "A metric with a constant '1' value labeled by version, " +
				"revision, and goversion from which reelsync was built.",
		},
		[]string{"goversion", "revision", "version"},
	)

	CacheObjectOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "operation_objects_total",
			Help:      "Count (in # of objects) of operations performed on a cache.",
		},
		[]string{"cache_name", "provider", "operation", "status"},
	)

	CacheByteOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "operation_bytes_total",
			Help:      "Count (in bytes) of operations performed on a cache.",
		},
		[]string{"cache_name", "provider", "operation", "status"},
	)

	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "events_total",
			Help:      "Count of events performed on a cache.",
		},
		[]string{"cache_name", "provider", "event", "reason"},
	)

	CacheObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "usage_objects",
			Help:      "Number of entries held in the memory tier of a cache.",
		},
		[]string{"cache_name", "provider"},
	)

	SnapshotEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: snapshotSubsystem,
			Name:      "entries",
			Help:      "Number of records held in each offline snapshot collection.",
		},
		[]string{"collection"},
	)

	QueuePending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: queueSubsystem,
			Name:      "pending_actions",
			Help:      "Number of offline actions awaiting replay.",
		},
	)

	QueueAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: queueSubsystem,
			Name:      "attempts_total",
			Help:      "Count of offline action replay attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	QueueDrainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: queueSubsystem,
			Name:      "drain_duration_seconds",
			Help:      "Time required in seconds to complete a drain pass.",
			Buckets:   defaultBuckets,
		},
	)

	ConnectivityOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: connectivitySubsystem,
			Name:      "online",
			Help:      "1 while the monitor considers the process online, otherwise 0.",
		},
	)

	ConnectivityTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: connectivitySubsystem,
			Name:      "transitions_total",
			Help:      "Count of connectivity transitions by direction.",
		},
		[]string{"direction"},
	)

	EventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: eventsSubsystem,
			Name:      "emitted_total",
			Help:      "Count of events emitted on the local event bus.",
		},
		[]string{"event"},
	)

	EventHandlerPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: eventsSubsystem,
			Name:      "handler_panics_total",
			Help:      "Count of event handlers that panicked during an emission.",
		},
		[]string{"event"},
	)

	RealtimeSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: realtimeSubsystem,
			Name:      "subscriptions",
			Help:      "Number of open remote listeners by topic type.",
		},
		[]string{"topic_type"},
	)

	RealtimeWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: realtimeSubsystem,
			Name:      "writes_total",
			Help:      "Count of remote writes by operation and status.",
		},
		[]string{"operation", "status"},
	)

	RealtimeListenerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: realtimeSubsystem,
			Name:      "listener_errors_total",
			Help:      "Count of errors reported by remote listeners by topic type.",
		},
		[]string{"topic_type"},
	)

	PerfTimerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: perfSubsystem,
			Name:      "timer_duration_seconds",
			Help:      "Durations recorded by the performance tracker, by operation.",
			Buckets:   defaultBuckets,
		},
		[]string{"operation"},
	)

	AnalyticsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: analyticsSubsystem,
			Name:      "events_total",
			Help:      "Count of engagement events recorded by type.",
		},
		[]string{"type"},
	)

	prometheus.MustRegister(
		BuildInfo,
		CacheObjectOperations,
		CacheByteOperations,
		CacheEvents,
		CacheObjects,
		SnapshotEntries,
		QueuePending,
		QueueAttempts,
		QueueDrainDuration,
		ConnectivityOnline,
		ConnectivityTransitions,
		EventsEmitted,
		EventHandlerPanics,
		RealtimeSubscriptions,
		RealtimeWrites,
		RealtimeListenerErrors,
		PerfTimerDuration,
		AnalyticsEvents,
	)
}

// Handler returns the http handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
