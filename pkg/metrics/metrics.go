package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Цикл Runner.
var (
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_polls_total",
			Help: "Number of poll calls by outcome",
		},
		[]string{"result"}, // item|empty|error
	)
	ItemsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_items_processed_total",
			Help: "Number of items passed through the processor chain",
		},
		[]string{"result"}, // success|failure
	)
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_commits_total",
			Help: "Number of offset commits by outcome",
		},
		[]string{"result"}, // ok|error
	)
	ProcessDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runner_process_duration_seconds",
			Help:    "Time spent in the processor chain per item",
			Buckets: prometheus.DefBuckets,
		},
	)
	ActiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runner_active_subscriptions",
			Help: "Number of subscriptions currently held",
		},
	)
)

// Повторы и failover.
var (
	ProcessRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runner_process_retries_total",
			Help: "Number of scheduled retry attempts",
		},
	)
	FailoverTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_failover_total",
			Help: "Number of failover invocations by outcome",
		},
		[]string{"result"}, // handled|failed
	)
)

// Kafka-адаптер и архив.
var (
	KafkaMessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Number of messages fetched from Kafka",
		},
		[]string{"topic"},
	)
	KafkaMessagesParked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_parked_total",
			Help: "Number of messages written to the parking topic",
		},
		[]string{"topic"},
	)
	ArchiveOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_operations_total",
			Help: "Archive store operations",
		},
		[]string{"op"}, // stored|duplicate|invalid
	)
)

// Кэш результатов архивации.
var (
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations",
		},
		[]string{"op"}, // hit|miss|evicted|expired
	)
	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Number of items currently in cache",
		},
	)
)

var registerOnce sync.Once

// MustRegister регистрирует коллекторы в default registry. Повторный вызов ничего не делает.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PollsTotal, ItemsProcessed, CommitsTotal, ProcessDuration, ActiveSubscriptions,
			ProcessRetries, FailoverTotal,
			KafkaMessagesConsumed, KafkaMessagesParked, ArchiveOps,
			CacheOps, CacheSize,
		)
	})
}
