// Package metrics exposes Prometheus counters and gauges for serve
// mode. All collectors are registered on the default registry via
// promauto; the serve command mounts promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_scans_total",
			Help: "Barcode scans by lookup outcome",
		},
		[]string{"result"},
	)

	ItemsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_items_consumed_total",
			Help: "Inventory items moved to a terminal status, by reason",
		},
		[]string{"reason"},
	)

	CheckoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_checkouts_total",
			Help: "Checkout transactions by source and outcome",
		},
		[]string{"source", "result"},
	)

	SweepDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_sweep_deleted_total",
			Help: "Rows removed by the TTL sweep, by table",
		},
		[]string{"table"},
	)

	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_sync_cycles_total",
			Help: "Completed sync cycles by status",
		},
		[]string{"status"},
	)

	SyncPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_sync_pushed_total",
			Help: "Documents pushed to the remote store, by collection",
		},
		[]string{"collection"},
	)

	OfflineQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pantry_offline_queue_depth",
			Help: "Requests waiting in the offline replay queue",
		},
	)
)
