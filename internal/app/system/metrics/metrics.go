// internal/app/system/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "filescout"

// Turn kinds
const (
	KindMessage  = "message"
	KindCallback = "callback"
)

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"

	LoginAdmin  = "admin"
	LoginMember = "member"
	LoginFailed = "failed"

	LookupFound    = "found"
	LookupEmpty    = "empty"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// Inventory kinds
const (
	InventoryGroups        = "groups"
	InventoryAdmins        = "admins"
	InventoryMembers       = "members"
	InventoryBoundMembers  = "bound_members"
	InventoryAuthenticated = "authenticated_sessions"
)

// Metrics provides Prometheus metrics for the gateway.
// All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	// TurnsTotal counts handled turns by kind and outcome.
	TurnsTotal *prometheus.CounterVec

	// TurnDuration observes the wall time of one turn.
	TurnDuration prometheus.Histogram

	// LoginsTotal counts password checks by result: admin, member, failed.
	LoginsTotal *prometheus.CounterVec

	// DirectoryLookupsTotal counts folder lookups by outcome.
	DirectoryLookupsTotal *prometheus.CounterVec

	// DirectoryLatency observes folder lookup latency in seconds.
	DirectoryLatency prometheus.Histogram

	// BroadcastDeliveriesTotal counts per-recipient broadcast results:
	// sent, skipped (no chat binding), failed.
	BroadcastDeliveriesTotal *prometheus.CounterVec

	// SubflowsResetTotal counts admin sub-flows reset by the sweeper.
	SubflowsResetTotal prometheus.Counter

	// Inventory reports account and session totals by kind, refreshed on scrape.
	Inventory *prometheus.GaugeVec
}

// New creates and registers gateway metrics with reg. If reg is nil the
// metrics are created but not registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "turns",
			Name:      "total",
			Help:      "Conversation turns handled",
		}, []string{"kind", "outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "turns",
			Name:      "duration_seconds",
			Help:      "Time spent handling one conversation turn",
			Buckets:   prometheus.DefBuckets,
		}),
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Password verifications by result",
		}, []string{"result"}),
		DirectoryLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "lookups_total",
			Help:      "Folder lookups by outcome",
		}, []string{"outcome"}),
		DirectoryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "lookup_duration_seconds",
			Help:      "Folder lookup latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		BroadcastDeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "deliveries_total",
			Help:      "Broadcast deliveries by result",
		}, []string{"result"}),
		SubflowsResetTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "subflows_reset_total",
			Help:      "Stale admin sub-flows returned to the authenticated phase",
		}),
		Inventory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory",
			Help:      "Current number of groups, accounts and authenticated sessions",
		}, []string{"kind"}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.TurnsTotal,
			m.TurnDuration,
			m.LoginsTotal,
			m.DirectoryLookupsTotal,
			m.DirectoryLatency,
			m.BroadcastDeliveriesTotal,
			m.SubflowsResetTotal,
			m.Inventory,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				// Ignore AlreadyRegisteredError (restart re-registers).
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}

	return m
}

func (m *Metrics) RecordTurn(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(kind, outcome).Inc()
	m.TurnDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDirectoryLookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.DirectoryLookupsTotal.WithLabelValues(outcome).Inc()
	m.DirectoryLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordBroadcast(sent, skipped, failed int) {
	if m == nil {
		return
	}
	m.BroadcastDeliveriesTotal.WithLabelValues("sent").Add(float64(sent))
	m.BroadcastDeliveriesTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.BroadcastDeliveriesTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) RecordSubflowsReset(n int64) {
	if m == nil {
		return
	}
	m.SubflowsResetTotal.Add(float64(n))
}

func (m *Metrics) SetInventory(kind string, n int64) {
	if m == nil {
		return
	}
	m.Inventory.WithLabelValues(kind).Set(float64(n))
}
