// Package observability exports the research desk's Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/researchdesk/internal/engine"
)

var (
	snapshotPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "persistence",
		Name:      "last_snapshot_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent record snapshot replacement.",
	})
	snapshotSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "persistence",
		Name:      "snapshot_records",
		Help:      "Number of records in the snapshot at the last refresh.",
	})

	pacingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "engine",
		Name:      "pacing_baseline_percent",
		Help:      "Share of the quarter elapsed, in percent.",
	})
	teamCompositeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "engine",
		Name:      "team_composite_percent",
		Help:      "Team composite completion, in percent.",
	})
	memberCompositeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "engine",
		Name:      "member_composite_percent",
		Help:      "Composite completion per roster member, in percent.",
	}, []string{"member"})
	memberStandingGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "engine",
		Name:      "member_standing",
		Help:      "1 for the member's current pacing standing, 0 otherwise.",
	}, []string{"member", "standing"})
	orphanedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "engine",
		Name:      "orphaned_records",
		Help:      "In-quarter records naming a member outside the roster.",
	})
	lastRefreshGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "researchdesk",
		Subsystem: "poller",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful dashboard refresh.",
	})
	pollErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "researchdesk",
		Subsystem: "poller",
		Name:      "errors_total",
		Help:      "Failed refresh attempts grouped by stage.",
	}, []string{"stage"})
)

var standings = []engine.Standing{engine.StandingSeverelyLagging, engine.StandingLagging, engine.StandingOnPace}

func init() {
	prometheus.MustRegister(
		snapshotPersistGauge,
		snapshotSizeGauge,
		pacingGauge,
		teamCompositeGauge,
		memberCompositeGauge,
		memberStandingGauge,
		orphanedGauge,
		lastRefreshGauge,
		pollErrorCounter,
	)
}

// RecordSnapshotPersisted updates the persistence watermark gauge.
func RecordSnapshotPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	snapshotPersistGauge.Set(float64(ts.Unix()))
}

// RecordDashboard exports a freshly computed dashboard. Member series are
// reset so members dropped from the roster disappear.
func RecordDashboard(d engine.Dashboard, snapshotSize int, at time.Time) {
	pacingGauge.Set(float64(d.Pacing))
	teamCompositeGauge.Set(float64(d.Team.Composite))
	orphanedGauge.Set(float64(d.Orphaned))
	snapshotSizeGauge.Set(float64(snapshotSize))

	memberCompositeGauge.Reset()
	memberStandingGauge.Reset()
	for _, m := range d.Members {
		memberCompositeGauge.WithLabelValues(m.Member).Set(float64(m.Composite))
		for _, s := range standings {
			v := 0.0
			if m.Standing == s {
				v = 1
			}
			memberStandingGauge.WithLabelValues(m.Member, string(s)).Set(v)
		}
	}

	if !at.IsZero() {
		lastRefreshGauge.Set(float64(at.Unix()))
	}
}

// RecordPollError counts a failed refresh at the given stage ("load" or "compute").
func RecordPollError(stage string) {
	pollErrorCounter.WithLabelValues(stage).Inc()
}
