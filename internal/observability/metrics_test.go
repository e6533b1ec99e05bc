package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/researchdesk/internal/engine"
)

func TestRecordDashboard(t *testing.T) {
	at := time.Date(2026, 2, 15, 1, 0, 0, 0, time.UTC)
	d := engine.Dashboard{
		Pacing: 51,
		Members: []engine.MemberProgress{
			{Member: "peidong", Composite: 100, Standing: engine.StandingOnPace},
			{Member: "xiaoxi", Composite: 0, Standing: engine.StandingSeverelyLagging, Lowest: true},
		},
		Team:     engine.TeamSummary{Composite: 50, Standing: engine.StandingLagging},
		Orphaned: 2,
	}

	RecordDashboard(d, 17, at)

	require.Equal(t, 51.0, testutil.ToFloat64(pacingGauge))
	require.Equal(t, 50.0, testutil.ToFloat64(teamCompositeGauge))
	require.Equal(t, 2.0, testutil.ToFloat64(orphanedGauge))
	require.Equal(t, 17.0, testutil.ToFloat64(snapshotSizeGauge))
	require.Equal(t, float64(at.Unix()), testutil.ToFloat64(lastRefreshGauge))
	require.Equal(t, 100.0, testutil.ToFloat64(memberCompositeGauge.WithLabelValues("peidong")))
	require.Equal(t, 1.0, testutil.ToFloat64(memberStandingGauge.WithLabelValues("xiaoxi", "severely_lagging")))
	require.Equal(t, 0.0, testutil.ToFloat64(memberStandingGauge.WithLabelValues("xiaoxi", "on_pace")))

	// A later refresh without xiaoxi drops the stale series.
	d.Members = d.Members[:1]
	RecordDashboard(d, 17, at)
	require.Equal(t, 1, testutil.CollectAndCount(memberCompositeGauge))
	require.Equal(t, 3, testutil.CollectAndCount(memberStandingGauge))
}

func TestRecordSnapshotPersistedIgnoresZero(t *testing.T) {
	ts := time.Unix(1770800000, 0)
	RecordSnapshotPersisted(ts)
	RecordSnapshotPersisted(time.Time{})
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(snapshotPersistGauge))
}

func TestRecordPollError(t *testing.T) {
	before := testutil.ToFloat64(pollErrorCounter.WithLabelValues("load"))
	RecordPollError("load")
	require.Equal(t, before+1, testutil.ToFloat64(pollErrorCounter.WithLabelValues("load")))
}
