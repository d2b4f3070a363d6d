package dbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() *Collector {
	return &Collector{
		explainSampleRate: 100,
		maxExplains:       10,
		baselines:         make(map[int64]statementBaseline),
		explainCount:      make(map[string]int),
	}
}

func TestComputeDeltasFirstObservationSeedsBaseline(t *testing.T) {
	c := newTestCollector()

	deltas := c.ComputeDeltas([]StatementRow{
		{QueryID: 1, Database: "otel_demo", Query: "SELECT * FROM users WHERE id = 1", Calls: 10, TotalTimeMS: 50, Rows: 10},
	})

	// first cycle emits nothing
	assert.Empty(t, deltas)
}

func TestComputeDeltasEmitsDifference(t *testing.T) {
	c := newTestCollector()

	c.ComputeDeltas([]StatementRow{
		{QueryID: 1, Database: "otel_demo", Query: "SELECT * FROM users WHERE id = 1", Calls: 10, TotalTimeMS: 50, Rows: 10, SharedHit: 100, SharedRead: 5},
	})
	deltas := c.ComputeDeltas([]StatementRow{
		{QueryID: 1, Database: "otel_demo", Query: "SELECT * FROM users WHERE id = 1", Calls: 15, TotalTimeMS: 80, Rows: 15, SharedHit: 160, SharedRead: 7},
	})

	require.Len(t, deltas, 1)
	d := deltas[0]
	assert.Equal(t, int64(5), d.Calls)
	assert.InDelta(t, 30.0, d.TotalTimeMS, 0.001)
	assert.Equal(t, int64(5), d.Rows)
	assert.Equal(t, int64(60), d.SharedHit)
	assert.Equal(t, int64(2), d.SharedRead)
	assert.Equal(t, QuerySignature("SELECT * FROM users WHERE id = 1"), d.Signature)
}

func TestComputeDeltasSkipsUnchangedStatements(t *testing.T) {
	c := newTestCollector()

	rows := []StatementRow{
		{QueryID: 1, Query: "SELECT 1", Calls: 10, TotalTimeMS: 50},
	}
	c.ComputeDeltas(rows)
	deltas := c.ComputeDeltas(rows)

	assert.Empty(t, deltas)
}

func TestComputeDeltasRebaselinesAfterStatsReset(t *testing.T) {
	c := newTestCollector()

	c.ComputeDeltas([]StatementRow{
		{QueryID: 1, Query: "SELECT 1", Calls: 100, TotalTimeMS: 500},
	})
	// pg_stat_statements_reset happened, counters went backwards
	deltas := c.ComputeDeltas([]StatementRow{
		{QueryID: 1, Query: "SELECT 1", Calls: 3, TotalTimeMS: 9},
	})
	assert.Empty(t, deltas)

	// next cycle diffs against the new baseline
	deltas = c.ComputeDeltas([]StatementRow{
		{QueryID: 1, Query: "SELECT 1", Calls: 5, TotalTimeMS: 15},
	})
	require.Len(t, deltas, 1)
	assert.Equal(t, int64(2), deltas[0].Calls)
}

func TestCanExplain(t *testing.T) {
	assert.True(t, canExplain("SELECT 1"))
	assert.True(t, canExplain("  update users set name = 'x'"))
	assert.True(t, canExplain("INSERT INTO t VALUES (1)"))
	assert.True(t, canExplain("delete from t"))
	assert.False(t, canExplain("VACUUM ANALYZE users"))
	assert.False(t, canExplain("BEGIN"))
}
