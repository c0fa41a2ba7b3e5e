// analytics_test.go: tests for the statistics roll-ups
package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverallStatisticsEmptyStore(t *testing.T) {
	ds := setupTestDB(t)

	stats, err := ds.OverallStatistics()
	require.NoError(t, err)

	assert.Zero(t, stats.Days)
	assert.Zero(t, stats.Segments)
	assert.Zero(t, stats.TotalDuration)
	assert.Zero(t, stats.AverageDurationPerDay, "average is defined as 0 when there are no days")
}

func TestOverallStatistics(t *testing.T) {
	ds := setupTestDB(t)

	day1 := time.Date(2026, 2, 10, 9, 0, 0, 0, time.Local)
	day2 := time.Date(2026, 2, 11, 9, 0, 0, 0, time.Local)

	s1, err := ds.RecordFinishedSegment(day1, 900, "ref-1")
	require.NoError(t, err)
	s2, err := ds.RecordFinishedSegment(day1.Add(time.Hour), 600, "ref-2")
	require.NoError(t, err)
	s3, err := ds.RecordFinishedSegment(day2, 300, "ref-3")
	require.NoError(t, err)

	require.NoError(t, ds.ApplyTranscriptionResult(s1.ID, OutcomeCompleted("one")))
	require.NoError(t, ds.ApplyTranscriptionResult(s2.ID, OutcomeFailed("noise")))
	_ = s3 // stays pending

	stats, err := ds.OverallStatistics()
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Days)
	assert.Equal(t, 3, stats.Segments)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Equal(t, 1, stats.PendingCount)
	assert.InDelta(t, 1800.0, stats.TotalDuration, 0)
	assert.InDelta(t, 900.0, stats.AverageDurationPerDay, 0)
}

func TestTodayStatistics(t *testing.T) {
	ds := setupTestDB(t)
	now := time.Now()

	// Yesterday's segment must not show up in today's roll-up
	_, err := ds.RecordFinishedSegment(now.AddDate(0, 0, -1), 500, "ref-old")
	require.NoError(t, err)

	seg, err := ds.RecordFinishedSegment(now, 120, "ref-today")
	require.NoError(t, err)
	require.NoError(t, ds.ApplyTranscriptionResult(seg.ID, OutcomeCompleted("note")))

	stats, err := ds.TodayStatistics()
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Days)
	assert.Equal(t, 1, stats.Segments)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.InDelta(t, 120.0, stats.TotalDuration, 0)
	assert.InDelta(t, 120.0, stats.AverageDurationPerDay, 0)
}

func TestTodayStatisticsNoRecord(t *testing.T) {
	ds := setupTestDB(t)

	stats, err := ds.TodayStatistics()
	require.NoError(t, err)
	assert.Zero(t, stats.Days)
	assert.Zero(t, stats.Segments)
}
