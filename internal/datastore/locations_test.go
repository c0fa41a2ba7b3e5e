package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginAndCloseVisit(t *testing.T) {
	ds := setupTestDB(t)
	arrival := time.Now().Add(-time.Hour)

	visit, err := ds.BeginVisit("Harbor cafe", 60.1699, 24.9384, arrival)
	require.NoError(t, err)
	require.NotZero(t, visit.ID)
	assert.True(t, visit.IsOpen())

	open, err := ds.CurrentOpenVisit()
	require.NoError(t, err)
	assert.Equal(t, visit.ID, open.ID)

	departure := time.Now()
	require.NoError(t, ds.MarkDeparture(visit.ID, departure))

	_, err = ds.CurrentOpenVisit()
	require.Error(t, err, "no open visit should remain after departure")
}

func TestBeginVisitClosesPreviousOpenVisit(t *testing.T) {
	ds := setupTestDB(t)
	now := time.Now()

	first, err := ds.BeginVisit("Home", 60.17, 24.94, now.Add(-2*time.Hour))
	require.NoError(t, err)

	second, err := ds.BeginVisit("Library", 60.18, 24.95, now.Add(-time.Hour))
	require.NoError(t, err)

	open, err := ds.CurrentOpenVisit()
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)

	var stored LocationVisit
	require.NoError(t, ds.DB.First(&stored, first.ID).Error)
	require.NotNil(t, stored.Departure)
	assert.Equal(t, now.Add(-time.Hour).Unix(), stored.Departure.Unix())
}

func TestMarkDepartureValidation(t *testing.T) {
	ds := setupTestDB(t)
	now := time.Now()

	visit, err := ds.BeginVisit("Park", 60.2, 24.9, now)
	require.NoError(t, err)

	// Departure must not precede arrival
	err = ds.MarkDeparture(visit.ID, now.Add(-time.Minute))
	require.Error(t, err)

	require.NoError(t, ds.MarkDeparture(visit.ID, now.Add(time.Minute)))

	// Closed visits are immutable
	err = ds.MarkDeparture(visit.ID, now.Add(2*time.Minute))
	require.Error(t, err)

	err = ds.MarkDeparture(9999, now)
	require.Error(t, err)
}

func TestVisitsInRange(t *testing.T) {
	ds := setupTestDB(t)
	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.Local)

	morning, err := ds.BeginVisit("Office", 60.17, 24.93, base)
	require.NoError(t, err)
	require.NoError(t, ds.MarkDeparture(morning.ID, base.Add(4*time.Hour)))

	evening, err := ds.BeginVisit("Gym", 60.16, 24.92, base.Add(9*time.Hour))
	require.NoError(t, err)
	require.NoError(t, ds.MarkDeparture(evening.ID, base.Add(11*time.Hour)))

	visits, err := ds.VisitsInRange(base.Add(2*time.Hour), base.Add(10*time.Hour))
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, morning.ID, visits[0].ID)
	assert.Equal(t, evening.ID, visits[1].ID)

	none, err := ds.VisitsInRange(base.Add(5*time.Hour), base.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestVisitsOverlappingJoinsSegmentsByTime(t *testing.T) {
	ds := setupTestDB(t)
	base := time.Now().Add(-6 * time.Hour)

	visit, err := ds.BeginVisit("Studio", 60.19, 24.96, base)
	require.NoError(t, err)
	require.NoError(t, ds.MarkDeparture(visit.ID, base.Add(2*time.Hour)))

	// A segment recorded during the stay and one after it
	during, err := ds.RecordFinishedSegment(base.Add(time.Hour), 30, "ref-during")
	require.NoError(t, err)
	after, err := ds.RecordFinishedSegment(base.Add(3*time.Hour), 30, "ref-after")
	require.NoError(t, err)

	matches, err := ds.VisitsOverlapping(during.Timestamp)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, visit.ID, matches[0].ID)

	matches, err = ds.VisitsOverlapping(after.Timestamp)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVisitsOverlappingOngoingVisit(t *testing.T) {
	ds := setupTestDB(t)
	arrival := time.Now().Add(-time.Hour)

	visit, err := ds.BeginVisit("Cabin", 61.0, 25.0, arrival)
	require.NoError(t, err)

	matches, err := ds.VisitsOverlapping(time.Now().Add(-10 * time.Minute))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, visit.ID, matches[0].ID)
}
