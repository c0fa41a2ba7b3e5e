package journal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/datastore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// setupTestStore creates an in-memory SQLite-backed datastore.
func setupTestStore(t *testing.T) *datastore.SQLiteStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&datastore.DailyRecord{}, &datastore.TranscriptionSegment{}, &datastore.LocationVisit{})
	require.NoError(t, err)

	// goleak runs in TestMain; close the pool so database/sql goroutines
	// do not outlive the test.
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &datastore.SQLiteStore{DataStore: datastore.DataStore{DB: db}}
}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Capture.ClipPath = "clips"
	settings.Journal.Transcription.PollInterval = 3600
	settings.Journal.Transcription.BatchSize = 8
	settings.Journal.Transcription.MaxAttempts = 3
	settings.Location.Enabled = true
	return settings
}

// fakeTranscriber runs the configured function for every call and counts
// invocations.
type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	fn    func(audioRef string) (string, error)
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioRef string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(audioRef)
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCaptureSource struct {
	ch chan Recording
}

func (f *fakeCaptureSource) Recordings() <-chan Recording {
	return f.ch
}

func TestHandleRecordingGeneratesAudioRef(t *testing.T) {
	ds := setupTestStore(t)
	p := New(testSettings(), ds, &fakeTranscriber{}, nil)

	err := p.HandleRecording(Recording{Timestamp: time.Now(), Duration: 30})
	require.NoError(t, err)

	pending, err := ds.PendingSegments(0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, strings.HasPrefix(pending[0].AudioRef, "clips/"),
		"generated audio ref should live under the clip path, got %q", pending[0].AudioRef)
	assert.True(t, strings.HasSuffix(pending[0].AudioRef, ".wav"))
}

func TestHandleRecordingKeepsProvidedAudioRef(t *testing.T) {
	ds := setupTestStore(t)
	p := New(testSettings(), ds, &fakeTranscriber{}, nil)

	err := p.HandleRecording(Recording{
		Timestamp: time.Now(),
		Duration:  30,
		AudioRef:  "clips/2026-01-28/morning.wav",
	})
	require.NoError(t, err)

	pending, err := ds.PendingSegments(0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "clips/2026-01-28/morning.wav", pending[0].AudioRef)
}

func TestSweepCompletesSegments(t *testing.T) {
	ds := setupTestStore(t)
	tr := &fakeTranscriber{fn: func(string) (string, error) {
		return "went for a walk", nil
	}}
	p := New(testSettings(), ds, tr, nil)

	segment, err := ds.RecordFinishedSegment(time.Now(), 30, "clips/a.wav")
	require.NoError(t, err)

	require.NoError(t, p.Sweep(context.Background()))

	got, err := ds.GetSegment(segment.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusCompleted, got.Status)
	assert.Equal(t, "went for a walk", got.Transcript)
	assert.Empty(t, got.ErrorDetail)
}

func TestSweepLeavesSegmentPendingUntilAttemptsExhausted(t *testing.T) {
	ds := setupTestStore(t)
	tr := &fakeTranscriber{fn: func(string) (string, error) {
		return "", errors.New("engine unavailable")
	}}
	settings := testSettings()
	settings.Journal.Transcription.MaxAttempts = 2
	p := New(settings, ds, tr, nil)

	segment, err := ds.RecordFinishedSegment(time.Now(), 30, "clips/a.wav")
	require.NoError(t, err)

	// First attempt fails but stays within budget.
	require.NoError(t, p.Sweep(context.Background()))
	got, err := ds.GetSegment(segment.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusPending, got.Status)

	// Second attempt exhausts the budget and fails the segment.
	require.NoError(t, p.Sweep(context.Background()))
	got, err = ds.GetSegment(segment.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusFailed, got.Status)
	assert.Equal(t, "engine unavailable", got.ErrorDetail)
	assert.Empty(t, got.Transcript)
	assert.Equal(t, 2, tr.callCount())
}

func TestSweepRespectsBatchSize(t *testing.T) {
	ds := setupTestStore(t)
	tr := &fakeTranscriber{fn: func(string) (string, error) {
		return "entry", nil
	}}
	settings := testSettings()
	settings.Journal.Transcription.BatchSize = 2
	p := New(settings, ds, tr, nil)

	now := time.Now()
	for i := 0; i < 3; i++ {
		_, err := ds.RecordFinishedSegment(now.Add(time.Duration(i)*time.Minute), 30, "clips/a.wav")
		require.NoError(t, err)
	}

	require.NoError(t, p.Sweep(context.Background()))
	assert.Equal(t, 2, tr.callCount())

	pending, err := ds.PendingSegments(0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRetryAllFailedMakesSegmentsSweepableAgain(t *testing.T) {
	ds := setupTestStore(t)
	broken := true
	tr := &fakeTranscriber{fn: func(string) (string, error) {
		if broken {
			return "", errors.New("engine crashed")
		}
		return "recovered entry", nil
	}}
	settings := testSettings()
	settings.Journal.Transcription.MaxAttempts = 1
	p := New(settings, ds, tr, nil)

	segment, err := ds.RecordFinishedSegment(time.Now(), 30, "clips/a.wav")
	require.NoError(t, err)

	require.NoError(t, p.Sweep(context.Background()))
	got, err := ds.GetSegment(segment.ID)
	require.NoError(t, err)
	require.Equal(t, datastore.StatusFailed, got.Status)

	count, err := p.RetryAllFailed()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	broken = false
	require.NoError(t, p.Sweep(context.Background()))
	got, err = ds.GetSegment(segment.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusCompleted, got.Status)
	assert.Equal(t, "recovered entry", got.Transcript)
}

func TestHandleArrivalAndDeparture(t *testing.T) {
	ds := setupTestStore(t)
	p := New(testSettings(), ds, &fakeTranscriber{}, nil)

	arrival := time.Now().Add(-time.Hour)
	p.HandleArrival("Home", 60.17, 24.94, arrival)

	open, err := ds.CurrentOpenVisit()
	require.NoError(t, err)
	assert.Equal(t, "Home", open.PlaceLabel)

	p.HandleDeparture(time.Now())

	_, err = ds.CurrentOpenVisit()
	assert.Error(t, err, "no visit should remain open after departure")
}

func TestHandleDepartureWithoutOpenVisit(t *testing.T) {
	ds := setupTestStore(t)
	p := New(testSettings(), ds, &fakeTranscriber{}, nil)

	// Must not panic or create anything.
	p.HandleDeparture(time.Now())

	visits, err := ds.VisitsInRange(time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestStartConsumesCaptureSource(t *testing.T) {
	ds := setupTestStore(t)
	p := New(testSettings(), ds, &fakeTranscriber{fn: func(string) (string, error) {
		return "", errors.New("not transcribing in this test")
	}}, nil)

	source := &fakeCaptureSource{ch: make(chan Recording, 1)}
	p.Start(context.Background(), source)
	defer p.Stop()

	source.ch <- Recording{Timestamp: time.Now(), Duration: 30, AudioRef: "clips/live.wav"}

	require.Eventually(t, func() bool {
		pending, err := ds.PendingSegments(0)
		return err == nil && len(pending) == 1
	}, 2*time.Second, 10*time.Millisecond, "recording from the capture source should be stored")
}
