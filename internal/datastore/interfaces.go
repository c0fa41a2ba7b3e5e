// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"sync"
	"time"

	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/errors"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// operations of the daily record store.
type Interface interface {
	Open() error
	Close() error

	// Daily records and segments
	FindOrCreateDailyRecord(t time.Time) (*DailyRecord, error)
	DailyRecordFor(t time.Time) (*DailyRecord, error)
	RecordFinishedSegment(timestamp time.Time, duration float64, audioRef string) (*TranscriptionSegment, error)
	RecordFinishedSegments(recordings []FinishedRecording) ([]TranscriptionSegment, error)
	ApplyTranscriptionResult(segmentID uint, outcome TranscriptionOutcome) error
	GetSegment(segmentID uint) (TranscriptionSegment, error)
	PendingSegments(limit int) ([]TranscriptionSegment, error)
	FailedSegments() ([]TranscriptionSegment, error)
	HistoryInRange(start, end time.Time) ([]DailyRecord, error)
	ResetAllFailed() (int, error)

	// Roll-up statistics
	TodayStatistics() (Statistics, error)
	OverallStatistics() (Statistics, error)

	// Location visits
	BeginVisit(placeLabel string, latitude, longitude float64, arrival time.Time) (*LocationVisit, error)
	MarkDeparture(visitID uint, departure time.Time) error
	CurrentOpenVisit() (*LocationVisit, error)
	VisitsInRange(start, end time.Time) ([]LocationVisit, error)
	VisitsOverlapping(ts time.Time) ([]LocationVisit, error)
}

// TranscriptionOutcome is the result delivered by the transcription
// collaborator: either a completed transcript or a failure detail.
type TranscriptionOutcome struct {
	status      SegmentStatus
	transcript  string
	errorDetail string
}

// OutcomeCompleted builds a successful transcription outcome. An empty
// transcript is accepted; the segment still counts as completed.
func OutcomeCompleted(transcript string) TranscriptionOutcome {
	return TranscriptionOutcome{status: StatusCompleted, transcript: transcript}
}

// OutcomeFailed builds a failed transcription outcome. The detail is never
// stored empty so the failed state always carries a reason.
func OutcomeFailed(detail string) TranscriptionOutcome {
	if detail == "" {
		detail = "unknown transcription error"
	}
	return TranscriptionOutcome{status: StatusFailed, errorDetail: detail}
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance

	// writeMu serializes all mutating operations. Find-or-create for the
	// same day must never run twice concurrently, or two records for one
	// date could be created.
	writeMu sync.Mutex

	// Cached today record, invalidated by comparing its day key to the
	// day key of the next lookup. Holds only the row ID so stale segment
	// lists are never served from the cache.
	cachedTodayID  uint
	cachedTodayKey string
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// FindOrCreateDailyRecord normalizes t to its calendar day and returns the
// daily record for that day, creating and persisting one if absent. Safe to
// call repeatedly within the same day; every call returns the same logical
// record.
func (ds *DataStore) FindOrCreateDailyRecord(t time.Time) (*DailyRecord, error) {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	var record *DailyRecord
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = ds.findOrCreateLocked(tx, t)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// findOrCreateLocked resolves the daily record for t inside tx. Callers must
// hold writeMu.
func (ds *DataStore) findOrCreateLocked(tx *gorm.DB, t time.Time) (*DailyRecord, error) {
	key := DateKey(t)

	// Today cache: only trusted while the cached day key still is "today"
	// for the requested instant.
	if ds.cachedTodayID != 0 && ds.cachedTodayKey == key {
		record, err := loadDailyRecord(tx, ds.cachedTodayID)
		if err == nil {
			return record, nil
		}
		// Cached row vanished (e.g. external reset); fall through to lookup.
		ds.cachedTodayID = 0
	}

	records, err := dailyRecordsForDate(tx, key)
	if err != nil {
		return nil, dbError(err, "find_daily_record", "", "date", key)
	}

	switch len(records) {
	case 0:
		record := &DailyRecord{Date: key}
		if err := tx.Create(record).Error; err != nil {
			return nil, dbError(err, "create_daily_record", errors.PriorityHigh,
				"date", key)
		}
		ds.rememberToday(record)
		return record, nil
	case 1:
		ds.rememberToday(&records[0])
		return &records[0], nil
	default:
		// Duplicate dates should be impossible under the writer lock. The
		// earliest-created record is canonical; the rest are reported, not
		// merged.
		GetLogger().Error("duplicate daily records for one date",
			"date", key,
			"count", len(records),
			"error", consistencyError("daily_record", key, len(records)))
		ds.rememberToday(&records[0])
		return &records[0], nil
	}
}

// rememberToday refreshes the today cache when the record is for the current day.
func (ds *DataStore) rememberToday(record *DailyRecord) {
	if record.Date == DateKey(time.Now()) {
		ds.cachedTodayID = record.ID
		ds.cachedTodayKey = record.Date
	}
}

// dailyRecordsForDate returns every record stored for a day key, earliest
// created first.
func dailyRecordsForDate(tx *gorm.DB, key string) ([]DailyRecord, error) {
	var records []DailyRecord
	err := tx.Preload("Segments", segmentInsertionOrder).
		Where("date = ?", key).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, err
}

// loadDailyRecord fetches a record by primary key with its segments in
// insertion order.
func loadDailyRecord(tx *gorm.DB, id uint) (*DailyRecord, error) {
	var record DailyRecord
	if err := tx.Preload("Segments", segmentInsertionOrder).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// segmentInsertionOrder preloads owned segments in insertion order.
func segmentInsertionOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// DailyRecordFor returns the daily record for the calendar day of t, or a
// not-found error when no segment has been recorded that day.
func (ds *DataStore) DailyRecordFor(t time.Time) (*DailyRecord, error) {
	key := DateKey(t)
	records, err := dailyRecordsForDate(ds.DB, key)
	if err != nil {
		return nil, dbError(err, "get_daily_record", "", "date", key)
	}
	if len(records) == 0 {
		return nil, notFoundError("daily_record", key)
	}
	return &records[0], nil
}

// RecordFinishedSegment builds a pending segment for a finished recording,
// attaches it to the day's record (creating the record if absent) and
// persists both in one transaction.
func (ds *DataStore) RecordFinishedSegment(timestamp time.Time, duration float64, audioRef string) (*TranscriptionSegment, error) {
	if duration <= 0 {
		return nil, validationError("segment duration must be greater than 0", "duration", duration)
	}

	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	var segment *TranscriptionSegment
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		record, err := ds.findOrCreateLocked(tx, timestamp)
		if err != nil {
			return err
		}

		seg := &TranscriptionSegment{
			OwnerDate: record.Date,
			Timestamp: timestamp,
			Duration:  duration,
			AudioRef:  audioRef,
			Status:    StatusPending,
		}
		if err := tx.Create(seg).Error; err != nil {
			return dbError(err, "create_segment", errors.PriorityHigh,
				"timestamp", timestamp,
				"audio_ref", audioRef)
		}

		// Segment count and updated_at change atomically from a reader's
		// perspective because both happen inside this transaction.
		if err := tx.Model(&DailyRecord{}).
			Where("id = ?", record.ID).
			Update("updated_at", time.Now()).Error; err != nil {
			return dbError(err, "touch_daily_record", "", "record_id", record.ID)
		}

		segment = seg
		return nil
	})
	if err != nil {
		return nil, err
	}

	GetLogger().Debug("recorded finished segment",
		"segment_id", segment.ID,
		"owner_date", segment.OwnerDate,
		"duration", segment.Duration)
	return segment, nil
}

// FinishedRecording is the input for a batch append of finished
// recordings.
type FinishedRecording struct {
	Timestamp time.Time
	Duration  float64
	AudioRef  string
}

// RecordFinishedSegments appends an ordered batch of finished recordings
// in one transaction. Each touched day record gets a single updated_at
// bump for the whole batch. A validation failure anywhere in the batch
// persists nothing.
func (ds *DataStore) RecordFinishedSegments(recordings []FinishedRecording) ([]TranscriptionSegment, error) {
	for i := range recordings {
		if recordings[i].Duration <= 0 {
			return nil, validationError("segment duration must be greater than 0",
				"duration", recordings[i].Duration)
		}
	}
	if len(recordings) == 0 {
		return nil, nil
	}

	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	var segments []TranscriptionSegment
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		touched := make(map[string]uint)

		for i := range recordings {
			rec := &recordings[i]
			record, err := ds.findOrCreateLocked(tx, rec.Timestamp)
			if err != nil {
				return err
			}
			touched[record.Date] = record.ID

			seg := TranscriptionSegment{
				OwnerDate: record.Date,
				Timestamp: rec.Timestamp,
				Duration:  rec.Duration,
				AudioRef:  rec.AudioRef,
				Status:    StatusPending,
			}
			if err := tx.Create(&seg).Error; err != nil {
				return dbError(err, "create_segment", errors.PriorityHigh,
					"timestamp", rec.Timestamp,
					"audio_ref", rec.AudioRef)
			}
			segments = append(segments, seg)
		}

		now := time.Now()
		for date, id := range touched {
			if err := tx.Model(&DailyRecord{}).
				Where("id = ?", id).
				Update("updated_at", now).Error; err != nil {
				return dbError(err, "touch_daily_record", "", "date", date)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	GetLogger().Debug("recorded finished segment batch",
		"count", len(segments))
	return segments, nil
}

// ApplyTranscriptionResult dispatches a transcription outcome to the segment
// and persists the new state. Repeat calls for the same segment are allowed
// and each fully overwrites the prior state.
func (ds *DataStore) ApplyTranscriptionResult(segmentID uint, outcome TranscriptionOutcome) error {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var segment TranscriptionSegment
		if err := tx.First(&segment, segmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("segment", segmentID)
			}
			return dbError(err, "load_segment", "", "segment_id", segmentID)
		}

		switch outcome.status {
		case StatusCompleted:
			segment.Complete(outcome.transcript)
		case StatusFailed:
			segment.Fail(outcome.errorDetail)
		default:
			return validationError("transcription outcome has no status", "outcome", outcome.status)
		}

		if err := tx.Save(&segment).Error; err != nil {
			return dbError(err, "save_segment", errors.PriorityHigh, "segment_id", segmentID)
		}
		return nil
	})
}

// GetSegment retrieves a single segment by ID.
func (ds *DataStore) GetSegment(segmentID uint) (TranscriptionSegment, error) {
	var segment TranscriptionSegment
	if err := ds.DB.First(&segment, segmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TranscriptionSegment{}, notFoundError("segment", segmentID)
		}
		return TranscriptionSegment{}, dbError(err, "get_segment", "", "segment_id", segmentID)
	}
	return segment, nil
}

// PendingSegments returns up to limit segments waiting for transcription,
// ascending by timestamp. limit <= 0 means no limit.
func (ds *DataStore) PendingSegments(limit int) ([]TranscriptionSegment, error) {
	query := ds.DB.Where("status = ?", StatusPending).Order("timestamp ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var segments []TranscriptionSegment
	if err := query.Find(&segments).Error; err != nil {
		return nil, dbError(err, "pending_segments", "")
	}
	return segments, nil
}

// FailedSegments returns every failed segment, ascending by timestamp.
func (ds *DataStore) FailedSegments() ([]TranscriptionSegment, error) {
	var segments []TranscriptionSegment
	err := ds.DB.Where("status = ?", StatusFailed).
		Order("timestamp ASC").
		Find(&segments).Error
	if err != nil {
		return nil, dbError(err, "failed_segments", "")
	}
	return segments, nil
}

// HistoryInRange returns the daily records whose date falls within
// [normalize(start), normalize(end)+1day), ascending by date, each with its
// segments preloaded in insertion order. Day keys sort lexicographically in
// chronological order, so the range is an inclusive string comparison on
// the end day.
func (ds *DataStore) HistoryInRange(start, end time.Time) ([]DailyRecord, error) {
	startKey := DateKey(start)
	endKey := DateKey(end)

	var records []DailyRecord
	err := ds.DB.Preload("Segments", segmentInsertionOrder).
		Where("date >= ? AND date <= ?", startKey, endKey).
		Order("date ASC").
		Find(&records).Error
	if err != nil {
		return nil, dbError(err, "history_in_range", "",
			"start", startKey,
			"end", endKey)
	}
	return records, nil
}

// ResetAllFailed moves every failed segment back to pending in a single
// commit and returns the number of segments reset.
func (ds *DataStore) ResetAllFailed() (int, error) {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	count := 0
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var segments []TranscriptionSegment
		if err := tx.Where("status = ?", StatusFailed).Find(&segments).Error; err != nil {
			return dbError(err, "load_failed_segments", "")
		}

		for i := range segments {
			segments[i].ResetForRetry()
			if err := tx.Save(&segments[i]).Error; err != nil {
				return dbError(err, "reset_segment", errors.PriorityHigh,
					"segment_id", segments[i].ID)
			}
		}

		count = len(segments)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if count > 0 {
		GetLogger().Info("reset failed segments for retry", "count", count)
	}
	return count, nil
}
