// internal/datastore/analytics.go
package datastore

import (
	"time"

	"github.com/mveikko/daybook-go/internal/errors"
	"gorm.io/gorm"
)

// Statistics contains roll-up numbers computed on read, never persisted.
type Statistics struct {
	Days                  int     // number of daily records in scope
	Segments              int     // total segments in scope
	PendingCount          int     // segments waiting for transcription
	CompletedCount        int     // segments with a transcript
	FailedCount           int     // segments whose transcription failed
	TotalDuration         float64 // seconds of recorded audio
	AverageDurationPerDay float64 // TotalDuration / Days, 0 when Days is 0
}

// TodayStatistics computes the roll-up for the current calendar day. A day
// without any record yields zero statistics, not an error.
func (ds *DataStore) TodayStatistics() (Statistics, error) {
	today := DateKey(time.Now())
	return ds.statisticsInRange(today, today)
}

// OverallStatistics computes the roll-up across every stored daily record.
func (ds *DataStore) OverallStatistics() (Statistics, error) {
	var earliest DailyRecord
	err := ds.DB.Order("date ASC").First(&earliest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Statistics{}, nil
		}
		return Statistics{}, dbError(err, "overall_statistics_bounds", "")
	}

	var latest DailyRecord
	if err := ds.DB.Order("date DESC").First(&latest).Error; err != nil {
		return Statistics{}, dbError(err, "overall_statistics_bounds", "")
	}

	return ds.statisticsInRange(earliest.Date, latest.Date)
}

// statisticsInRange aggregates over daily records whose day key lies in
// [startKey, endKey], both bounds inclusive.
func (ds *DataStore) statisticsInRange(startKey, endKey string) (Statistics, error) {
	var stats Statistics

	var dayCount int64
	err := ds.DB.Model(&DailyRecord{}).
		Where("date >= ? AND date <= ?", startKey, endKey).
		Count(&dayCount).Error
	if err != nil {
		return Statistics{}, dbError(err, "statistics_day_count", "")
	}
	stats.Days = int(dayCount)

	rows, err := ds.DB.Model(&TranscriptionSegment{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(duration), 0) as total").
		Where("owner_date >= ? AND owner_date <= ?", startKey, endKey).
		Group("status").
		Rows()
	if err != nil {
		return Statistics{}, dbError(err, "statistics_segment_rollup", "")
	}
	defer rows.Close()

	for rows.Next() {
		var status SegmentStatus
		var count int
		var total float64
		if err := rows.Scan(&status, &count, &total); err != nil {
			return Statistics{}, dbError(err, "statistics_scan", "")
		}

		stats.Segments += count
		stats.TotalDuration += total
		switch status {
		case StatusPending:
			stats.PendingCount = count
		case StatusCompleted:
			stats.CompletedCount = count
		case StatusFailed:
			stats.FailedCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return Statistics{}, dbError(err, "statistics_rows", "")
	}

	if stats.Days > 0 {
		stats.AverageDurationPerDay = stats.TotalDuration / float64(stats.Days)
	}
	return stats, nil
}
