// model.go this code defines the data model for the application
package datastore

import (
	"slices"
	"strings"
	"time"
)

// SegmentStatus represents the transcription lifecycle stage of a segment.
type SegmentStatus string

const (
	StatusPending   SegmentStatus = "pending"
	StatusCompleted SegmentStatus = "completed"
	StatusFailed    SegmentStatus = "failed"
)

// TranscriptPreviewLength is the number of transcript characters shown in
// list views before truncation.
const TranscriptPreviewLength = 100

// TranscriptionSegment represents one fixed-length recording unit and its
// transcription lifecycle. OwnerDate is the day key of Timestamp, computed
// once at creation; it is the only durable link to the owning DailyRecord.
type TranscriptionSegment struct {
	ID          uint          `gorm:"primaryKey"`
	OwnerDate   string        `gorm:"index:idx_segments_owner_date"`
	Timestamp   time.Time     `gorm:"index:idx_segments_timestamp"`
	Duration    float64       // seconds, always > 0
	AudioRef    string        // opaque locator owned by the audio collaborator
	Transcript  string        `gorm:"type:text"`
	Status      SegmentStatus `gorm:"type:varchar(20);index:idx_segments_status"`
	ErrorDetail string
	CreatedAt   time.Time
}

// Complete marks the segment transcribed. Calling it again with new text
// simply overwrites the previous result.
func (s *TranscriptionSegment) Complete(transcript string) {
	s.Status = StatusCompleted
	s.Transcript = transcript
	s.ErrorDetail = ""
}

// Fail marks the segment failed with detail. Callable from any state; a
// transcript from a prior completion is cleared so the failed/completed
// markers stay mutually exclusive.
func (s *TranscriptionSegment) Fail(detail string) {
	s.Status = StatusFailed
	s.Transcript = ""
	s.ErrorDetail = detail
}

// ResetForRetry returns the segment to the pending queue. Both the error
// detail and any stale transcript are cleared so a re-attempt starts from a
// clean slate.
func (s *TranscriptionSegment) ResetForRetry() {
	s.Status = StatusPending
	s.Transcript = ""
	s.ErrorDetail = ""
}

// IsTerminal reports whether the segment has left the pending queue.
func (s *TranscriptionSegment) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// TranscriptPreview returns the first TranscriptPreviewLength characters of
// the transcript, with "..." appended when it was truncated.
func (s *TranscriptionSegment) TranscriptPreview() string {
	runes := []rune(s.Transcript)
	if len(runes) <= TranscriptPreviewLength {
		return s.Transcript
	}
	return string(runes[:TranscriptPreviewLength]) + "..."
}

// DailyRecord owns the segments recorded on one calendar day. Date is the
// day key (local calendar day normalized to midnight, stored as YYYY-MM-DD)
// and acts as the join key; Segments are kept in insertion order. All
// statistics are derived on access, never stored.
type DailyRecord struct {
	ID        uint                   `gorm:"primaryKey"`
	Date      string                 `gorm:"index:idx_daily_records_date"`
	Segments  []TranscriptionSegment `gorm:"foreignKey:OwnerDate;references:Date"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeDate truncates t to midnight of its local calendar day. The
// conversion to local time comes first so the same instant always lands in
// the same day bucket, whatever zone it arrives in.
func NormalizeDate(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateKey formats the normalized calendar day of t as the durable day key.
func DateKey(t time.Time) string {
	return NormalizeDate(t).Format(DateFormat)
}

// Day returns the record's date as the midnight instant in local time.
func (d *DailyRecord) Day() time.Time {
	day, err := time.ParseInLocation(DateFormat, d.Date, time.Local)
	if err != nil {
		return time.Time{}
	}
	return day
}

// TotalDuration sums the durations of all owned segments in seconds.
func (d *DailyRecord) TotalDuration() float64 {
	var total float64
	for i := range d.Segments {
		total += d.Segments[i].Duration
	}
	return total
}

// ProcessedCount returns the number of completed segments.
func (d *DailyRecord) ProcessedCount() int {
	return d.countByStatus(StatusCompleted)
}

// PendingCount returns the number of segments still waiting for transcription.
func (d *DailyRecord) PendingCount() int {
	return d.countByStatus(StatusPending)
}

// FailedCount returns the number of segments whose transcription failed.
func (d *DailyRecord) FailedCount() int {
	return d.countByStatus(StatusFailed)
}

func (d *DailyRecord) countByStatus(status SegmentStatus) int {
	count := 0
	for i := range d.Segments {
		if d.Segments[i].Status == status {
			count++
		}
	}
	return count
}

// IsFullyProcessed reports whether every segment has reached a terminal
// state. A single pending segment blocks it; failed segments do not.
func (d *DailyRecord) IsFullyProcessed() bool {
	for i := range d.Segments {
		if !d.Segments[i].IsTerminal() {
			return false
		}
	}
	return true
}

// CombinedTranscript joins the non-empty transcripts of all segments in
// ascending timestamp order, separated by blank lines.
func (d *DailyRecord) CombinedTranscript() string {
	ordered := d.segmentsByTimestamp()
	parts := make([]string, 0, len(ordered))
	for i := range ordered {
		if ordered[i].Transcript != "" {
			parts = append(parts, ordered[i].Transcript)
		}
	}
	return strings.Join(parts, "\n\n")
}

// SegmentsInRange returns the owned segments whose timestamp lies in
// [start, end], both bounds inclusive, sorted ascending by timestamp.
func (d *DailyRecord) SegmentsInRange(start, end time.Time) []TranscriptionSegment {
	ordered := d.segmentsByTimestamp()
	result := make([]TranscriptionSegment, 0, len(ordered))
	for i := range ordered {
		ts := ordered[i].Timestamp
		if !ts.Before(start) && !ts.After(end) {
			result = append(result, ordered[i])
		}
	}
	return result
}

// segmentsByTimestamp returns a copy of the segment collection sorted
// ascending by timestamp, leaving insertion order untouched.
func (d *DailyRecord) segmentsByTimestamp() []TranscriptionSegment {
	ordered := make([]TranscriptionSegment, len(d.Segments))
	copy(ordered, d.Segments)
	slices.SortStableFunc(ordered, func(a, b TranscriptionSegment) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return ordered
}

// LocationVisit is a time-bounded stay record. It has no stored link to
// segments or daily records; association is computed at read time from
// timestamp overlap.
type LocationVisit struct {
	ID         uint   `gorm:"primaryKey"`
	PlaceLabel string
	Latitude   float64
	Longitude  float64
	Arrival    time.Time  `gorm:"index:idx_location_visits_arrival"`
	Departure  *time.Time // nil while the visit is ongoing
	CreatedAt  time.Time
}

// IsOpen reports whether the visit has no departure yet.
func (v *LocationVisit) IsOpen() bool {
	return v.Departure == nil
}

// Covers reports whether ts falls inside [Arrival, Departure], using now as
// the upper bound for an ongoing visit.
func (v *LocationVisit) Covers(ts, now time.Time) bool {
	end := now
	if v.Departure != nil {
		end = *v.Departure
	}
	return !ts.Before(v.Arrival) && !ts.After(end)
}
