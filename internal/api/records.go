package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mveikko/daybook-go/internal/datastore"
	"github.com/mveikko/daybook-go/internal/errors"
)

// SegmentResponse is one transcription segment in API responses.
type SegmentResponse struct {
	ID                uint      `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Duration          float64   `json:"duration"`
	AudioRef          string    `json:"audio_ref"`
	Status            string    `json:"status"`
	Transcript        string    `json:"transcript,omitempty"`
	TranscriptPreview string    `json:"transcript_preview,omitempty"`
	ErrorDetail       string    `json:"error_detail,omitempty"`
}

// DayResponse is the aggregated view of one calendar day.
type DayResponse struct {
	Date               string            `json:"date"`
	TotalDuration      float64           `json:"total_duration"`
	ProcessedCount     int               `json:"processed_count"`
	PendingCount       int               `json:"pending_count"`
	FailedCount        int               `json:"failed_count"`
	FullyProcessed     bool              `json:"fully_processed"`
	CombinedTranscript string            `json:"combined_transcript,omitempty"`
	Segments           []SegmentResponse `json:"segments"`
	Visits             []VisitResponse   `json:"visits,omitempty"`
}

func segmentResponse(s *datastore.TranscriptionSegment) SegmentResponse {
	return SegmentResponse{
		ID:                s.ID,
		Timestamp:         s.Timestamp,
		Duration:          s.Duration,
		AudioRef:          s.AudioRef,
		Status:            string(s.Status),
		Transcript:        s.Transcript,
		TranscriptPreview: s.TranscriptPreview(),
		ErrorDetail:       s.ErrorDetail,
	}
}

func dayResponse(record *datastore.DailyRecord) DayResponse {
	segments := make([]SegmentResponse, 0, len(record.Segments))
	for i := range record.Segments {
		segments = append(segments, segmentResponse(&record.Segments[i]))
	}
	return DayResponse{
		Date:               record.Date,
		TotalDuration:      record.TotalDuration(),
		ProcessedCount:     record.ProcessedCount(),
		PendingCount:       record.PendingCount(),
		FailedCount:        record.FailedCount(),
		FullyProcessed:     record.IsFullyProcessed(),
		CombinedTranscript: record.CombinedTranscript(),
		Segments:           segments,
	}
}

// emptyDayResponse is the degraded view served when a day has no record
// or the lookup failed.
func emptyDayResponse(date string) DayResponse {
	return DayResponse{
		Date:           date,
		FullyProcessed: true,
		Segments:       []SegmentResponse{},
	}
}

func (c *Controller) initRecordRoutes() {
	c.Group.GET("/records/today", c.GetToday)
	c.Group.GET("/records/:date", c.GetDay)
	c.Group.GET("/records", c.GetHistory)
}

// GetToday returns the aggregated view of the current day.
func (c *Controller) GetToday(ctx echo.Context) error {
	return c.serveDay(ctx, time.Now())
}

// GetDay returns the aggregated view of one calendar day. Days without a
// record are served as an empty, fully processed day.
func (c *Controller) GetDay(ctx echo.Context) error {
	day, err := time.ParseInLocation(datastore.DateFormat, ctx.Param("date"), time.Local)
	if err != nil {
		return c.HandleError(ctx, err, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
	}
	return c.serveDay(ctx, day)
}

func (c *Controller) serveDay(ctx echo.Context, day time.Time) error {
	record, err := c.DS.DailyRecordFor(day)
	if err != nil {
		if !errors.HasCategory(err, errors.CategoryNotFound) {
			c.logReadFallback("get_daily_record", err)
		}
		return ctx.JSON(http.StatusOK, emptyDayResponse(datastore.DateKey(day)))
	}

	resp := dayResponse(record)
	resp.Visits = c.visitsForDay(day)
	return ctx.JSON(http.StatusOK, resp)
}

// visitsForDay resolves the visits overlapping a calendar day. Lookup
// failures degrade to no annotation.
func (c *Controller) visitsForDay(day time.Time) []VisitResponse {
	if !c.Settings.Location.Enabled {
		return nil
	}
	start := datastore.NormalizeDate(day)
	end := start.Add(24*time.Hour - time.Nanosecond)

	visits, err := c.DS.VisitsInRange(start, end)
	if err != nil {
		c.logReadFallback("visits_in_range", err)
		return nil
	}
	resp := make([]VisitResponse, 0, len(visits))
	for i := range visits {
		resp = append(resp, visitResponse(&visits[i]))
	}
	return resp
}

// GetHistory returns day summaries for an inclusive date range, newest
// day last. A configured retention limit bounds how far back the range
// may start.
func (c *Controller) GetHistory(ctx echo.Context) error {
	now := time.Now()
	start := now.AddDate(0, 0, -30)
	end := now

	if raw := ctx.QueryParam("start"); raw != "" {
		parsed, err := time.ParseInLocation(datastore.DateFormat, raw, time.Local)
		if err != nil {
			return c.HandleError(ctx, err, "invalid start date, expected YYYY-MM-DD", http.StatusBadRequest)
		}
		start = parsed
	}
	if raw := ctx.QueryParam("end"); raw != "" {
		parsed, err := time.ParseInLocation(datastore.DateFormat, raw, time.Local)
		if err != nil {
			return c.HandleError(ctx, err, "invalid end date, expected YYYY-MM-DD", http.StatusBadRequest)
		}
		end = parsed
	}

	if retention := c.Settings.History.RetentionDays; retention > 0 {
		oldest := now.AddDate(0, 0, -retention)
		if start.Before(oldest) {
			start = oldest
		}
	}

	records, err := c.DS.HistoryInRange(start, end)
	if err != nil {
		c.logReadFallback("history_in_range", err)
		return ctx.JSON(http.StatusOK, []DayResponse{})
	}

	resp := make([]DayResponse, 0, len(records))
	for i := range records {
		resp = append(resp, dayResponse(&records[i]))
	}
	return ctx.JSON(http.StatusOK, resp)
}
