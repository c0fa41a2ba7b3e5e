package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mveikko/daybook-go/internal/datastore"
	"github.com/mveikko/daybook-go/internal/errors"
	"github.com/mveikko/daybook-go/internal/journal"
)

// IngestSegmentRequest is the payload a capture companion posts when a
// recording finishes. AudioRef is optional; a missing one is generated.
type IngestSegmentRequest struct {
	Timestamp time.Time `json:"timestamp"`
	Duration  float64   `json:"duration"`
	AudioRef  string    `json:"audio_ref"`
}

// RetryResponse reports how many failed segments were reset to pending.
type RetryResponse struct {
	ResetCount int `json:"reset_count"`
}

func (c *Controller) initSegmentRoutes() {
	c.Group.POST("/segments", c.IngestSegment)
	c.Group.GET("/segments/pending", c.GetPendingSegments)
	c.Group.GET("/segments/failed", c.GetFailedSegments)
	c.Group.POST("/segments/retry", c.RetryFailedSegments)
}

// IngestSegment stores a finished recording as a pending segment.
func (c *Controller) IngestSegment(ctx echo.Context) error {
	var req IngestSegmentRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	err := c.Processor.HandleRecording(journal.Recording{
		Timestamp: req.Timestamp,
		Duration:  req.Duration,
		AudioRef:  req.AudioRef,
	})
	if err != nil {
		if errors.HasCategory(err, errors.CategoryValidation) {
			return c.HandleError(ctx, err, "invalid segment", http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, "failed to store segment", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusCreated)
}

// GetPendingSegments lists segments awaiting transcription, oldest first.
func (c *Controller) GetPendingSegments(ctx echo.Context) error {
	pending, err := c.DS.PendingSegments(0)
	if err != nil {
		c.logReadFallback("pending_segments", err)
		return ctx.JSON(http.StatusOK, []SegmentResponse{})
	}
	return ctx.JSON(http.StatusOK, segmentResponses(pending))
}

// GetFailedSegments lists segments whose transcription failed, oldest
// first.
func (c *Controller) GetFailedSegments(ctx echo.Context) error {
	failed, err := c.DS.FailedSegments()
	if err != nil {
		c.logReadFallback("failed_segments", err)
		return ctx.JSON(http.StatusOK, []SegmentResponse{})
	}
	return ctx.JSON(http.StatusOK, segmentResponses(failed))
}

// RetryFailedSegments resets every failed segment back to pending.
func (c *Controller) RetryFailedSegments(ctx echo.Context) error {
	count, err := c.Processor.RetryAllFailed()
	if err != nil {
		return c.HandleError(ctx, err, "failed to reset segments", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, RetryResponse{ResetCount: count})
}

func segmentResponses(segments []datastore.TranscriptionSegment) []SegmentResponse {
	resp := make([]SegmentResponse, 0, len(segments))
	for i := range segments {
		resp = append(resp, segmentResponse(&segments[i]))
	}
	return resp
}
