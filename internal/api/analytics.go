package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mveikko/daybook-go/internal/datastore"
)

// StatisticsResponse is the roll-up view served by the stats endpoints.
type StatisticsResponse struct {
	Days                  int     `json:"days"`
	Segments              int     `json:"segments"`
	PendingCount          int     `json:"pending_count"`
	CompletedCount        int     `json:"completed_count"`
	FailedCount           int     `json:"failed_count"`
	TotalDuration         float64 `json:"total_duration"`
	AverageDurationPerDay float64 `json:"average_duration_per_day"`
}

func statisticsResponse(s datastore.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Days:                  s.Days,
		Segments:              s.Segments,
		PendingCount:          s.PendingCount,
		CompletedCount:        s.CompletedCount,
		FailedCount:           s.FailedCount,
		TotalDuration:         s.TotalDuration,
		AverageDurationPerDay: s.AverageDurationPerDay,
	}
}

func (c *Controller) initAnalyticsRoutes() {
	c.Group.GET("/stats/today", c.GetTodayStatistics)
	c.Group.GET("/stats/overall", c.GetOverallStatistics)
}

// GetTodayStatistics returns the roll-up for the current day. Responses
// are cached briefly; the store recomputes derivations on every query.
func (c *Controller) GetTodayStatistics(ctx echo.Context) error {
	return c.serveStatistics(ctx, "stats_today", c.DS.TodayStatistics)
}

// GetOverallStatistics returns the roll-up across all recorded days.
func (c *Controller) GetOverallStatistics(ctx echo.Context) error {
	return c.serveStatistics(ctx, "stats_overall", c.DS.OverallStatistics)
}

func (c *Controller) serveStatistics(ctx echo.Context, cacheKey string, query func() (datastore.Statistics, error)) error {
	if cached, found := c.statsCache.Get(cacheKey); found {
		if resp, ok := cached.(StatisticsResponse); ok {
			return ctx.JSON(http.StatusOK, resp)
		}
	}

	stats, err := query()
	if err != nil {
		c.logReadFallback(cacheKey, err)
		return ctx.JSON(http.StatusOK, StatisticsResponse{})
	}

	resp := statisticsResponse(stats)
	c.statsCache.SetDefault(cacheKey, resp)
	return ctx.JSON(http.StatusOK, resp)
}
