package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mveikko/daybook-go/internal/datastore"
	"github.com/mveikko/daybook-go/internal/errors"
)

// VisitResponse is one location visit in API responses.
type VisitResponse struct {
	ID         uint       `json:"id"`
	PlaceLabel string     `json:"place_label"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Arrival    time.Time  `json:"arrival"`
	Departure  *time.Time `json:"departure,omitempty"`
	Open       bool       `json:"open"`
}

// ArrivalRequest is posted by a location companion on a geofence entry.
type ArrivalRequest struct {
	PlaceLabel string    `json:"place_label"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	At         time.Time `json:"at"`
}

// DepartureRequest is posted by a location companion on a geofence exit.
type DepartureRequest struct {
	At time.Time `json:"at"`
}

func visitResponse(v *datastore.LocationVisit) VisitResponse {
	return VisitResponse{
		ID:         v.ID,
		PlaceLabel: v.PlaceLabel,
		Latitude:   v.Latitude,
		Longitude:  v.Longitude,
		Arrival:    v.Arrival,
		Departure:  v.Departure,
		Open:       v.IsOpen(),
	}
}

func (c *Controller) initVisitRoutes() {
	c.Group.GET("/visits", c.GetVisits)
	c.Group.GET("/visits/current", c.GetCurrentVisit)
	c.Group.POST("/visits/arrive", c.PostArrival)
	c.Group.POST("/visits/depart", c.PostDeparture)
}

// GetVisits lists visits overlapping a time range, ascending by arrival.
// Defaults to the last 24 hours.
func (c *Controller) GetVisits(ctx echo.Context) error {
	now := time.Now()
	start := now.Add(-24 * time.Hour)
	end := now

	if raw := ctx.QueryParam("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.HandleError(ctx, err, "invalid start, expected RFC3339", http.StatusBadRequest)
		}
		start = parsed
	}
	if raw := ctx.QueryParam("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.HandleError(ctx, err, "invalid end, expected RFC3339", http.StatusBadRequest)
		}
		end = parsed
	}

	visits, err := c.DS.VisitsInRange(start, end)
	if err != nil {
		c.logReadFallback("visits_in_range", err)
		return ctx.JSON(http.StatusOK, []VisitResponse{})
	}

	resp := make([]VisitResponse, 0, len(visits))
	for i := range visits {
		resp = append(resp, visitResponse(&visits[i]))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetCurrentVisit returns the open visit, or 204 when nowhere is checked
// in.
func (c *Controller) GetCurrentVisit(ctx echo.Context) error {
	visit, err := c.DS.CurrentOpenVisit()
	if err != nil {
		if !errors.HasCategory(err, errors.CategoryNotFound) {
			c.logReadFallback("current_open_visit", err)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, visitResponse(visit))
}

// PostArrival opens a visit for the place.
func (c *Controller) PostArrival(ctx echo.Context) error {
	var req ArrivalRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}

	c.Processor.HandleArrival(req.PlaceLabel, req.Latitude, req.Longitude, req.At)
	return ctx.NoContent(http.StatusCreated)
}

// PostDeparture closes the currently open visit, if any.
func (c *Controller) PostDeparture(ctx echo.Context) error {
	var req DepartureRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}

	c.Processor.HandleDeparture(req.At)
	return ctx.NoContent(http.StatusNoContent)
}
