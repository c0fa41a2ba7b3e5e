package journal

import (
	"context"
	"time"

	"github.com/mveikko/daybook-go/internal/datastore"
	"github.com/mveikko/daybook-go/internal/errors"
)

// StartLocationMonitor subscribes the processor to a location monitor in a
// background goroutine. No-op when location tracking is disabled in the
// settings.
func (p *Processor) StartLocationMonitor(ctx context.Context, monitor LocationMonitor) {
	if monitor == nil || !p.Settings.Location.Enabled {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := monitor.Subscribe(ctx, p); err != nil && ctx.Err() == nil {
			p.logger.Error("location monitor stopped", "error", err)
		}
	}()
}

// HandleArrival opens a visit for the place. The store closes any visit
// still open at the arrival instant, so out-of-order monitors cannot leave
// two open visits behind.
func (p *Processor) HandleArrival(placeLabel string, latitude, longitude float64, at time.Time) {
	visit, err := p.Ds.BeginVisit(placeLabel, latitude, longitude, at)
	if err != nil {
		p.countStoreError("begin_visit")
		p.logger.Error("failed to open location visit",
			"place", placeLabel, "error", err)
		return
	}

	if p.Metrics != nil {
		p.Metrics.VisitsStarted.Inc()
		p.Metrics.OpenVisits.Set(1)
	}
	p.logger.Debug("location visit opened",
		"visit_id", visit.ID,
		"place", visit.PlaceLabel,
		"arrival", visit.Arrival)
}

// HandleDeparture closes the currently open visit, if any. A departure
// without a matching open visit is logged and dropped; the monitor may
// replay events after a restart.
func (p *Processor) HandleDeparture(at time.Time) {
	open, err := p.Ds.CurrentOpenVisit()
	if err != nil {
		if errors.HasCategory(err, errors.CategoryNotFound) {
			p.logger.Warn("departure without an open visit", "at", at)
			return
		}
		p.countStoreError("current_open_visit")
		p.logger.Error("failed to look up open visit", "error", err)
		return
	}

	if err := p.Ds.MarkDeparture(open.ID, at); err != nil {
		p.countStoreError("mark_departure")
		p.logger.Error("failed to close location visit",
			"visit_id", open.ID, "error", err)
		return
	}

	if p.Metrics != nil {
		p.Metrics.OpenVisits.Set(0)
	}
	p.logger.Debug("location visit closed",
		"visit_id", open.ID,
		"departure", at)
}

// VisitForSegment resolves the visits covering a segment's timestamp. Used
// by read surfaces to annotate segments with where they were recorded.
func (p *Processor) VisitForSegment(segment *datastore.TranscriptionSegment) ([]datastore.LocationVisit, error) {
	return p.Ds.VisitsOverlapping(segment.Timestamp)
}
