// locations.go: location visit queries and mutations. Visits are an
// independent entity family; they are never written to or owned by a daily
// record, and segment association is computed at read time from timestamps.
package datastore

import (
	"time"

	"github.com/mveikko/daybook-go/internal/errors"
	"gorm.io/gorm"
)

// BeginVisit records arrival at a place. Any visit still open at that point
// is closed at the new arrival instant, keeping at most one open visit.
func (ds *DataStore) BeginVisit(placeLabel string, latitude, longitude float64, arrival time.Time) (*LocationVisit, error) {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	visit := &LocationVisit{
		PlaceLabel: placeLabel,
		Latitude:   latitude,
		Longitude:  longitude,
		Arrival:    arrival,
	}

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var open []LocationVisit
		if err := tx.Where("departure IS NULL").Find(&open).Error; err != nil {
			return dbError(err, "find_open_visits", "")
		}
		for i := range open {
			// Best effort: a new arrival implies the previous stay ended.
			departure := arrival
			if departure.Before(open[i].Arrival) {
				departure = open[i].Arrival
			}
			open[i].Departure = &departure
			if err := tx.Save(&open[i]).Error; err != nil {
				return dbError(err, "close_stale_visit", "", "visit_id", open[i].ID)
			}
		}

		if err := tx.Create(visit).Error; err != nil {
			return dbError(err, "create_visit", "", "place", placeLabel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	GetLogger().Debug("visit started", "visit_id", visit.ID, "place", placeLabel)
	return visit, nil
}

// MarkDeparture closes an open visit. The visit is immutable afterward.
func (ds *DataStore) MarkDeparture(visitID uint, departure time.Time) error {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var visit LocationVisit
		if err := tx.First(&visit, visitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("location_visit", visitID)
			}
			return dbError(err, "load_visit", "", "visit_id", visitID)
		}

		if visit.Departure != nil {
			return validationError("visit is already closed", "visit_id", visitID)
		}
		if departure.Before(visit.Arrival) {
			return validationError("departure precedes arrival", "departure", departure)
		}

		visit.Departure = &departure
		if err := tx.Save(&visit).Error; err != nil {
			return dbError(err, "save_visit", "", "visit_id", visitID)
		}
		return nil
	})
}

// CurrentOpenVisit returns the ongoing visit, or a not-found error when
// every visit is closed. With more than one open visit (best-effort
// invariant violated) the most recent arrival wins.
func (ds *DataStore) CurrentOpenVisit() (*LocationVisit, error) {
	var visit LocationVisit
	err := ds.DB.Where("departure IS NULL").
		Order("arrival DESC").
		First(&visit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("open_visit", "current")
		}
		return nil, dbError(err, "current_open_visit", "")
	}
	return &visit, nil
}

// VisitsInRange returns visits overlapping [start, end], ascending by
// arrival. A visit overlaps when it arrives before the range ends and has
// not departed before the range starts.
func (ds *DataStore) VisitsInRange(start, end time.Time) ([]LocationVisit, error) {
	var visits []LocationVisit
	err := ds.DB.Where("arrival <= ? AND (departure IS NULL OR departure >= ?)", end, start).
		Order("arrival ASC").
		Find(&visits).Error
	if err != nil {
		return nil, dbError(err, "visits_in_range", "")
	}
	return visits, nil
}

// VisitsOverlapping returns the visits whose stay interval covers ts, using
// now as the upper bound of ongoing visits. This is the read-time join from
// segments to places; nothing relational is stored.
func (ds *DataStore) VisitsOverlapping(ts time.Time) ([]LocationVisit, error) {
	visits, err := ds.VisitsInRange(ts, ts)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	matching := make([]LocationVisit, 0, len(visits))
	for i := range visits {
		if visits[i].Covers(ts, now) {
			matching = append(matching, visits[i])
		}
	}
	return matching, nil
}
