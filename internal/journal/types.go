// Package journal coordinates the capture, transcription, and location
// collaborators around the daily record store. The store owns the data;
// this package owns the loops that feed it.
package journal

import (
	"context"
	"time"
)

// Recording is a finished audio segment handed over by a capture source.
// AudioRef may be empty, in which case the processor assigns one.
type Recording struct {
	Timestamp time.Time
	Duration  float64
	AudioRef  string
}

// CaptureSource delivers finished recordings. The channel is closed when
// the source shuts down.
type CaptureSource interface {
	Recordings() <-chan Recording
}

// Transcriber converts a stored audio segment to text. Implementations
// wrap an external speech-to-text engine and are expected to be safe for
// sequential reuse; the processor never calls Transcribe concurrently.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// LocationMonitor emits arrival and departure events from whatever
// positioning backend the platform provides. Events arrive in wall-clock
// order per place.
type LocationMonitor interface {
	// Subscribe registers the handler and blocks until ctx is done.
	Subscribe(ctx context.Context, handler LocationHandler) error
}

// LocationHandler receives geofence transitions from a LocationMonitor.
type LocationHandler interface {
	HandleArrival(placeLabel string, latitude, longitude float64, at time.Time)
	HandleDeparture(at time.Time)
}
