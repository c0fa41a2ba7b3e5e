package journal

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/datastore"
	"github.com/mveikko/daybook-go/internal/errors"
	"github.com/mveikko/daybook-go/internal/logging"
	"github.com/mveikko/daybook-go/internal/observability"
)

// Processor wires capture, transcription, and location events into the
// record store. A single processor runs per application instance.
type Processor struct {
	Settings    *conf.Settings
	Ds          datastore.Interface
	Transcriber Transcriber
	Metrics     *observability.Metrics

	// attempts tracks dispatch attempts per pending segment for the
	// lifetime of this processor. A segment is failed once its count
	// reaches Journal.Transcription.MaxAttempts.
	attempts   map[uint]int
	attemptsMu sync.Mutex

	logger *slog.Logger
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a processor. Metrics may be nil when observability is
// disabled; all counter updates are guarded.
func New(settings *conf.Settings, ds datastore.Interface, tr Transcriber, metrics *observability.Metrics) *Processor {
	logger := logging.ForService("journal")
	if logger == nil {
		logger = slog.Default().With("service", "journal")
	}
	return &Processor{
		Settings:    settings,
		Ds:          ds,
		Transcriber: tr,
		Metrics:     metrics,
		attempts:    make(map[uint]int),
		logger:      logger,
	}
}

// Start launches the capture intake loop and the transcription sweep
// ticker. The source may be nil when the application runs without live
// capture, for example during a retry-only invocation.
func (p *Processor) Start(ctx context.Context, source CaptureSource) {
	ctx, p.cancel = context.WithCancel(ctx)

	if source != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.captureLoop(ctx, source)
		}()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sweepLoop(ctx)
	}()
}

// Stop cancels the loops and waits for them to drain.
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Processor) captureLoop(ctx context.Context, source CaptureSource) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-source.Recordings():
			if !ok {
				return
			}
			if err := p.HandleRecording(rec); err != nil {
				p.logger.Error("failed to store finished recording",
					"audio_ref", rec.AudioRef,
					"duration", rec.Duration,
					"error", err)
			}
		}
	}
}

func (p *Processor) sweepLoop(ctx context.Context) {
	interval := time.Duration(p.Settings.Journal.Transcription.PollInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Sweep(ctx); err != nil {
				p.logger.Error("transcription sweep failed", "error", err)
			}
		}
	}
}

// HandleRecording stores a finished recording as a pending segment. A
// missing audio reference gets a generated clip path under the configured
// clip directory.
func (p *Processor) HandleRecording(rec Recording) error {
	audioRef := rec.AudioRef
	if audioRef == "" {
		audioRef = path.Join(p.Settings.Capture.ClipPath,
			datastore.DateKey(rec.Timestamp),
			fmt.Sprintf("%s.wav", uuid.New().String()))
	}

	segment, err := p.Ds.RecordFinishedSegment(rec.Timestamp, rec.Duration, audioRef)
	if err != nil {
		p.countStoreError("record_finished_segment")
		return err
	}

	if p.Metrics != nil {
		p.Metrics.SegmentsRecorded.Inc()
	}
	p.logger.Debug("recording stored as pending segment",
		"segment_id", segment.ID,
		"audio_ref", segment.AudioRef,
		"duration", segment.Duration)
	return nil
}

// Sweep drains up to one batch of pending segments through the
// transcriber. Segments whose dispatch fails stay pending until their
// attempt budget is exhausted, at which point they are marked failed with
// the last error as detail.
func (p *Processor) Sweep(ctx context.Context) error {
	if p.Transcriber == nil {
		return nil
	}

	batch := p.Settings.Journal.Transcription.BatchSize
	pending, err := p.Ds.PendingSegments(batch)
	if err != nil {
		p.countStoreError("pending_segments")
		return errors.New(err).
			Component("journal").
			Category(errors.CategoryTranscription).
			Build()
	}

	for i := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.dispatch(ctx, &pending[i])
	}
	return nil
}

// dispatch runs a single segment through the transcriber and applies the
// outcome. Transient errors leave the segment pending for the next sweep.
func (p *Processor) dispatch(ctx context.Context, segment *datastore.TranscriptionSegment) {
	attempt := p.bumpAttempt(segment.ID)

	transcript, err := p.Transcriber.Transcribe(ctx, segment.AudioRef)
	if err != nil {
		maxAttempts := p.Settings.Journal.Transcription.MaxAttempts
		if attempt < maxAttempts {
			if p.Metrics != nil {
				p.Metrics.TranscriptionRetries.Inc()
			}
			p.logger.Warn("transcription attempt failed, will retry",
				"segment_id", segment.ID,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err)
			return
		}

		p.clearAttempts(segment.ID)
		if applyErr := p.Ds.ApplyTranscriptionResult(segment.ID, datastore.OutcomeFailed(err.Error())); applyErr != nil {
			p.countStoreError("apply_transcription_result")
			p.logger.Error("failed to mark segment as failed",
				"segment_id", segment.ID, "error", applyErr)
			return
		}
		if p.Metrics != nil {
			p.Metrics.TranscriptionsTotal.WithLabelValues("failed").Inc()
		}
		p.logger.Error("transcription failed permanently",
			"segment_id", segment.ID,
			"attempts", attempt,
			"error", err)
		return
	}

	p.clearAttempts(segment.ID)
	if applyErr := p.Ds.ApplyTranscriptionResult(segment.ID, datastore.OutcomeCompleted(transcript)); applyErr != nil {
		p.countStoreError("apply_transcription_result")
		p.logger.Error("failed to store transcript",
			"segment_id", segment.ID, "error", applyErr)
		return
	}
	if p.Metrics != nil {
		p.Metrics.TranscriptionsTotal.WithLabelValues("completed").Inc()
	}
	p.logger.Debug("segment transcribed",
		"segment_id", segment.ID,
		"transcript_length", len(transcript))
}

// RetryAllFailed resets every failed segment to pending and clears their
// local attempt counters so the next sweeps pick them up fresh.
func (p *Processor) RetryAllFailed() (int, error) {
	count, err := p.Ds.ResetAllFailed()
	if err != nil {
		p.countStoreError("reset_all_failed")
		return 0, err
	}

	p.attemptsMu.Lock()
	p.attempts = make(map[uint]int)
	p.attemptsMu.Unlock()

	if p.Metrics != nil {
		p.Metrics.SegmentsResetForRetry.Add(float64(count))
	}
	if count > 0 {
		p.logger.Info("failed segments reset for retry", "count", count)
	}
	return count, nil
}

func (p *Processor) bumpAttempt(segmentID uint) int {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	p.attempts[segmentID]++
	return p.attempts[segmentID]
}

func (p *Processor) clearAttempts(segmentID uint) {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	delete(p.attempts, segmentID)
}

func (p *Processor) countStoreError(operation string) {
	if p.Metrics != nil {
		p.Metrics.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}
