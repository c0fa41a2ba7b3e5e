package conf

import (
	"github.com/mveikko/daybook-go/internal/errors"
)

// ValidateSettings checks the loaded settings for values the rest of the
// application cannot work with.
func ValidateSettings(settings *Settings) error {
	if settings.Capture.SegmentLength <= 0 {
		return errors.Newf("capture.segmentlength must be greater than 0, got %d",
			settings.Capture.SegmentLength).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("field", "capture.segmentlength").
			Build()
	}

	if settings.Journal.Transcription.BatchSize <= 0 {
		return errors.Newf("journal.transcription.batchsize must be greater than 0, got %d",
			settings.Journal.Transcription.BatchSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("field", "journal.transcription.batchsize").
			Build()
	}

	if settings.Journal.Transcription.MaxAttempts <= 0 {
		return errors.Newf("journal.transcription.maxattempts must be greater than 0, got %d",
			settings.Journal.Transcription.MaxAttempts).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("field", "journal.transcription.maxattempts").
			Build()
	}

	if settings.History.RetentionDays < 0 {
		return errors.Newf("history.retentiondays must not be negative, got %d",
			settings.History.RetentionDays).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("field", "history.retentiondays").
			Build()
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.Newf("no output database enabled, enable output.sqlite or output.mysql").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Database == "" || settings.Output.MySQL.Host == "" {
			return errors.Newf("mysql output enabled but database or host is empty").
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}

	return nil
}
