// Package history implements the history command, listing day summaries
// for a date range.
package history

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/datastore"
)

// Command creates the history command.
func Command(settings *conf.Settings) *cobra.Command {
	var startFlag, endFlag string
	var days int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List day summaries for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := resolveRange(startFlag, endFlag, days)
			if err != nil {
				return err
			}
			return runHistory(settings, start, end)
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Range end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days back when no explicit range is given")

	return cmd
}

// resolveRange turns the flags into an inclusive date range. Explicit
// start/end win over --days.
func resolveRange(startFlag, endFlag string, days int) (start, end time.Time, err error) {
	now := time.Now()
	end = now
	start = now.AddDate(0, 0, -(days - 1))

	if startFlag != "" {
		start, err = time.ParseInLocation(datastore.DateFormat, startFlag, time.Local)
		if err != nil {
			return start, end, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if endFlag != "" {
		end, err = time.ParseInLocation(datastore.DateFormat, endFlag, time.Local)
		if err != nil {
			return start, end, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("range end %s is before start %s",
			datastore.DateKey(end), datastore.DateKey(start))
	}
	return start, end, nil
}

func runHistory(settings *conf.Settings, start, end time.Time) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in settings")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer store.Close() //nolint:errcheck // read-only command

	// The configured retention limit bounds how far back history reaches.
	if retention := settings.History.RetentionDays; retention > 0 {
		oldest := time.Now().AddDate(0, 0, -retention)
		if start.Before(oldest) {
			start = oldest
		}
	}

	records, err := store.HistoryInRange(start, end)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(records) == 0 {
		fmt.Printf("No records between %s and %s.\n",
			datastore.DateKey(start), datastore.DateKey(end))
		return nil
	}

	w := os.Stdout
	fmt.Fprintf(w, "%-12s %9s %10s %8s %7s\n", "date", "segments", "completed", "pending", "failed")
	for i := range records {
		r := &records[i]
		fmt.Fprintf(w, "%-12s %9d %10d %8d %7d\n",
			r.Date, len(r.Segments), r.ProcessedCount(), r.PendingCount(), r.FailedCount())
	}
	return nil
}
