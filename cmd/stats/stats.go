// Package stats implements the stats command, printing roll-up
// statistics for today and for all recorded days.
package stats

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/datastore"
)

// Command creates the stats command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(settings)
		},
	}
}

func runStats(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in settings")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer store.Close() //nolint:errcheck // read-only command

	today, err := store.TodayStatistics()
	if err != nil {
		return fmt.Errorf("failed to compute today's statistics: %w", err)
	}
	overall, err := store.OverallStatistics()
	if err != nil {
		return fmt.Errorf("failed to compute overall statistics: %w", err)
	}

	fmt.Println("Today")
	printStatistics(&today)
	fmt.Println()
	fmt.Println("Overall")
	printStatistics(&overall)
	return nil
}

func printStatistics(s *datastore.Statistics) {
	fmt.Printf("  days:           %d\n", s.Days)
	fmt.Printf("  segments:       %d\n", s.Segments)
	fmt.Printf("  completed:      %d\n", s.CompletedCount)
	fmt.Printf("  pending:        %d\n", s.PendingCount)
	fmt.Printf("  failed:         %d\n", s.FailedCount)
	fmt.Printf("  total audio:    %s\n", formatDuration(s.TotalDuration))
	fmt.Printf("  avg per day:    %s\n", formatDuration(s.AverageDurationPerDay))
}

// formatDuration renders seconds as h:mm:ss.
func formatDuration(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
