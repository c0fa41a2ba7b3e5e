// Package retry implements the retry command, resetting failed
// transcription segments back to pending.
package retry

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/datastore"
)

// Command creates the retry command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Reset failed segments for another transcription attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetry(settings)
		},
	}
}

func runRetry(settings *conf.Settings) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in settings")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer store.Close() //nolint:errcheck // single mutation already committed

	count, err := store.ResetAllFailed()
	if err != nil {
		return fmt.Errorf("failed to reset segments: %w", err)
	}

	if count == 0 {
		fmt.Println("No failed segments to reset.")
		return nil
	}
	fmt.Printf("Reset %d failed segment(s) to pending.\n", count)
	return nil
}
