package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"guidinghand/internal/tasks"
	id "guidinghand/pkg/domain"
)

func newRematchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rematch <foundPersonId>...",
		Short: "Enqueue a broad match for one or more found-person reports",
		Long: "Enqueue a broad_match task per found-person report. Matches merge by pair, " +
			"so re-running a sweep never duplicates records; trackers of matches above the " +
			"notify threshold are notified again.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			foundIDs := make([]id.FoundPersonID, 0, len(args))
			for _, arg := range args {
				foundID, err := id.ParseFoundPersonID(arg)
				if err != nil {
					return fmt.Errorf("invalid found person id %q: %w", arg, err)
				}
				foundIDs = append(foundIDs, foundID)
			}
			return ctx.withQueue(cmd.Context(), func(q tasks.Queue) error {
				for _, foundID := range foundIDs {
					t := tasks.NewBroadMatch(foundID, time.Now())
					if err := q.Enqueue(cmd.Context(), t); err != nil {
						return fmt.Errorf("enqueue broad match for %s: %w", foundID, err)
					}
					fmt.Fprintf(ctx.out, "enqueued %s %s found=%s\n", t.Kind, t.ID, foundID)
				}
				return nil
			})
		},
	}
}

func newRedriveReferencedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "redrive-referenced <missingPersonId> <foundPersonId>",
		Short: "Enqueue the referenced match for a found-person report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			missingID, err := id.ParseMissingPersonID(args[0])
			if err != nil {
				return fmt.Errorf("invalid missing person id %q: %w", args[0], err)
			}
			foundID, err := id.ParseFoundPersonID(args[1])
			if err != nil {
				return fmt.Errorf("invalid found person id %q: %w", args[1], err)
			}
			return ctx.withQueue(cmd.Context(), func(q tasks.Queue) error {
				t := tasks.NewReferencedMatch(missingID, foundID, time.Now())
				if err := q.Enqueue(cmd.Context(), t); err != nil {
					return fmt.Errorf("enqueue referenced match: %w", err)
				}
				fmt.Fprintf(ctx.out, "enqueued %s %s missing=%s found=%s\n", t.Kind, t.ID, missingID, foundID)
				return nil
			})
		},
	}
}
