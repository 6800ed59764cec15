package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediatool/internal/journal"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or the items of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				run, err := store.GetRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", id)
				}
				items, err := store.ListItems(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderRuns([]journal.Run{*run}))
				if len(items) == 0 {
					fmt.Fprintln(out, "No items recorded")
					return nil
				}
				fmt.Fprintln(out, renderItems(items))
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the items recorded for one run")
	return cmd
}

func renderRuns(runs []journal.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "running"
		if r.Finished() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			r.ID,
			r.Action,
			yesNo(r.Simulate),
			r.StartedAt.Local().Format(historyTimeLayout),
			duration,
			strconv.Itoa(r.Counts.Failed),
			strconv.Itoa(r.Counts.Modified),
			strconv.Itoa(r.Counts.Unchanged),
			strconv.Itoa(r.Counts.Skipped),
			r.Root,
			r.Error,
		})
	}
	return renderTable(
		[]string{"Run", "Action", "Simulated", "Started", "Duration", "Failed", "Modified", "Unchanged", "Skipped", "Root", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderItems(items []journal.ItemRecord) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		final := item.FinalPath
		if final == item.SourcePath {
			final = ""
		}
		rows = append(rows, []string{
			string(item.Status),
			item.SourcePath,
			final,
			item.Ripper,
			strings.Join(item.Tags, ","),
			item.Failure,
		})
	}
	return renderTable([]string{"Status", "Source", "Final", "Ripper", "Tags", "Failure"}, rows, nil)
}
