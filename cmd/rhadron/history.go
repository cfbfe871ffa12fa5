package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lpchscp/rhadron/internal/config"
	"github.com/lpchscp/rhadron/internal/model"
	"github.com/lpchscp/rhadron/internal/stats"
	"github.com/lpchscp/rhadron/internal/store"
)

var (
	historyLast int
	historyRun  string
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past submission runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().IntVar(&historyLast, "last", defaultLastRuns, "number of runs listed (0 = all)")
	cmd.Flags().StringVar(&historyRun, "run", "", "show the jobs of the run with this id")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if historyRun != "" {
		run, err := st.GetRun(ctx, historyRun)
		if errors.Is(err, store.ErrRunNotFound) {
			return fmt.Errorf("no run with id %s", historyRun)
		}
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}
		jobs, err := st.ListJobs(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to load jobs: %w", err)
		}
		fmt.Fprintf(out, "Run %s started %s, output %s\n", run.UUID, run.StartedAt.Local().Format(time.DateTime), run.OutputURL)
		if run.Error != "" {
			fmt.Fprintf(out, "Aborted: %s\n", run.Error)
		}
		fmt.Fprintln(out)
		return renderJobs(cmd, jobs)
	}

	runs, err := st.ListRuns(ctx, historyLast)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No submission runs recorded.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		mode := "submit"
		if r.DryRun {
			mode = "dry-run"
		}
		if r.Error != "" {
			mode += " (aborted)"
		}
		rows = append(rows, []string{
			r.UUID,
			r.StartedAt.Local().Format(time.DateTime),
			mode,
			r.SampleCSV,
			strconv.Itoa(r.MaxEvents),
			strconv.Itoa(r.JobCount),
			strconv.Itoa(r.FailedJobs),
		})
	}
	return stats.RenderTable(out,
		[]string{"Run", "Started", "Mode", "Samples", "Max events", "Jobs", "Failed"},
		rows, map[int]bool{4: true, 5: true, 6: true})
}

func renderJobs(cmd *cobra.Command, jobs []model.SubmittedJob) error {
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded.")
		return nil
	}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			j.MassPoint,
			strconv.Itoa(j.Index),
			strconv.Itoa(j.Events),
			string(j.Status),
			j.JDLPath,
			j.Error,
		})
	}
	return stats.RenderTable(cmd.OutOrStdout(),
		[]string{"Mass", "Job", "Events", "Status", "JDL", "Error"},
		rows, map[int]bool{1: true, 2: true})
}
