package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lpchscp/rhadron/internal/condor"
	"github.com/lpchscp/rhadron/internal/config"
	"github.com/lpchscp/rhadron/internal/logging"
	"github.com/lpchscp/rhadron/internal/metrics"
	"github.com/lpchscp/rhadron/internal/model"
	"github.com/lpchscp/rhadron/internal/store"
)

var submitCfg = condor.DefaultConfig()

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit signal production jobs to HTCondor",
		Args:  cobra.NoArgs,
		RunE:  runSubmit,
	}

	defaults := condor.DefaultConfig()
	cmd.Flags().StringVarP(&submitCfg.SampleCSV, "samplecsv", "f", "", "sample CSV with one mass,events line per mass point")
	cmd.Flags().BoolVarP(&submitCfg.DryRun, "killsubmission", "k", false, "print job arguments without writing or submitting jobs")
	cmd.Flags().IntVarP(&submitCfg.MaxEvents, "maxevents", "n", defaults.MaxEvents, "maximum events per job")
	cmd.Flags().StringVar(&submitCfg.Tarball, "tarball", defaults.Tarball, "working-area tarball shipped with every job")
	cmd.Flags().StringVar(&submitCfg.CMSSWDir, "cmssw-dir", defaults.CMSSWDir, "CMSSW release area archived into the tarball")
	cmd.Flags().StringVar(&submitCfg.LogDir, "log-dir", defaults.LogDir, "directory for job stdout, stderr and logs")
	cmd.Flags().StringVar(&submitCfg.MetricsFile, "metrics-file", "", "write submission metrics to a node-exporter textfile")
	cmd.Flags().StringVar(&submitCfg.WorkDir, "workdir", defaults.WorkDir, "directory where job descriptions are written")

	return cmd
}

// applySubmitConfig merges the [submit] section under the flags. Keys without a flag are
// taken from the file unconditionally.
func applySubmitConfig(cmd *cobra.Command, fileCfg config.SubmitConfig, cfg *model.SubmitConfig) {
	applyIntConfig(cmd, "maxevents", &cfg.MaxEvents, fileCfg.MaxEvents)
	applyStringConfig(cmd, "tarball", &cfg.Tarball, fileCfg.Tarball)
	applyStringConfig(cmd, "cmssw-dir", &cfg.CMSSWDir, fileCfg.CMSSWDir)
	applyStringConfig(cmd, "log-dir", &cfg.LogDir, fileCfg.LogDir)
	applyStringConfig(cmd, "metrics-file", &cfg.MetricsFile, fileCfg.MetricsFile)
	applyStringConfig(cmd, "executable", &cfg.Executable, fileCfg.Executable)
	applyStringConfig(cmd, "image", &cfg.Image, fileCfg.Image)
	applyStringConfig(cmd, "redirector", &cfg.Redirector, fileCfg.Redirector)
	applyStringConfig(cmd, "store-base", &cfg.StoreBase, fileCfg.StoreBase)
	applyStringConfig(cmd, "dir-prefix", &cfg.DirPrefix, fileCfg.DirPrefix)
	applyStringConfig(cmd, "submit-command", &cfg.SubmitCommand, fileCfg.SubmitCommand)
	applyStringConfig(cmd, "storage-command", &cfg.StorageCommand, fileCfg.StorageCommand)
	applyStringConfig(cmd, "archive-command", &cfg.ArchiveCommand, fileCfg.ArchiveCommand)
}

func validateSubmitConfig(cfg model.SubmitConfig) error {
	if cfg.MaxEvents <= 0 {
		return fmt.Errorf("--maxevents must be > 0")
	}
	if cfg.Tarball == "" {
		return fmt.Errorf("--tarball must not be empty")
	}
	if cfg.SubmitCommand == "" || cfg.StorageCommand == "" || cfg.ArchiveCommand == "" {
		return fmt.Errorf("submit, storage and archive commands must be set")
	}
	return nil
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	fileCfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	cfg := submitCfg
	applySubmitConfig(cmd, fileCfg.Submit, &cfg)
	if err := validateSubmitConfig(cfg); err != nil {
		return err
	}
	log := logging.WithComponent(logger, "submit")

	var specs []model.JobSpec
	if cfg.SampleCSV == "" {
		log.Warn("no sample csv given, no jobs will be built")
	} else {
		specs, err = condor.LoadSamples(cfg.SampleCSV)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	now := time.Now()
	out := cmd.OutOrStdout()

	ledger, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() {
		if cerr := ledger.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	m := metrics.NewSubmission()
	m.MarkRun(now)

	runner := condor.NewExecRunner(cfg.WorkDir, logging.WithComponent(logger, "runner"))
	sub := condor.NewSubmitter(cfg, now, runner, log, condor.WithMetrics(m), condor.WithOutput(out))

	run, err := ledger.InsertRun(ctx, model.SubmissionRun{
		StartedAt: now,
		SampleCSV: cfg.SampleCSV,
		OutputURL: sub.OutputURL(),
		MaxEvents: cfg.MaxEvents,
		DryRun:    cfg.DryRun,
	})
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	condor.WithLedger(ledger, run.ID)(sub)
	log = log.With(zap.String("run", run.UUID))
	abort := func(err error) error {
		// The run is marked even when the context was cancelled.
		if aerr := ledger.AbortRun(context.WithoutCancel(ctx), run.ID, err.Error()); aerr != nil {
			log.Warn("failed to mark run as aborted", zap.Error(aerr))
		}
		return err
	}

	if err := sub.Prepare(ctx); err != nil {
		return abort(err)
	}
	fmt.Fprintf(out, "Root files are written to %s\n", sub.OutputURL())

	chunks, err := sub.Plan(specs)
	if err != nil {
		return abort(err)
	}
	if cfg.DryRun {
		fmt.Fprintln(out, "Not submitting jobs, printing passed arguments")
	}

	res, submitErr := sub.Submit(ctx, chunks)
	if err := ledger.FinishRun(ctx, run.ID, len(res.Jobs), res.Failed); err != nil {
		log.Warn("failed to finish run", zap.Error(err))
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("failed to write metrics", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}

	fmt.Fprintf(out, "Submitted %d jobs\n", res.Submitted)
	if submitErr != nil {
		logErrf("%d of %d jobs failed\n", res.Failed, len(chunks))
		return fmt.Errorf("submission incomplete: %w", submitErr)
	}
	return nil
}
