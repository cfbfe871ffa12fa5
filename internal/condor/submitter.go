package condor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/lpchscp/rhadron/internal/metrics"
	"github.com/lpchscp/rhadron/internal/model"
)

// DateLayout formats the submission date used in directory and file names.
const DateLayout = "2006-01-02"

// Ledger records the outcome of each chunk.
type Ledger interface {
	InsertJob(ctx context.Context, job model.SubmittedJob) error
}

// Result summarizes a submission loop.
type Result struct {
	Jobs      []model.SubmittedJob
	Submitted int
	Failed    int
}

// Submitter writes job descriptions and hands them to the scheduler.
type Submitter struct {
	cfg     model.SubmitConfig
	date    string
	runner  Runner
	storage *Storage
	logger  *zap.Logger
	metrics *metrics.Submission
	ledger  Ledger
	runID   int64
	out     io.Writer
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithLedger records every chunk under runID.
func WithLedger(l Ledger, runID int64) Option {
	return func(s *Submitter) {
		s.ledger = l
		s.runID = runID
	}
}

// WithMetrics counts chunks and submissions in m.
func WithMetrics(m *metrics.Submission) Option {
	return func(s *Submitter) {
		s.metrics = m
	}
}

// WithOutput sets where dry-run arguments and progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Submitter) {
		s.out = w
	}
}

// NewSubmitter returns a Submitter for one run on the given date.
func NewSubmitter(cfg model.SubmitConfig, date time.Time, runner Runner, logger *zap.Logger, opts ...Option) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Submitter{
		cfg:     cfg,
		date:    date.Format(DateLayout),
		runner:  runner,
		storage: NewStorage(runner, cfg.StorageCommand, cfg.Redirector, logger),
		logger:  logger,
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewSubmission()
	}
	return s
}

// Date returns the formatted submission date.
func (s *Submitter) Date() string {
	return s.date
}

// OutputDir is the remote-store path of this run's output.
func (s *Submitter) OutputDir() string {
	return path.Join(s.cfg.StoreBase, s.cfg.DirPrefix+s.date)
}

// OutputURL is the destination handed to every job.
func (s *Submitter) OutputURL() string {
	return OutputURL(s.cfg.Redirector, s.OutputDir())
}

// Prepare creates the local log directory, the working-area tarball and the remote output
// directory. Any failure aborts the run.
func (s *Submitter) Prepare(ctx context.Context) error {
	logDir := s.localPath(filepath.Join(s.cfg.LogDir, s.date))
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if _, err := EnsureTarball(ctx, s.runner, s.cfg.ArchiveCommand, s.cfg.Tarball, s.localPath(s.cfg.Tarball), s.cfg.CMSSWDir, s.logger); err != nil {
		return err
	}
	return s.EnsureOutputDir(ctx)
}

// EnsureOutputDir creates the remote output directory unless it already exists.
func (s *Submitter) EnsureOutputDir(ctx context.Context) error {
	_, err := s.storage.EnsureDir(ctx, s.OutputDir())
	return err
}

// Plan partitions every sample into chunks in sample order. A mass point listed twice is an
// error.
func (s *Submitter) Plan(specs []model.JobSpec) ([]model.JobChunk, error) {
	var chunks []model.JobChunk
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if seen[spec.MassPoint] {
			return nil, fmt.Errorf("mass point %s: %w", spec.MassPoint, ErrDuplicateMassPoint)
		}
		seen[spec.MassPoint] = true
		part, err := Chunks(spec, s.cfg.MaxEvents, s.OutputURL())
		if err != nil {
			return nil, err
		}
		s.logger.Info("building jobs",
			zap.String("mass_point", spec.MassPoint),
			zap.Int("total_events", spec.TotalEvents),
			zap.Int("jobs", len(part)),
		)
		for _, c := range part {
			s.metrics.RecordChunk(c.MassPoint, c.Events)
		}
		chunks = append(chunks, part...)
	}
	return chunks, nil
}

// Submit handles chunks in order. In dry-run mode only the argument lines are printed. A failed
// chunk is recorded and the loop moves on; the failures are returned together.
func (s *Submitter) Submit(ctx context.Context, chunks []model.JobChunk) (Result, error) {
	var res Result
	var result *multierror.Error
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		job := model.SubmittedJob{
			RunID:     s.runID,
			MassPoint: chunk.MassPoint,
			Events:    chunk.Events,
			Index:     chunk.Index,
		}
		log := s.logger.With(zap.String("mass_point", chunk.MassPoint), zap.Int("index", chunk.Index))

		if s.cfg.DryRun {
			fmt.Fprintf(s.out, "Arguments = %s\n", Arguments(chunk))
			job.Status = model.JobDryRun
			s.record(ctx, &res, job)
			continue
		}

		name := JDLName(chunk, s.date)
		job.JDLPath = name
		start := time.Now()
		err := s.submitOne(ctx, chunk, name)
		if err != nil {
			err = fmt.Errorf("job %d of mass point %s: %w", chunk.Index, chunk.MassPoint, err)
			log.Warn("submission failed", zap.Error(err))
			s.metrics.RecordFailed(chunk.MassPoint, time.Since(start))
			job.Status = model.JobFailed
			job.Error = err.Error()
			res.Failed++
			result = multierror.Append(result, err)
		} else {
			log.Info("job submitted", zap.String("jdl", name), zap.Int("events", chunk.Events))
			s.metrics.RecordSubmitted(chunk.MassPoint, time.Since(start))
			job.Status = model.JobSubmitted
			res.Submitted++
		}
		s.record(ctx, &res, job)
	}
	return res, result.ErrorOrNil()
}

func (s *Submitter) submitOne(ctx context.Context, chunk model.JobChunk, name string) error {
	if err := s.writeJDL(chunk, name); err != nil {
		return err
	}
	if _, err := s.runner.Run(ctx, s.cfg.SubmitCommand, name); err != nil {
		return fmt.Errorf("failed to submit %s: %w", name, err)
	}
	return nil
}

func (s *Submitter) writeJDL(chunk model.JobChunk, name string) (err error) {
	f, err := os.Create(s.localPath(name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", name, cerr)
		}
	}()
	if _, err := NewJobDescription(chunk, s.cfg, s.date).WriteTo(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *Submitter) record(ctx context.Context, res *Result, job model.SubmittedJob) {
	res.Jobs = append(res.Jobs, job)
	if s.ledger == nil {
		return
	}
	if err := s.ledger.InsertJob(ctx, job); err != nil {
		s.logger.Warn("failed to record job", zap.Error(err))
	}
}

func (s *Submitter) localPath(p string) string {
	if filepath.IsAbs(p) || s.cfg.WorkDir == "" {
		return p
	}
	return filepath.Join(s.cfg.WorkDir, p)
}
