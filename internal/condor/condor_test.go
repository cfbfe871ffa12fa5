package condor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpchscp/rhadron/internal/model"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls   []call
	handler func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.handler == nil {
		return nil, nil
	}
	return f.handler(name, args)
}

func (f *fakeRunner) count(name, sub string) int {
	n := 0
	for _, c := range f.calls {
		if c.name != name {
			continue
		}
		if sub == "" || (len(c.args) > 1 && c.args[1] == sub) {
			n++
		}
	}
	return n
}

type memLedger struct {
	jobs []model.SubmittedJob
}

func (m *memLedger) InsertJob(_ context.Context, job model.SubmittedJob) error {
	m.jobs = append(m.jobs, job)
	return nil
}

var submitDate = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

func testConfig(t *testing.T) model.SubmitConfig {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WorkDir = t.TempDir()
	return cfg
}

func newTestSubmitter(cfg model.SubmitConfig, runner Runner, opts ...Option) *Submitter {
	s := NewSubmitter(cfg, submitDate, runner, nil, opts...)
	s.storage.retryDelay = 0
	return s
}

func TestPartitionScenarios(t *testing.T) {
	cases := []struct {
		total, perJob int
		want          []int
	}{
		{2500, 1000, []int{1000, 1000, 500}},
		{800, 1000, []int{800}},
		{1000, 1000, []int{1000}},
		{3, 1, []int{1, 1, 1}},
	}
	for _, tc := range cases {
		got, err := Partition(tc.total, tc.perJob)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "total=%d perJob=%d", tc.total, tc.perJob)
	}
}

func TestPartitionProperties(t *testing.T) {
	for total := 1; total <= 300; total++ {
		for perJob := 1; perJob <= 40; perJob++ {
			sizes, err := Partition(total, perJob)
			if err != nil {
				t.Fatalf("Partition(%d, %d) failed: %v", total, perJob, err)
			}
			sum, short := 0, 0
			for i, n := range sizes {
				if n > perJob || n <= 0 {
					t.Fatalf("Partition(%d, %d): chunk %d out of range", total, perJob, n)
				}
				if n < perJob {
					short++
					if i != len(sizes)-1 {
						t.Fatalf("Partition(%d, %d): short chunk not last: %v", total, perJob, sizes)
					}
				}
				sum += n
			}
			if sum != total || short > 1 {
				t.Fatalf("Partition(%d, %d) = %v", total, perJob, sizes)
			}
		}
	}
}

func TestPartitionRejectsNonPositive(t *testing.T) {
	for _, tc := range [][2]int{{0, 1000}, {-5, 1000}, {100, 0}, {100, -1}} {
		_, err := Partition(tc[0], tc[1])
		assert.True(t, errors.Is(err, ErrInvalidPartition), "Partition(%d, %d)", tc[0], tc[1])
	}
}

func TestChunksAreIndexed(t *testing.T) {
	chunks, err := Chunks(model.JobSpec{MassPoint: "1800", TotalEvents: 2500}, 1000, "root://x//out")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "1800", c.MassPoint)
		assert.Equal(t, "root://x//out", c.OutputDir)
	}
	assert.Equal(t, 500, chunks[2].Events)

	_, err = Chunks(model.JobSpec{MassPoint: "2400"}, 1000, "")
	assert.ErrorContains(t, err, "mass point 2400")
}

func TestReadSamples(t *testing.T) {
	input := "1800, 2500\n\n# comment\n  2400,800  \n1000,1000,extra\n"
	specs, err := ReadSamples(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []model.JobSpec{
		{MassPoint: "1800", TotalEvents: 2500},
		{MassPoint: "2400", TotalEvents: 800},
		{MassPoint: "1000", TotalEvents: 1000},
	}, specs)
}

func TestReadSamplesReportsLine(t *testing.T) {
	_, err := ReadSamples(strings.NewReader("1800,2500\n1800\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadSamples(strings.NewReader("1800,lots\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestReadSamplesRejectsRepeatedMassPoint(t *testing.T) {
	_, err := ReadSamples(strings.NewReader("1800,500\n2400,100\n1800,700\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateMassPoint))
	assert.ErrorContains(t, err, "line 3")
	assert.ErrorContains(t, err, "line 1")
}

func TestPlanRejectsRepeatedMassPoint(t *testing.T) {
	runner := &fakeRunner{}
	ledger := &memLedger{}
	s := newTestSubmitter(testConfig(t), runner, WithLedger(ledger, 1))

	chunks, err := s.Plan([]model.JobSpec{
		{MassPoint: "1800", TotalEvents: 500},
		{MassPoint: "1800", TotalEvents: 700},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateMassPoint))
	assert.Nil(t, chunks)
	assert.Empty(t, runner.calls)
	assert.Empty(t, ledger.jobs)
}

func TestLoadSamplesMissingFile(t *testing.T) {
	_, err := LoadSamples(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestJobDescriptionWriteTo(t *testing.T) {
	chunk := model.JobChunk{MassPoint: "1800", Events: 500, OutputDir: "root://cmseos.fnal.gov//store/out", Index: 2}
	var buf bytes.Buffer
	n, err := NewJobDescription(chunk, DefaultConfig(), "2024-05-02").WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	want := "universe = vanilla\n" +
		"Should_Transfer_Files = YES\n" +
		"WhenToTransferOutput = ON_EXIT\n" +
		"Transfer_Input_Files = cmsswTar.tar.gz\n" +
		"Output = condorMonitoringOutput/2024-05-02/production_M1800_2_out.stdout\n" +
		"Error = condorMonitoringOutput/2024-05-02/production_M1800_2_err.stderr\n" +
		"Log = condorMonitoringOutput/2024-05-02/production_M1800_2_log.log\n" +
		"Executable = runGenerator.sh\n" +
		"Arguments = 1800 500 root://cmseos.fnal.gov//store/out 2\n" +
		"+ApptainerImage = \"/cvmfs/singularity.opensciencegrid.org/cmssw/cms:rhel7\"\n" +
		"Queue 1\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, "production_M1800_2024-05-02_2.jdl", JDLName(chunk, "2024-05-02"))
}

func TestSubmitterOutputURL(t *testing.T) {
	s := newTestSubmitter(DefaultConfig(), &fakeRunner{})
	assert.Equal(t, "/store/user/lpchscp/gcumming/signalv3_prod_2024-05-02", s.OutputDir())
	assert.Equal(t, "root://cmseos.fnal.gov//store/user/lpchscp/gcumming/signalv3_prod_2024-05-02", s.OutputURL())
}

func TestDryRunWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	runner := &fakeRunner{}
	ledger := &memLedger{}
	var out bytes.Buffer
	s := newTestSubmitter(cfg, runner, WithOutput(&out), WithLedger(ledger, 7))

	chunks, err := s.Plan([]model.JobSpec{{MassPoint: "1800", TotalEvents: 1500}})
	require.NoError(t, err)
	res, err := s.Submit(context.Background(), chunks)
	require.NoError(t, err)

	assert.Empty(t, runner.calls)
	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, res.Submitted)
	assert.Contains(t, out.String(), "Arguments = 1800 1000 "+s.OutputURL()+" 0\n")
	assert.Contains(t, out.String(), "Arguments = 1800 500 "+s.OutputURL()+" 1\n")
	require.Len(t, ledger.jobs, 2)
	assert.Equal(t, model.JobDryRun, ledger.jobs[0].Status)
	assert.Equal(t, int64(7), ledger.jobs[1].RunID)
}

func TestFailedChunkDoesNotStopLaterChunks(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		if name == DefaultSubmitCommand && strings.HasSuffix(args[0], "_1.jdl") {
			return nil, errors.New("exit status 1")
		}
		return nil, nil
	}}
	ledger := &memLedger{}
	s := newTestSubmitter(cfg, runner, WithLedger(ledger, 1))

	chunks, err := s.Plan([]model.JobSpec{{MassPoint: "1800", TotalEvents: 2500}})
	require.NoError(t, err)
	res, err := s.Submit(context.Background(), chunks)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 1)
	assert.Equal(t, 2, res.Submitted)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, runner.count(DefaultSubmitCommand, ""))

	require.Len(t, ledger.jobs, 3)
	assert.Equal(t, model.JobSubmitted, ledger.jobs[0].Status)
	assert.Equal(t, model.JobFailed, ledger.jobs[1].Status)
	assert.Contains(t, ledger.jobs[1].Error, "exit status 1")
	assert.Equal(t, model.JobSubmitted, ledger.jobs[2].Status)

	for _, c := range chunks {
		_, err := os.Stat(filepath.Join(cfg.WorkDir, JDLName(c, "2024-05-02")))
		assert.NoError(t, err)
	}
}

func TestSubmitStopsOnCancelledContext(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSubmitter(testConfig(t), runner)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks, err := s.Plan([]model.JobSpec{{MassPoint: "1800", TotalEvents: 10}})
	require.NoError(t, err)
	_, err = s.Submit(ctx, chunks)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, runner.calls)
}

func TestEnsureDirSkipsExisting(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		return []byte("signalv3_prod_2024-05-01\nsignalv3_prod_2024-05-02\n"), nil
	}}
	s := newTestSubmitter(DefaultConfig(), runner)
	require.NoError(t, s.EnsureOutputDir(context.Background()))
	assert.Equal(t, 1, runner.count("eos", "ls"))
	assert.Equal(t, 0, runner.count("eos", "mkdir"))
	assert.Equal(t, []string{DefaultRedirector, "ls", "/store/user/lpchscp/gcumming/"}, runner.calls[0].args)
}

func TestEnsureDirCreatesMissing(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		if args[1] == "ls" {
			return []byte("signalv3_prod_2024-05-01\n"), nil
		}
		return nil, nil
	}}
	s := newTestSubmitter(DefaultConfig(), runner)
	require.NoError(t, s.EnsureOutputDir(context.Background()))
	require.Equal(t, 1, runner.count("eos", "mkdir"))
	assert.Equal(t, s.OutputDir(), runner.calls[1].args[2])
}

func TestEnsureDirRetriesOnce(t *testing.T) {
	failures := 1
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		if args[1] == "ls" && failures > 0 {
			failures--
			return nil, errors.New("connection refused")
		}
		return []byte("signalv3_prod_2024-05-02"), nil
	}}
	s := newTestSubmitter(DefaultConfig(), runner)
	require.NoError(t, s.EnsureOutputDir(context.Background()))
	assert.Equal(t, 2, runner.count("eos", "ls"))
}

func TestEnsureDirFailsAfterRetry(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}}
	s := newTestSubmitter(DefaultConfig(), runner)
	err := s.EnsureOutputDir(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, runner.count("eos", "ls"))
	assert.Equal(t, 0, runner.count("eos", "mkdir"))
}

func TestEnsureTarballReusesExisting(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, DefaultTarball)
	require.NoError(t, os.WriteFile(local, []byte("tar"), 0o644))

	runner := &fakeRunner{}
	created, err := EnsureTarball(context.Background(), runner, "tar", DefaultTarball, local, DefaultCMSSWDir, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, runner.calls)
}

func TestEnsureTarballCreatesArchive(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{}
	created, err := EnsureTarball(context.Background(), runner, "tar", DefaultTarball, filepath.Join(dir, DefaultTarball), DefaultCMSSWDir, nil)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"-hcf", DefaultTarball, DefaultCMSSWDir}, runner.calls[0].args)

	failing := &fakeRunner{handler: func(string, []string) ([]byte, error) { return nil, errors.New("no space") }}
	_, err = EnsureTarball(context.Background(), failing, "tar", DefaultTarball, filepath.Join(dir, DefaultTarball), DefaultCMSSWDir, nil)
	assert.ErrorContains(t, err, "failed to create tarball")
}

func TestPrepareCreatesLogDirectory(t *testing.T) {
	cfg := testConfig(t)
	runner := &fakeRunner{handler: func(name string, args []string) ([]byte, error) {
		return []byte("signalv3_prod_2024-05-02"), nil
	}}
	s := newTestSubmitter(cfg, runner)
	require.NoError(t, s.Prepare(context.Background()))

	info, err := os.Stat(filepath.Join(cfg.WorkDir, DefaultLogDir, "2024-05-02"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, 1, runner.count("tar", ""))
}
