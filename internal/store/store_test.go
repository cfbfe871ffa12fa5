package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpchscp/rhadron/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "rhadron.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestRunAndJobRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	run, err := st.InsertRun(ctx, model.SubmissionRun{
		StartedAt: started,
		SampleCSV: "samples.csv",
		OutputURL: "root://cmseos.fnal.gov//store/user/lpchscp/gcumming/signalv3_prod_2024-05-02",
		MaxEvents: 1000,
	})
	require.NoError(t, err)
	assert.NotZero(t, run.ID)
	assert.Len(t, run.UUID, 36)

	jobs := []model.SubmittedJob{
		{RunID: run.ID, MassPoint: "1800", Events: 1000, Index: 1, JDLPath: "b.jdl", Status: model.JobFailed, Error: "exit status 1"},
		{RunID: run.ID, MassPoint: "1800", Events: 1000, Index: 0, JDLPath: "a.jdl", Status: model.JobSubmitted},
	}
	for _, job := range jobs {
		require.NoError(t, st.InsertJob(ctx, job))
	}
	require.NoError(t, st.FinishRun(ctx, run.ID, 2, 1))

	got, err := st.GetRun(ctx, run.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.JobCount)
	assert.Equal(t, 1, got.FailedJobs)
	assert.False(t, got.DryRun)
	assert.True(t, got.StartedAt.Equal(started))

	stored, err := st.ListJobs(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0, stored[0].Index)
	assert.Equal(t, model.JobSubmitted, stored[0].Status)
	assert.Equal(t, "exit status 1", stored[1].Error)
}

func TestListRunsReturnsMostRecentInOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Unix(0, 0).UTC()
	var ids []string
	for i := 0; i < 3; i++ {
		run, err := st.InsertRun(ctx, model.SubmissionRun{
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			DryRun:    i == 2,
		})
		require.NoError(t, err)
		ids = append(ids, run.UUID)
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[1], runs[0].UUID)
	assert.Equal(t, ids[2], runs[1].UUID)
	assert.True(t, runs[1].DryRun)

	all, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMissingRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "does-not-exist")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(st.FinishRun(ctx, 42, 1, 0), ErrRunNotFound))
}

func TestAbortRunKeepsReason(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	run, err := st.InsertRun(ctx, model.SubmissionRun{StartedAt: time.Now(), MaxEvents: 1000})
	require.NoError(t, err)
	require.NoError(t, st.AbortRun(ctx, run.ID, "failed to create tarball: exit status 2"))

	got, err := st.GetRun(ctx, run.UUID)
	require.NoError(t, err)
	assert.Equal(t, "failed to create tarball: exit status 2", got.Error)
	assert.Zero(t, got.JobCount)

	runs, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, got.Error, runs[0].Error)

	assert.True(t, errors.Is(st.AbortRun(ctx, run.ID+100, "x"), ErrRunNotFound))
}
