package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldledger/internal/importlog/models"
	"fieldledger/pkg/platform/sentinel"
)

func runningJob(t *testing.T, store *InMemoryStore, id int64) models.Job {
	t.Helper()
	job := models.Job{ID: id, Status: models.StatusRunning, StartedAt: time.Now().UTC()}
	require.NoError(t, store.CreateJob(context.Background(), job))
	return job
}

func TestAppendLineGuards(t *testing.T) {
	store := New()
	ctx := context.Background()
	job := runningJob(t, store, 1)

	t.Run("missing job", func(t *testing.T) {
		err := store.AppendLine(ctx, models.LogLine{ID: 1, JobID: 99, Severity: models.SeverityInfo, Message: "x"})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("duplicate line id", func(t *testing.T) {
		line := models.LogLine{ID: 1, JobID: job.ID, Severity: models.SeverityInfo, Message: "x"}
		require.NoError(t, store.AppendLine(ctx, line))
		assert.ErrorIs(t, store.AppendLine(ctx, line), sentinel.ErrDuplicateIdentifier)
	})

	t.Run("terminal job", func(t *testing.T) {
		_, err := store.FinalizeJob(ctx, job.ID, models.StatusFailed, time.Now().UTC())
		require.NoError(t, err)

		err = store.AppendLine(ctx, models.LogLine{ID: 2, JobID: job.ID, Severity: models.SeverityInfo, Message: "late"})
		assert.ErrorIs(t, err, sentinel.ErrInvalidJobState)
	})
}

func TestFinalizeJobDegradesOnErrorLines(t *testing.T) {
	store := New()
	ctx := context.Background()
	job := runningJob(t, store, 1)
	require.NoError(t, store.AppendLine(ctx, models.LogLine{ID: 1, JobID: job.ID, Severity: models.SeverityError, Message: "bad row"}))

	final, err := store.FinalizeJob(ctx, job.ID, models.StatusSucceeded, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, final)

	_, err = store.FinalizeJob(ctx, job.ID, models.StatusFailed, time.Now().UTC())
	assert.ErrorIs(t, err, sentinel.ErrInvalidJobState)
}

func TestDeleteJobCascadesAndFreesLineIDs(t *testing.T) {
	store := New()
	ctx := context.Background()
	job := runningJob(t, store, 1)
	require.NoError(t, store.AppendLine(ctx, models.LogLine{ID: 7, JobID: job.ID, Severity: models.SeverityInfo, Message: "x"}))

	require.NoError(t, store.DeleteJob(ctx, job.ID))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	lines, err := store.Lines(ctx, job.ID, "")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
