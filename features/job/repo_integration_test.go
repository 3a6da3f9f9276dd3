package job_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nerdward/my-llm-twin/features/job"
	"github.com/Nerdward/my-llm-twin/internal/testutils"
)

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	repo := job.NewPostgresRepo(s.DB)
	ctx := context.Background()

	j1 := &job.Job{EntryID: "a", Handler: "feature", Payload: json.RawMessage(`{"data": 1}`), Error: "error 1"}
	require.NoError(t, repo.Save(ctx, j1))

	time.Sleep(100 * time.Millisecond)

	j2 := &job.Job{EntryID: "b", Handler: "feature", Payload: json.RawMessage(`{"data": 2}`), Error: "error 2", Retries: 5}
	require.NoError(t, repo.Save(ctx, j2))

	jobs, err := repo.List(ctx, job.Filter{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, j2.ID, jobs[0].ID)
	assert.Equal(t, 5, jobs[0].Retries)

	jobs, err = repo.List(ctx, job.Filter{EntryID: "a"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j1.ID, jobs[0].ID)

	jobs, err = repo.List(ctx, job.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	got, err := repo.Get(ctx, j1.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": 1}`, string(got.Payload))

	require.NoError(t, repo.Delete(ctx, j1.ID))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
