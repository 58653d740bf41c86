package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vpatelsj/layoutapply/internal/layoutapply/model"
)

// setupTestStore starts a disposable Postgres container and returns a Store
// with migrations applied, grounded on
// ipiton-alert-history-service's postgres_history_test.go setupTestDB.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed store test in -short mode")
	}
	ctx := context.Background()

	dbName, dbUser, dbPassword := "layoutapply_test", "testuser", "testpassword"
	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, connStr, nil))

	st, err := Open(ctx, connStr, nil)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func samplePlan() model.Plan {
	return model.Plan{Operations: []model.Operation{
		{ID: 1, Kind: model.KindBoot, Targets: model.Targets{DeviceID: "D1"}},
	}}
}

func TestRegister_EmptyPlanIsImmediatelyCompleted(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, model.Plan{}, true)
	require.NoError(t, err)

	rec, err := st.Get(ctx, applyID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplyCompleted, rec.Status)
	assert.False(t, rec.EndedAt.IsZero())
}

func TestRegister_SecondActiveApplyIsRejected(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	_, err := st.Register(ctx, samplePlan(), false)
	require.NoError(t, err)

	_, err = st.Register(ctx, samplePlan(), false)
	require.Error(t, err)
}

func TestUpdateThenGet_RoundTripsApplyResult(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, samplePlan(), false)
	require.NoError(t, err)

	results := []model.OpResult{{OperationID: 1, Status: model.StatusCompleted, StatusCode: 200}}
	status := model.ApplyCompleted
	now := time.Now().UTC().Truncate(time.Millisecond)
	err = st.Update(ctx, applyID, UpdateOpts{ApplyResult: results, Status: &status, EndedAt: &now})
	require.NoError(t, err)

	rec, err := st.Get(ctx, applyID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplyCompleted, rec.Status)
	require.Len(t, rec.ApplyResult, 1)
	assert.Equal(t, model.StatusCompleted, rec.ApplyResult[0].Status)
	assert.WithinDuration(t, now, rec.EndedAt, time.Second)
}

func TestUpdate_UnknownApplyIDFails(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	status := model.ApplyCompleted
	err := st.Update(ctx, "does-not-exist", UpdateOpts{Status: &status})
	assert.Error(t, err)
}

func TestCancelRequest_InProgressAndAliveMovesToCanceling(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, samplePlan(), false)
	require.NoError(t, err)

	transition, err := st.CancelRequest(ctx, applyID, true, true)
	require.NoError(t, err)
	assert.Equal(t, model.ApplyCanceling, transition.Status)
	assert.Nil(t, transition.Err)

	rec, err := st.Get(ctx, applyID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplyCanceling, rec.Status)
	assert.True(t, rec.ExecuteRollback)
}

func TestCancelRequest_InProgressButNotAliveFailsTheApply(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, samplePlan(), false)
	require.NoError(t, err)

	transition, err := st.CancelRequest(ctx, applyID, false, false)
	require.NoError(t, err)
	assert.Equal(t, model.ApplyFailed, transition.Status)
	require.NotNil(t, transition.Err)
}

func TestCancelRequest_TerminalApplyIsRejected(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, model.Plan{}, true) // immediately COMPLETED
	require.NoError(t, err)

	transition, err := st.CancelRequest(ctx, applyID, false, true)
	require.NoError(t, err)
	require.NotNil(t, transition.Err)
	assert.Equal(t, model.ApplyCompleted, transition.Status)
}

func TestResumeRequest_SuspendedApplyMovesToInProgress(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, samplePlan(), false)
	require.NoError(t, err)

	suspended := model.ApplySuspended
	require.NoError(t, st.Update(ctx, applyID, UpdateOpts{Status: &suspended}))

	transition, err := st.ResumeRequest(ctx, applyID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplyInProgress, transition.Status)
}

func TestResumeRequest_NoSuspendedPhaseFails(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, samplePlan(), false)
	require.NoError(t, err)

	_, err = st.ResumeRequest(ctx, applyID)
	assert.Error(t, err)
}

func TestDelete_RefusesActiveApply(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, samplePlan(), false)
	require.NoError(t, err)

	err = st.Delete(ctx, applyID)
	assert.Error(t, err)
}

func TestDelete_RemovesTerminalApply(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	applyID, err := st.Register(ctx, model.Plan{}, true)
	require.NoError(t, err)

	require.NoError(t, st.Delete(ctx, applyID))

	_, err = st.Get(ctx, applyID)
	assert.Error(t, err)
}

func TestList_FiltersByStatusAndPaginates(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.Register(ctx, model.Plan{}, true)
		require.NoError(t, err)
	}

	result, err := st.List(ctx, ListFilter{Status: model.ApplyCompleted, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Len(t, result.Items, 2)
}
