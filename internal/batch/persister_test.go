package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ministry-roster-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter stores applied chunks and fails the n-th call when failOn > 0
type recordingWriter struct {
	chunks [][]models.Mutation
	calls  int
	failOn int
}

func (w *recordingWriter) ApplyBatch(ctx context.Context, mutations []models.Mutation) error {
	w.calls++
	if w.failOn > 0 && w.calls == w.failOn {
		return errors.New("transaction limit exceeded")
	}
	w.chunks = append(w.chunks, mutations)
	return nil
}

func rows(n int, status models.ChangeStatus) []models.ChangeClassification {
	out := make([]models.ChangeClassification, n)
	for i := range out {
		out[i] = models.ChangeClassification{
			ID:         fmt.Sprintf("%d", i),
			Name:       fmt.Sprintf("PERSON %d", i),
			Unit:       "HAB",
			Department: "UTI ADULTO",
			Status:     status,
		}
	}
	return out
}

func TestPlan(t *testing.T) {
	report := []models.ChangeClassification{
		{ID: "1", Name: "A", Unit: "HAB", Department: "D", Status: models.StatusNew},
		{ID: "2", Name: "B", Unit: "HAB", Department: "D", Status: models.StatusUpdated},
		{ID: "3", Name: "C", Unit: "HAB", Status: models.StatusInactivated},
		{ID: "4", Name: "D", Unit: "HAB", Status: models.StatusUnchanged},
	}

	roster := Plan(models.CatalogRoster, report)
	require.Len(t, roster, 3)
	assert.Equal(t, models.Mutation{
		Kind: models.MutationUpsertRoster, Catalog: models.CatalogRoster,
		Unit: "HAB", Key: "1", Name: "A", Department: "D",
	}, roster[0])
	assert.Equal(t, models.MutationUpsertRoster, roster[1].Kind)
	assert.Equal(t, models.Mutation{
		Kind: models.MutationDeactivate, Catalog: models.CatalogRoster, Unit: "HAB", Key: "3",
	}, roster[2])

	groups := Plan(models.CatalogGroups, report)
	require.Len(t, groups, 3)
	assert.Equal(t, models.MutationUpsertCatalog, groups[0].Kind)
	assert.Empty(t, groups[0].Department)
}

func TestChunks(t *testing.T) {
	muts := make([]models.Mutation, 1001)
	chunks := Chunks(muts, 400)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 400)
	assert.Len(t, chunks[1], 400)
	assert.Len(t, chunks[2], 201)

	assert.Empty(t, Chunks(nil, 400))
	assert.Len(t, Chunks(make([]models.Mutation, 400), 400), 1)
}

func TestCommit_AllChunks(t *testing.T) {
	w := &recordingWriter{}
	var observed []int
	p := New(w, 400, zerolog.Nop()).WithObserver(func(chunk, size int, err error) {
		assert.NoError(t, err)
		observed = append(observed, size)
	})

	result, err := p.Commit(context.Background(), models.CatalogRoster, rows(900, models.StatusNew))
	require.NoError(t, err)
	assert.Equal(t, Result{TotalChunks: 3, ChunksCommitted: 3, Written: 900}, result)
	assert.Equal(t, []int{400, 400, 100}, observed)
	for _, c := range w.chunks {
		assert.LessOrEqual(t, len(c), 400)
	}
}

func TestCommit_StopsAtFirstFailure(t *testing.T) {
	w := &recordingWriter{failOn: 2}
	p := New(w, 400, zerolog.Nop())

	result, err := p.Commit(context.Background(), models.CatalogRoster, rows(1000, models.StatusUpdated))
	require.Error(t, err)

	var perr *models.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.ChunksCommitted)
	assert.Equal(t, 3, perr.TotalChunks)
	assert.Equal(t, 2, w.calls, "no chunk is attempted after a failure")
	assert.Equal(t, Result{TotalChunks: 3, ChunksCommitted: 1, Written: 400}, result)
}

func TestCommit_NothingToWrite(t *testing.T) {
	w := &recordingWriter{}
	p := New(w, 400, zerolog.Nop())

	result, err := p.Commit(context.Background(), models.CatalogSectors, rows(10, models.StatusUnchanged))
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.Zero(t, w.calls)
}

func TestNew_ClampsChunkSize(t *testing.T) {
	p := New(&recordingWriter{}, 0, zerolog.Nop())
	assert.Equal(t, 1, p.ChunkSize())
}
