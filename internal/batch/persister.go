// Package batch commits confirmed changes to the store in size-bounded
// chunks. Each chunk is one atomic transaction; chunks are not rolled back
// together, so a failure leaves earlier chunks applied.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/ministry-roster-api/internal/models"
	"github.com/rs/zerolog"
)

// Writer applies one chunk of mutations atomically
type Writer interface {
	ApplyBatch(ctx context.Context, mutations []models.Mutation) error
}

// Result summarizes a commit
type Result struct {
	TotalChunks     int `json:"total_chunks"`
	ChunksCommitted int `json:"chunks_committed"`
	Written         int `json:"written"`
}

// ChunkObserver is notified after every chunk attempt
type ChunkObserver func(chunk, size int, err error)

// Persister splits mutations into chunks and applies them in order
type Persister struct {
	writer    Writer
	chunkSize int
	observer  ChunkObserver
	log       zerolog.Logger
}

// New creates a Persister. chunkSize must match the store's transaction limit.
func New(writer Writer, chunkSize int, log zerolog.Logger) *Persister {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Persister{
		writer:    writer,
		chunkSize: chunkSize,
		log:       log.With().Str("component", "batch").Logger(),
	}
}

// WithObserver returns a copy of p that reports every chunk to observer
func (p *Persister) WithObserver(observer ChunkObserver) *Persister {
	cp := *p
	cp.observer = observer
	return &cp
}

// ChunkSize returns the configured chunk bound
func (p *Persister) ChunkSize() int {
	return p.chunkSize
}

// Plan converts classified rows into store mutations. Unchanged rows
// produce nothing.
func Plan(catalog models.Catalog, rows []models.ChangeClassification) []models.Mutation {
	mutations := make([]models.Mutation, 0, len(rows))
	for _, row := range rows {
		switch row.Status {
		case models.StatusNew, models.StatusUpdated:
			m := models.Mutation{
				Catalog: catalog,
				Unit:    row.Unit,
				Key:     row.ID,
				Name:    row.Name,
			}
			if catalog == models.CatalogRoster {
				m.Kind = models.MutationUpsertRoster
				m.Department = row.Department
			} else {
				m.Kind = models.MutationUpsertCatalog
			}
			mutations = append(mutations, m)
		case models.StatusInactivated:
			mutations = append(mutations, models.Mutation{
				Kind:    models.MutationDeactivate,
				Catalog: catalog,
				Unit:    row.Unit,
				Key:     row.ID,
			})
		}
	}
	return mutations
}

// Chunks splits mutations into consecutive slices of at most size elements
func Chunks(mutations []models.Mutation, size int) [][]models.Mutation {
	if size <= 0 {
		size = 1
	}
	var chunks [][]models.Mutation
	for start := 0; start < len(mutations); start += size {
		end := start + size
		if end > len(mutations) {
			end = len(mutations)
		}
		chunks = append(chunks, mutations[start:end])
	}
	return chunks
}

// Commit plans and applies the confirmed rows of catalog
func (p *Persister) Commit(ctx context.Context, catalog models.Catalog, rows []models.ChangeClassification) (Result, error) {
	return p.Apply(ctx, Plan(catalog, rows))
}

// Apply writes mutations chunk by chunk. The first failing chunk stops the
// sequence and is reported as a *models.PersistenceError; no retry happens.
func (p *Persister) Apply(ctx context.Context, mutations []models.Mutation) (Result, error) {
	chunks := Chunks(mutations, p.chunkSize)
	result := Result{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		return result, nil
	}

	start := time.Now()
	for i, chunk := range chunks {
		err := p.writer.ApplyBatch(ctx, chunk)
		if p.observer != nil {
			p.observer(i, len(chunk), err)
		}
		if err != nil {
			p.log.Error().Err(err).
				Int("chunk", i+1).
				Int("total_chunks", len(chunks)).
				Int("chunks_committed", result.ChunksCommitted).
				Msg("Chunk commit failed, remaining chunks abandoned")
			return result, &models.PersistenceError{
				ChunksCommitted: result.ChunksCommitted,
				TotalChunks:     len(chunks),
				Err:             fmt.Errorf("apply chunk %d: %w", i+1, err),
			}
		}
		result.ChunksCommitted++
		result.Written += len(chunk)

		p.log.Debug().
			Int("chunk", i+1).
			Int("total_chunks", len(chunks)).
			Int("size", len(chunk)).
			Msg("Chunk committed")
	}

	p.log.Info().
		Int("chunks", result.ChunksCommitted).
		Int("written", result.Written).
		Dur("duration", time.Since(start)).
		Msg("Batch commit completed")

	return result, nil
}
