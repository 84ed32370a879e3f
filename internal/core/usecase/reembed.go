package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/cleanlight/instant-sme/internal/core/ports"
)

const (
	defaultReembedWorkers = 4
	reembedBatchSize      = 100
)

// ReembedUseCase embeds chunks that have no stored vector yet, in
// batches, using a bounded worker pool. It is driven by the embed worker
// via the job queue.
type ReembedUseCase struct {
	store    ports.ChunkEmbeddingStore
	provider ports.EmbeddingProvider
	workers  int
	logger   *slog.Logger
}

func NewReembedUseCase(store ports.ChunkEmbeddingStore, provider ports.EmbeddingProvider, workers int, logger *slog.Logger) *ReembedUseCase {
	if workers <= 0 {
		workers = defaultReembedWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReembedUseCase{store: store, provider: provider, workers: workers, logger: logger}
}

// Run drains the store of unembedded chunks and reports how many were
// embedded. Any persistent failure aborts the job so the queue can
// redeliver it.
func (uc *ReembedUseCase) Run(ctx context.Context, jobID string) (int, error) {
	if uc.provider == nil {
		return 0, fmt.Errorf("reembed job %s: no embedding provider configured", jobID)
	}

	pool, err := ants.NewPool(uc.workers)
	if err != nil {
		return 0, fmt.Errorf("create embed worker pool: %w", err)
	}
	defer pool.Release()

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		chunks, err := uc.store.FetchChunksWithoutEmbedding(ctx, reembedBatchSize)
		if err != nil {
			return total, fmt.Errorf("fetch chunks without embedding: %w", err)
		}
		if len(chunks) == 0 {
			break
		}

		errs := make([]error, len(chunks))
		var wg sync.WaitGroup
		for i := range chunks {
			wg.Add(1)
			chunk := chunks[i]
			idx := i
			if submitErr := pool.Submit(func() {
				defer wg.Done()
				errs[idx] = uc.embedChunk(ctx, chunk.ID, chunk.Text)
			}); submitErr != nil {
				wg.Done()
				errs[idx] = fmt.Errorf("submit embed task: %w", submitErr)
			}
		}
		wg.Wait()

		for _, embedErr := range errs {
			if embedErr != nil {
				return total, fmt.Errorf("embed batch: %w", embedErr)
			}
		}
		total += len(chunks)
	}

	uc.logger.Info("reembed_job_complete", "job_id", jobID, "chunks", total)
	return total, nil
}

func (uc *ReembedUseCase) embedChunk(ctx context.Context, chunkID, text string) error {
	vectors, err := uc.provider.EmbedTexts(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embed chunk %s: %w", chunkID, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("embed chunk %s: expected 1 vector, got %d", chunkID, len(vectors))
	}
	if err := uc.store.SaveChunkEmbedding(ctx, chunkID, vectors[0]); err != nil {
		return fmt.Errorf("save chunk embedding %s: %w", chunkID, err)
	}
	return nil
}
