package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/chunk"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/embed"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/errors"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/events"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/semidx"
)

// Updater performs an incremental update of an existing semantic index.
type Updater struct {
	store       *semidx.Store
	scanner     *scanner.Scanner
	chunker     chunk.Chunker
	embedder    embed.Embedder
	bus         *events.Bus
	maxFileSize int64
}

// NewUpdater creates an Updater over the given store, scanner, chunker,
// and embedder.
func NewUpdater(store *semidx.Store, sc *scanner.Scanner, chunker chunk.Chunker, embedder embed.Embedder, opts ...Option) *Updater {
	o := newPipelineOptions(opts)
	return &Updater{
		store: store, scanner: sc, chunker: chunker, embedder: embedder,
		bus: o.bus, maxFileSize: o.maxFileSize,
	}
}

func (u *Updater) publish(ev events.Event) {
	if u.bus != nil {
		u.bus.Publish(ev)
	}
}

// UpdateResult summarizes one incremental update run.
type UpdateResult struct {
	ChangedFiles int
	RemovedFiles int
	DurationMs   int64
}

// Update performs an incremental update over repoRoot. Fails with an
// ErrCodeIncompatibleEmbedder error if the store has no meta or the stored
// meta's embedderId/dims differ from the configured embedder: the store is
// closed and a full rebuild is required.
func (u *Updater) Update(ctx context.Context, repoID, repoRoot string, opts scanner.ScanOptions) (*UpdateResult, error) {
	start := time.Now()

	meta, err := u.store.GetMeta()
	if err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}
	if meta == nil || meta.EmbedderID != u.embedder.ModelName() || meta.Dims != u.embedder.Dimensions() {
		_ = u.store.Close()
		return nil, errors.New(errors.ErrCodeIncompatibleEmbedder,
			"Embedder configuration has changed. Please rebuild the index.", nil)
	}

	u.publish(events.UpdateStarted(repoID))

	snap, err := u.scanner.Scan(ctx, repoRoot, opts)
	if err != nil {
		return nil, fmt.Errorf("scan repo: %w", err)
	}

	priorFiles, err := u.store.GetAllFiles()
	if err != nil {
		return nil, fmt.Errorf("get all files: %w", err)
	}
	priorByPath := make(map[string]semidx.FileRow, len(priorFiles))
	for _, f := range priorFiles {
		priorByPath[f.Path] = f
	}

	result := &UpdateResult{}
	seen := make(map[string]bool, len(snap.Files))

	for _, rec := range snap.Files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		seen[rec.RelPath] = true

		prior, existed := priorByPath[rec.RelPath]
		if existed && prior.MtimeMs == rec.MtimeMs && prior.SizeBytes == rec.SizeBytes {
			continue
		}
		if rec.SizeBytes > u.maxFileSize {
			continue
		}

		content, fileHash, err := readAndHash(rec.AbsPath)
		if err != nil {
			continue
		}
		if existed && prior.FileHash == fileHash {
			continue
		}

		language := rec.LanguageHint
		if language == "" {
			continue
		}

		if err := u.store.UpsertFile(semidx.FileRow{
			Path: rec.RelPath, FileHash: fileHash, Language: language,
			MtimeMs: rec.MtimeMs, SizeBytes: rec.SizeBytes,
		}); err != nil {
			return nil, fmt.Errorf("upsert file meta for %s: %w", rec.RelPath, err)
		}

		chunks, err := u.chunker.Chunk(ctx, &chunk.FileInput{
			Path: rec.RelPath, Content: content, Language: language, FileHash: fileHash,
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", rec.RelPath, err)
		}

		if err := u.store.ReplaceChunksForFile(rec.RelPath, toChunkRows(chunks)); err != nil {
			return nil, fmt.Errorf("replace chunks for %s: %w", rec.RelPath, err)
		}

		if len(chunks) > 0 {
			vectors, err := embedChunks(ctx, u.embedder, chunks)
			if err != nil {
				return nil, fmt.Errorf("embed chunks for %s: %w", rec.RelPath, err)
			}
			if err := u.store.UpsertEmbeddings(vectors); err != nil {
				return nil, fmt.Errorf("upsert embeddings for %s: %w", rec.RelPath, err)
			}
		}

		result.ChangedFiles++
	}

	for path := range priorByPath {
		if seen[path] {
			continue
		}
		if err := u.store.DeleteFile(path); err != nil {
			return nil, fmt.Errorf("delete removed file %s: %w", path, err)
		}
		result.RemovedFiles++
	}

	now := time.Now()
	meta.UpdatedAt = now.UnixMilli()
	if err := u.store.SetMeta(*meta); err != nil {
		return nil, fmt.Errorf("update meta: %w", err)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	u.publish(events.UpdateFinished(repoID, result.ChangedFiles, result.RemovedFiles, result.DurationMs))
	return result, nil
}
