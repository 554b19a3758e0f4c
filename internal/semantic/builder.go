// Package semantic implements the Semantic Builder/Updater pipeline: scan,
// hash, chunk, embed, and persist, emitting lifecycle events on the
// process-wide event bus.
package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/chunk"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/embed"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/events"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/semidx"
)

// DefaultMaxFileSize is the default per-file size cap for the builder.
const DefaultMaxFileSize = 1 * 1024 * 1024

// pipelineOptions holds the settings shared by Builder and Updater.
type pipelineOptions struct {
	bus         *events.Bus
	maxFileSize int64
}

// Option configures a Builder or Updater.
type Option func(*pipelineOptions)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(o *pipelineOptions) { o.maxFileSize = n }
}

// WithEventBus attaches a bus that lifecycle events are published to. A
// nil bus (the default) makes event emission a no-op.
func WithEventBus(bus *events.Bus) Option {
	return func(o *pipelineOptions) { o.bus = bus }
}

func newPipelineOptions(opts []Option) pipelineOptions {
	o := pipelineOptions{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Builder performs a full scan -> hash -> chunk -> embed -> persist build
// of the semantic index for one repository.
type Builder struct {
	store       *semidx.Store
	scanner     *scanner.Scanner
	chunker     chunk.Chunker
	embedder    embed.Embedder
	bus         *events.Bus
	maxFileSize int64
}

// NewBuilder creates a Builder over the given store, scanner, chunker, and
// embedder.
func NewBuilder(store *semidx.Store, sc *scanner.Scanner, chunker chunk.Chunker, embedder embed.Embedder, opts ...Option) *Builder {
	o := newPipelineOptions(opts)
	return &Builder{
		store:       store,
		scanner:     sc,
		chunker:     chunker,
		embedder:    embedder,
		bus:         o.bus,
		maxFileSize: o.maxFileSize,
	}
}

func (b *Builder) publish(ev events.Event) {
	if b.bus != nil {
		b.bus.Publish(ev)
	}
}

// BuildResult summarizes one build run.
type BuildResult struct {
	FilesProcessed int
	ChunksEmbedded int
	DurationMs     int64
}

// Build performs a full build over repoRoot. maxChunksPerBuild caps total embedded chunks; once exceeded
// after finishing a file, the build stops (final-file overshoot is
// permitted). A value <= 0 means unlimited.
func (b *Builder) Build(ctx context.Context, repoID, repoRoot string, opts scanner.ScanOptions, maxChunksPerBuild int) (*BuildResult, error) {
	start := time.Now()
	b.publish(events.BuildStarted(repoID))

	snap, err := b.scanner.Scan(ctx, repoRoot, opts)
	if err != nil {
		return nil, fmt.Errorf("scan repo: %w", err)
	}

	result := &BuildResult{}
	for _, rec := range snap.Files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if rec.SizeBytes > b.maxFileSize {
			continue
		}

		language := rec.LanguageHint
		if language == "" {
			continue
		}

		content, fileHash, err := readAndHash(rec.AbsPath)
		if err != nil {
			continue // transient filesystem error during scan: skip, don't fail the build
		}

		if err := b.store.UpsertFile(semidx.FileRow{
			Path: rec.RelPath, FileHash: fileHash, Language: language,
			MtimeMs: rec.MtimeMs, SizeBytes: rec.SizeBytes,
		}); err != nil {
			return nil, fmt.Errorf("upsert file meta for %s: %w", rec.RelPath, err)
		}

		chunks, err := b.chunker.Chunk(ctx, &chunk.FileInput{
			Path: rec.RelPath, Content: content, Language: language, FileHash: fileHash,
		})
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", rec.RelPath, err)
		}
		if len(chunks) == 0 {
			continue
		}

		rows := toChunkRows(chunks)
		if err := b.store.ReplaceChunksForFile(rec.RelPath, rows); err != nil {
			return nil, fmt.Errorf("replace chunks for %s: %w", rec.RelPath, err)
		}

		vectors, err := embedChunks(ctx, b.embedder, chunks)
		if err != nil {
			return nil, fmt.Errorf("embed chunks for %s: %w", rec.RelPath, err)
		}
		if err := b.store.UpsertEmbeddings(vectors); err != nil {
			return nil, fmt.Errorf("upsert embeddings for %s: %w", rec.RelPath, err)
		}

		result.FilesProcessed++
		result.ChunksEmbedded += len(chunks)

		if maxChunksPerBuild > 0 && result.ChunksEmbedded > maxChunksPerBuild {
			break
		}
	}

	now := time.Now()
	if err := b.store.SetMeta(semidx.Meta{
		RepoID: repoID, RepoRoot: repoRoot,
		EmbedderID: b.embedder.ModelName(), Dims: b.embedder.Dimensions(),
		BuiltAt: now.UnixMilli(), UpdatedAt: now.UnixMilli(),
		SchemaVersion: semidx.SchemaVersion,
	}); err != nil {
		return nil, fmt.Errorf("set meta: %w", err)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	b.publish(events.BuildFinished(repoID, result.FilesProcessed, result.ChunksEmbedded, result.DurationMs))
	return result, nil
}
