package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/chunk"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/embed"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/semidx"
)

// readAndHash reads a file's content and returns it alongside its sha256
// hex digest.
func readAndHash(absPath string) ([]byte, string, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(content)
	return content, hex.EncodeToString(sum[:]), nil
}

// toChunkRows converts chunker output into the semidx row shape.
func toChunkRows(chunks []*chunk.Chunk) []semidx.ChunkRow {
	rows := make([]semidx.ChunkRow, len(chunks))
	for i, c := range chunks {
		rows[i] = semidx.ChunkRow{
			ChunkID: c.ChunkID, Path: c.Path, Language: c.Language, Kind: string(c.Kind),
			Name: c.Name, ParentName: c.ParentName, StartLine: c.StartLine, EndLine: c.EndLine,
			Content: c.Content, FileHash: c.FileHash,
		}
	}
	return rows
}

// embedChunks embeds every chunk's content in one batch and zips the
// result to chunkId -> vector. The embedder is assumed to preserve input
// order and return one vector per input.
func embedChunks(ctx context.Context, embedder embed.Embedder, chunks []*chunk.Chunk) (map[string][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	out := make(map[string][]float32, len(chunks))
	for i, c := range chunks {
		out[c.ChunkID] = vectors[i]
	}
	return out, nil
}
