// Package semidx implements the semantic index store: a SQLite-backed
// schema of meta/files/chunks/embeddings tables with replace-by-file
// transactional writes and little-endian float32 vector (de)serialization.
// Uses pure-Go modernc.org/sqlite with WAL mode and a pre-open integrity
// check.
package semidx

// SchemaVersion is written into the meta row on first init.
const SchemaVersion = 1

// DefaultRelPath is the default location of the semantic index database
// relative to a repo root.
const DefaultRelPath = ".orchestrator/semantic.sqlite"

// Meta is the single-row meta table.
type Meta struct {
	RepoID        string
	RepoRoot      string
	EmbedderID    string
	Dims          int
	BuiltAt       int64
	UpdatedAt     int64
	SchemaVersion int
}

// FileRow is one row of the files table.
type FileRow struct {
	Path      string
	FileHash  string
	Language  string
	MtimeMs   int64
	SizeBytes int64
}

// ChunkRow is one row of the chunks table.
type ChunkRow struct {
	ChunkID    string
	Path       string
	Language   string
	Kind       string
	Name       string
	ParentName string
	StartLine  int
	EndLine    int
	Content    string
	FileHash   string
}

// EmbeddingRow is one row of the embeddings table: a chunk ID and its
// vector, still base64-encoded as stored.
type EmbeddingRow struct {
	ChunkID  string
	VectorB64 string
}

// ChunkWithEmbedding is the result of the chunks/embeddings inner join
// (GetAllChunksWithEmbeddings).
type ChunkWithEmbedding struct {
	Chunk  ChunkRow
	Vector []float32
}
