package semidx

// ddl creates the semantic index schema. Foreign keys are declared for documentation but enforced
// at PRAGMA OFF -- cascade deletes are handled explicitly inside
// transactions in mutations.go, so behavior doesn't depend on whether the
// driver build enables foreign-key enforcement.
const ddl = `
PRAGMA foreign_keys = OFF;

CREATE TABLE IF NOT EXISTS meta (
	repoId        TEXT PRIMARY KEY,
	repoRoot      TEXT NOT NULL,
	embedderId    TEXT NOT NULL,
	dims          INTEGER NOT NULL,
	builtAt       INTEGER NOT NULL,
	updatedAt     INTEGER NOT NULL,
	schemaVersion INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	path      TEXT PRIMARY KEY,
	fileHash  TEXT NOT NULL,
	language  TEXT NOT NULL,
	mtimeMs   INTEGER NOT NULL,
	sizeBytes INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	chunkId    TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	language   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	parentName TEXT NOT NULL DEFAULT '',
	startLine  INTEGER NOT NULL,
	endLine    INTEGER NOT NULL,
	content    TEXT NOT NULL,
	fileHash   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);

CREATE TABLE IF NOT EXISTS embeddings (
	chunkId   TEXT PRIMARY KEY,
	vectorB64 TEXT NOT NULL
);
`
