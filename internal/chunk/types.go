package chunk

import "context"

// Kind classifies a semantic chunk.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindExport    Kind = "export"
	KindConst     Kind = "const"
	KindUnknown   Kind = "unknown"
)

// Chunk size limits.
const (
	MinChunkChars     = 50
	MaxChunkChars     = 2500
	HardMaxChunkChars = 5000
	TruncationMarker  = "...[TRUNCATED]"
)

// Chunk is a structurally-extracted semantic unit.
//
// ChunkID is deterministic over (Path, Kind, Name, StartLine, EndLine,
// FileHash): the same file content yields identical IDs across runs, and
// changing FileHash invalidates every chunk ID for that file.
type Chunk struct {
	ChunkID    string
	Path       string
	Language   string
	Kind       Kind
	Name       string
	ParentName string // nearest enclosing class/struct, if any
	StartLine  int     // 1-indexed
	EndLine    int     // inclusive
	Content    string
	FileHash   string
}

// FileInput is the input to a Chunker. FileHash is computed by the caller
// (the builder/updater pipeline) so that chunk IDs stay stable across runs
// that re-chunk unchanged content.
type FileInput struct {
	Path     string
	Content  []byte
	Language string
	FileHash string
}

// Chunker splits a file's content into structural chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}

// SymbolType represents the kind of code symbol found by SymbolExtractor.
// Retained as a smaller, name-resolution-only helper consumed by
// CodeChunker; the chunk-kind taxonomy chunks are tagged with is Kind,
// above.
type SymbolType string

const (
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeInterface SymbolType = "interface"
	SymbolTypeType      SymbolType = "type"
	SymbolTypeConstant  SymbolType = "constant"
	SymbolTypeMethod    SymbolType = "method"
)

// Symbol represents a code symbol extracted from parsing.
type Symbol struct {
	Name      string
	Type      SymbolType
	StartLine int
	EndLine   int
	Signature string
}

// Tree represents a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node represents a node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point represents a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig holds configuration for a supported language.
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string // function declarations
	ClassTypes     []string // class/struct definitions
	InterfaceTypes []string // interface definitions
	MethodTypes    []string // method definitions
	TypeDefTypes   []string // type definitions
	ConstantTypes  []string // const/let declarations
	ExportTypes    []string // export wrapper statements (JS/TS)

	NameField string // node type for name identifier
}
