package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestCodeChunker_Go_FunctionsAndMethods(t *testing.T) {
	source := `package main

import "fmt"

func Hello() {
	fmt.Println("Hello, this function has enough content to pass the minimum chunk size filter")
}

type Calculator struct {
	value       int
	multiplier  int
	description string
}

func (c *Calculator) Multiply(x int) int {
	return c.value * x * x * x * x * x * x * x * x * x * x * x * x
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	fh := hashOf(source)
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.go", Content: []byte(source), Language: "go", FileHash: fh,
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var fn, ty, method *Chunk
	for _, c := range chunks {
		switch c.Name {
		case "Hello":
			fn = c
		case "Calculator":
			ty = c
		case "Multiply":
			method = c
		}
	}

	require.NotNil(t, fn)
	assert.Equal(t, KindFunction, fn.Kind)

	require.NotNil(t, ty)
	assert.Equal(t, KindType, ty.Kind)

	require.NotNil(t, method)
	assert.Equal(t, KindMethod, method.Kind)
}

func TestCodeChunker_TypeScript_SkipsConstructor(t *testing.T) {
	source := `import { Logger } from './logger';

export class UserService {
	private logger: Logger;

	constructor(logger: Logger) {
		this.logger = logger;
	}

	getUser(id: string): string {
		this.logger.info('Getting user: ' + id + ' and also some more padding text here');
		return id;
	}
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	fh := hashOf(source)
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "user-service.ts", Content: []byte(source), Language: "typescript", FileHash: fh,
	})
	require.NoError(t, err)

	for _, c := range chunks {
		assert.NotEqual(t, "constructor", c.Name, "constructor method must be filtered out")
	}

	var method *Chunk
	for _, c := range chunks {
		if c.Name == "getUser" {
			method = c
		}
	}
	require.NotNil(t, method, "non-constructor method should be kept")
	assert.Equal(t, KindMethod, method.Kind)
	assert.Equal(t, "UserService", method.ParentName)
}

func TestCodeChunker_TypeScript_ExportedConstNotDuplicated(t *testing.T) {
	source := `export const greeting = "hello world, this string is long enough to clear the minimum chunk size filter";
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	fh := hashOf(source)
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "consts.ts", Content: []byte(source), Language: "typescript", FileHash: fh,
	})
	require.NoError(t, err)

	constChunks := 0
	for _, c := range chunks {
		if c.Kind == KindConst {
			constChunks++
		}
	}
	assert.Zero(t, constChunks, "a const wrapped in export_statement must not also appear as a bare const chunk")

	exportChunks := 0
	for _, c := range chunks {
		if c.Kind == KindExport {
			exportChunks++
		}
	}
	assert.Equal(t, 1, exportChunks, "the export wrapper should be captured exactly once")
}

func TestCodeChunker_SkipsSpansBelowMinChunkChars(t *testing.T) {
	source := `package main

func f() {}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	fh := hashOf(source)
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "tiny.go", Content: []byte(source), Language: "go", FileHash: fh,
	})
	require.NoError(t, err)
	assert.Empty(t, chunks, "a function shorter than MinChunkChars should be dropped")
}

func TestCodeChunker_TruncatesOversizedChunks(t *testing.T) {
	var body strings.Builder
	body.WriteString("package main\n\nfunc Big() {\n")
	for i := 0; i < 400; i++ {
		body.WriteString("\tx := 1\n")
	}
	body.WriteString("}\n")
	source := body.String()

	chunker := NewCodeChunker()
	defer chunker.Close()

	fh := hashOf(source)
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "big.go", Content: []byte(source), Language: "go", FileHash: fh,
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.True(t, strings.HasSuffix(c.Content, TruncationMarker))
	assert.LessOrEqual(t, len(c.Content), HardMaxChunkChars+len(TruncationMarker))
}

func TestCodeChunker_ChunkID_StableAcrossReruns(t *testing.T) {
	source := `package main

func Hello() {
	println("hello there, this is long enough to pass the chunk size filter easily")
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	fh := hashOf(source)
	input := &FileInput{Path: "main.go", Content: []byte(source), Language: "go", FileHash: fh}

	first, err := chunker.Chunk(context.Background(), input)
	require.NoError(t, err)
	second, err := chunker.Chunk(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ChunkID, second[0].ChunkID, "re-chunking identical content must yield identical chunk IDs")
}

func TestCodeChunker_ChunkID_ChangesWithFileHash(t *testing.T) {
	source := `package main

func Hello() {
	println("hello there, this is long enough to pass the chunk size filter easily")
}
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	a, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.go", Content: []byte(source), Language: "go", FileHash: "hash-a",
	})
	require.NoError(t, err)
	b, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "main.go", Content: []byte(source), Language: "go", FileHash: "hash-b",
	})
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].ChunkID, b[0].ChunkID, "changing fileHash must invalidate every chunk ID for the file")
}

func TestCodeChunker_UnsupportedLanguage_ReturnsNoChunks(t *testing.T) {
	source := `defmodule HelloWorld do
  def hello do
    IO.puts("Hello, World!")
  end
end
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "hello.ex", Content: []byte(source), Language: "elixir", FileHash: hashOf(source),
	})
	require.NoError(t, err)
	assert.Empty(t, chunks, "unsupported languages yield no chunks; the caller decides whether to skip the file")
}

func TestCodeChunker_Python_NestedMethodGetsClassParent(t *testing.T) {
	source := `class Dog:
    def bark(self):
        print("Woof! This needs to be long enough to clear the minimum chunk size filter threshold")
`
	chunker := NewCodeChunker()
	defer chunker.Close()

	fh := hashOf(source)
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path: "dog.py", Content: []byte(source), Language: "python", FileHash: fh,
	})
	require.NoError(t, err)

	var method *Chunk
	for _, c := range chunks {
		if c.Name == "bark" {
			method = c
		}
	}
	require.NotNil(t, method)
	assert.Equal(t, KindMethod, method.Kind)
	assert.Equal(t, "Dog", method.ParentName)
}

func TestCodeChunker_SupportedExtensions(t *testing.T) {
	chunker := NewCodeChunker()
	defer chunker.Close()

	exts := chunker.SupportedExtensions()
	for _, want := range []string{".go", ".ts", ".tsx", ".js", ".jsx", ".py"} {
		assert.Contains(t, exts, want)
	}
}
