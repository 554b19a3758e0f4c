package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CodeChunker implements structural, tree-sitter-backed chunking: one chunk per top-level or class-member declaration, with
// size filtering, truncation, and deterministic chunk IDs.
type CodeChunker struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
}

// NewCodeChunker creates a new code chunker using the default language
// registry.
func NewCodeChunker() *CodeChunker {
	registry := DefaultRegistry()
	return &CodeChunker{
		parser:    NewParserWithRegistry(registry),
		extractor: NewSymbolExtractorWithRegistry(registry),
		registry:  registry,
	}
}

// Close releases chunker resources.
func (c *CodeChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// SupportedExtensions returns file extensions this chunker handles.
func (c *CodeChunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// Chunk splits a file into structural chunks. Unsupported languages yield
// no chunks, not an error -- the semantic builder/updater treats that as
// "skip this file".
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}

	config, ok := c.registry.GetByName(file.Language)
	if !ok {
		return nil, nil
	}

	tree, err := c.parser.Parse(ctx, file.Content, file.Language)
	if err != nil {
		return nil, nil
	}

	kindByType := kindsFor(config)

	var chunks []*Chunk
	var walk func(n *Node, parents []*Node)
	walk = func(n *Node, parents []*Node) {
		if kind, ok := kindByType[n.Type]; ok {
			if ch := c.buildChunk(n, parents, kind, config, tree, file); ch != nil {
				chunks = append(chunks, ch)
			}
		}

		childParents := append(parents[:len(parents):len(parents)], n)
		for _, child := range n.Children {
			walk(child, childParents)
		}
	}
	walk(tree.Root, nil)

	return chunks, nil
}

// kindsFor builds the node-type -> Kind lookup table for a language.
func kindsFor(config *LanguageConfig) map[string]Kind {
	m := make(map[string]Kind)
	for _, t := range config.FunctionTypes {
		m[t] = KindFunction
	}
	for _, t := range config.MethodTypes {
		m[t] = KindMethod
	}
	for _, t := range config.ClassTypes {
		m[t] = KindClass
	}
	for _, t := range config.InterfaceTypes {
		m[t] = KindInterface
	}
	for _, t := range config.TypeDefTypes {
		m[t] = KindType
	}
	for _, t := range config.ConstantTypes {
		m[t] = KindConst
	}
	for _, t := range config.ExportTypes {
		m[t] = KindExport
	}
	return m
}

// buildChunk applies the chunker's filters and size caps, then emits a
// Chunk for a single matched node, or nil if the node is filtered out.
func (c *CodeChunker) buildChunk(n *Node, parents []*Node, kind Kind, config *LanguageConfig, tree *Tree, file *FileInput) *Chunk {
	name := c.extractor.extractName(n, tree.Source, config, file.Language)

	// Filter: skip constructor methods.
	if kind == KindMethod && name == "constructor" {
		return nil
	}

	// Filter: skip a const/let declaration whose parent is the export
	// wrapper -- the wrapper itself is captured as kind "export".
	if kind == KindConst && len(parents) > 0 && parents[len(parents)-1].Type == "export_statement" {
		return nil
	}

	content := n.GetContent(tree.Source)

	// Filter: skip spans below the minimum chunk size.
	if len(content) < MinChunkChars {
		return nil
	}

	if name == "" {
		name = nameFromExport(n, tree.Source, config, file.Language, c.extractor)
	}
	if name == "" {
		return nil
	}

	parentName := nearestClassAncestor(parents, config, tree.Source)

	// Python has no distinct method node type: a function nested under a
	// class is a method.
	if kind == KindFunction && parentName != "" {
		kind = KindMethod
	}

	content = truncate(content)

	return &Chunk{
		ChunkID:    chunkID(file.Path, kind, name, int(n.StartPoint.Row)+1, int(n.EndPoint.Row)+1, file.FileHash),
		Path:       file.Path,
		Language:   file.Language,
		Kind:       kind,
		Name:       name,
		ParentName: parentName,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Content:    content,
		FileHash:   file.FileHash,
	}
}

// nameFromExport resolves a name for an export-wrapper node by looking at
// its wrapped declaration (e.g. `export function foo() {}`).
func nameFromExport(n *Node, source []byte, config *LanguageConfig, language string, extractor *SymbolExtractor) string {
	for _, child := range n.Children {
		if name := extractor.extractName(child, source, config, language); name != "" {
			return name
		}
	}
	return ""
}

// nearestClassAncestor walks the parent chain from innermost to outermost
// and returns the name of the first class/struct ancestor, per section
// 4.I's parent-resolution rule.
func nearestClassAncestor(parents []*Node, config *LanguageConfig, source []byte) string {
	isClass := make(map[string]bool, len(config.ClassTypes))
	for _, t := range config.ClassTypes {
		isClass[t] = true
	}
	if len(isClass) == 0 {
		return ""
	}

	for i := len(parents) - 1; i >= 0; i-- {
		p := parents[i]
		if isClass[p.Type] {
			for _, child := range p.Children {
				if child.Type == "identifier" || child.Type == "type_identifier" {
					return child.GetContent(source)
				}
			}
		}
	}
	return ""
}

// truncate enforces the chunker's size caps, appending TruncationMarker
// when content is cut.
func truncate(content string) string {
	limit := 0
	switch {
	case len(content) > HardMaxChunkChars:
		limit = HardMaxChunkChars
	case len(content) > MaxChunkChars:
		limit = MaxChunkChars
	default:
		return content
	}
	return content[:limit] + TruncationMarker
}

// chunkID computes a deterministic chunk identifier: sha256 over
// path|kind|name|startLine|endLine|fileHash, hex-encoded. The same inputs
// always hash to the same ID, so unchanged file content keeps stable IDs
// across runs.
func chunkID(path string, kind Kind, name string, startLine, endLine int, fileHash string) string {
	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('|')
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(name)
	b.WriteByte('|')
	b.WriteString(itoa(startLine))
	b.WriteByte('|')
	b.WriteString(itoa(endLine))
	b.WriteByte('|')
	b.WriteString(fileHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
