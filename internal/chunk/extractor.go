package chunk

import "strings"

// SymbolExtractor extracts symbols (name, kind, line range) from a parsed
// AST. CodeChunker reuses its per-language name-resolution logic when
// building spec-shaped Chunks; Extract itself remains useful standalone for
// callers that want a flat symbol list without chunk-size/truncation
// policy applied.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor creates a new symbol extractor using the default
// language registry.
func NewSymbolExtractor() *SymbolExtractor {
	return &SymbolExtractor{registry: DefaultRegistry()}
}

// NewSymbolExtractorWithRegistry creates a new symbol extractor with a
// custom registry.
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// Extract walks the parsed tree and returns every recognized symbol.
func (e *SymbolExtractor) Extract(tree *Tree, source []byte) []*Symbol {
	if tree == nil || tree.Root == nil {
		return []*Symbol{}
	}

	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return []*Symbol{}
	}

	var symbols []*Symbol
	tree.Root.Walk(func(n *Node) bool {
		if symbol := e.extractSymbolFromNode(n, source, config, tree.Language); symbol != nil {
			symbols = append(symbols, symbol)
		}
		return true
	})
	return symbols
}

func (e *SymbolExtractor) extractSymbolFromNode(n *Node, source []byte, config *LanguageConfig, language string) *Symbol {
	symType, found := e.symbolTypeFor(n.Type, config)
	if !found {
		return nil
	}

	name := e.extractName(n, source, config, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:      name,
		Type:      symType,
		StartLine: int(n.StartPoint.Row) + 1,
		EndLine:   int(n.EndPoint.Row) + 1,
		Signature: e.extractSignature(n, source, symType, language),
	}
}

func (e *SymbolExtractor) symbolTypeFor(nodeType string, config *LanguageConfig) (SymbolType, bool) {
	for _, t := range config.FunctionTypes {
		if nodeType == t {
			return SymbolTypeFunction, true
		}
	}
	for _, t := range config.MethodTypes {
		if nodeType == t {
			return SymbolTypeMethod, true
		}
	}
	for _, t := range config.ClassTypes {
		if nodeType == t {
			return SymbolTypeClass, true
		}
	}
	for _, t := range config.InterfaceTypes {
		if nodeType == t {
			return SymbolTypeInterface, true
		}
	}
	for _, t := range config.TypeDefTypes {
		if nodeType == t {
			return SymbolTypeType, true
		}
	}
	for _, t := range config.ConstantTypes {
		if nodeType == t {
			return SymbolTypeConstant, true
		}
	}
	return "", false
}

// extractName extracts the name of a symbol-defining node.
func (e *SymbolExtractor) extractName(n *Node, source []byte, config *LanguageConfig, language string) string {
	switch language {
	case "go":
		return e.extractGoName(n, source)
	case "typescript", "tsx":
		return e.extractTypeScriptName(n, source)
	case "javascript", "jsx":
		return e.extractJavaScriptName(n, source)
	case "python":
		return e.extractPythonName(n, source)
	default:
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	case "method_declaration":
		for _, child := range n.Children {
			if child.Type == "field_identifier" {
				return child.GetContent(source)
			}
		}
	case "type_declaration":
		for _, child := range n.Children {
			if child.Type == "type_spec" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "type_identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	case "const_declaration":
		for _, child := range n.Children {
			if child.Type == "const_spec" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractTypeScriptName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, child := range n.Children {
			if child.Type == "variable_declarator" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	}
	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" || child.Type == "property_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractJavaScriptName(n *Node, source []byte) string {
	return e.extractTypeScriptName(n, source)
}

func (e *SymbolExtractor) extractPythonName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

// extractSignature extracts the first-line signature of a function/method
// or type/class/interface declaration.
func (e *SymbolExtractor) extractSignature(n *Node, source []byte, symType SymbolType, language string) string {
	content := n.GetContent(source)
	if content == "" {
		return ""
	}

	switch symType {
	case SymbolTypeFunction, SymbolTypeMethod:
		return firstLineUpToBrace(content)
	case SymbolTypeClass, SymbolTypeInterface, SymbolTypeType:
		return firstLineUpToBrace(content)
	}
	return ""
}

func firstLineUpToBrace(content string) string {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx != -1 {
		firstLine = content[:idx]
	}
	if idx := strings.IndexByte(firstLine, '{'); idx != -1 {
		return strings.TrimRight(firstLine[:idx], " \t\r")
	}
	return strings.TrimRight(firstLine, " \t\r")
}
