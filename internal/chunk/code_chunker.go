package chunk

import (
	"context"
	"fmt"
	"strings"
)

// CodeChunker implements AST-aware code chunking using tree-sitter, with a
// size-bounded line-split refinement pass and a line-based fallback for
// unsupported languages or parse failures.
type CodeChunker struct {
	parser   *Parser
	registry *LanguageRegistry
}

// NewCodeChunker creates a new code chunker using the default language registry.
func NewCodeChunker() *CodeChunker {
	registry := DefaultRegistry()
	return &CodeChunker{
		parser:   NewParserWithRegistry(registry),
		registry: registry,
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

// Chunk splits a file into semantic chunks. An unsupported language or a
// parser failure yields an empty slice, not an error — the caller (the
// indexer pipeline) falls back to the line splitter in that case.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if len(strings.TrimSpace(string(file.Content))) == 0 {
		return nil, nil
	}

	if _, supported := c.registry.GetByName(file.Language); !supported {
		return nil, nil
	}

	tree, err := c.parser.Parse(ctx, file.Content, file.Language)
	if err != nil || tree == nil {
		return nil, nil
	}

	fileContext := c.extractFileContext(tree, file.Language)
	fileContext = enrichContextWithFilePath(file.Path, file.Language, fileContext)

	symbolNodes := c.findSymbolNodes(tree, file.Language)
	if len(symbolNodes) == 0 {
		return nil, nil
	}

	var chunks []*Chunk
	for _, info := range symbolNodes {
		chunks = append(chunks, c.chunksFromSymbol(info, tree, file, fileContext)...)
	}
	return chunks, nil
}

type symbolNodeInfo struct {
	node   *Node
	symbol *Symbol
}

// findSymbolNodes walks the AST depth-first, emitting a symbolNodeInfo for
// every splittable node. Container nodes (class/interface) additionally have
// their children searched with parentSymbol set to the container's name; a
// non-container splittable node is a leaf for this search.
func (c *CodeChunker) findSymbolNodes(tree *Tree, language string) []*symbolNodeInfo {
	config, ok := c.registry.GetByName(language)
	if !ok {
		return nil
	}

	symbolTypes := buildSymbolTypeMap(config)

	var out []*symbolNodeInfo
	c.collectSymbols(tree.Root, tree, language, config, symbolTypes, "", &out)
	return out
}

func buildSymbolTypeMap(config *LanguageConfig) map[string]SymbolType {
	m := make(map[string]SymbolType)
	for _, t := range config.FunctionTypes {
		m[t] = SymbolTypeFunction
	}
	for _, t := range config.MethodTypes {
		m[t] = SymbolTypeMethod
	}
	for _, t := range config.ClassTypes {
		m[t] = SymbolTypeClass
	}
	for _, t := range config.InterfaceTypes {
		m[t] = SymbolTypeInterface
	}
	for _, t := range config.TypeDefTypes {
		m[t] = SymbolTypeType
	}
	for _, t := range config.ConstantTypes {
		m[t] = SymbolTypeConstant
	}
	for _, t := range config.VariableTypes {
		m[t] = SymbolTypeVariable
	}
	return m
}

func (c *CodeChunker) collectSymbols(node *Node, tree *Tree, language string, config *LanguageConfig, symbolTypes map[string]SymbolType, parentSymbol string, out *[]*symbolNodeInfo) {
	for _, child := range node.Children {
		// JS/TS arrow-function and function-expression assignments surface
		// as lexical_declaration/variable_declaration; treat them as
		// functions rather than constants when they qualify.
		if (language == "javascript" || language == "jsx" || language == "typescript" || language == "tsx") &&
			(child.Type == "lexical_declaration" || child.Type == "variable_declaration") {
			if sym := extractArrowFunctionSymbol(child, tree.Source); sym != nil {
				sym.ParentSymbol = parentSymbol
				*out = append(*out, &symbolNodeInfo{node: child, symbol: sym})
				continue
			}
		}

		symType, isSymbol := symbolTypes[child.Type]
		if !isSymbol {
			// Not a symbol node itself (export wrappers, class bodies,
			// namespaces) — keep searching its children.
			c.collectSymbols(child, tree, language, config, symbolTypes, parentSymbol, out)
			continue
		}

		sym := c.extractSymbol(child, tree, symType, language, config)
		if sym == nil {
			c.collectSymbols(child, tree, language, config, symbolTypes, parentSymbol, out)
			continue
		}
		sym.ParentSymbol = parentSymbol
		*out = append(*out, &symbolNodeInfo{node: child, symbol: sym})

		if config.IsContainer(child.Type) {
			c.collectSymbols(child, tree, language, config, symbolTypes, sym.Name, out)
		}
		// Non-container splittable nodes are leaves: do not recurse further.
	}
}

func (c *CodeChunker) extractSymbol(n *Node, tree *Tree, symType SymbolType, language string, config *LanguageConfig) *Symbol {
	name := extractSymbolName(n, tree.Source)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Type:       symType,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Signature:  firstLineSignature(n.GetContent(tree.Source)),
		DocComment: extractDocComment(n, tree.Source, language),
	}
}

// identifierNodeTypes lists, in priority order, the tree-sitter node types
// that hold a symbol's name across the supported grammars. Go methods and
// JS/TS class members surface as field/property identifiers; everything
// else uses a plain identifier or type_identifier.
var identifierNodeTypes = []string{
	"identifier",
	"type_identifier",
	"field_identifier",
	"property_identifier",
	"name",
}

// extractSymbolName finds a splittable node's name by looking for its first
// direct identifier-shaped child. Node conversion does not preserve
// tree-sitter field names, so this is a type-based heuristic rather than a
// field lookup.
func extractSymbolName(n *Node, source []byte) string {
	for _, t := range identifierNodeTypes {
		if child := n.FindChildByType(t); child != nil {
			return child.GetContent(source)
		}
	}
	return ""
}

// extractArrowFunctionSymbol recognizes `const foo = () => {...}` /
// `const foo = function() {...}` style declarations, which tree-sitter
// surfaces as lexical_declaration/variable_declaration rather than a
// function node.
func extractArrowFunctionSymbol(n *Node, source []byte) *Symbol {
	declarator := n.FindChildByType("variable_declarator")
	if declarator == nil {
		return nil
	}
	if declarator.FindChildByType("arrow_function") == nil &&
		declarator.FindChildByType("function") == nil &&
		declarator.FindChildByType("function_expression") == nil {
		return nil
	}
	name := extractSymbolName(declarator, source)
	if name == "" {
		return nil
	}
	return &Symbol{
		Name:      name,
		Type:      SymbolTypeFunction,
		StartLine: int(n.StartPoint.Row) + 1,
		EndLine:   int(n.EndPoint.Row) + 1,
		Signature: firstLineSignature(n.GetContent(source)),
	}
}

// firstLineSignature returns the first line of text, truncated to 200 chars
// with an ellipsis.
func firstLineSignature(text string) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(line)
	const maxLen = 200
	if len(line) > maxLen {
		return line[:maxLen] + "..."
	}
	return line
}

// extractDocComment walks backward from a node's start, collecting
// contiguous single-line comments immediately preceding it.
func extractDocComment(n *Node, source []byte, language string) string {
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	var commentLines []string
	pos := lineStart - 1

	for pos > 0 {
		prevLineEnd := pos
		pos--
		for pos > 0 && source[pos] != '\n' {
			pos--
		}
		prevLineStart := pos
		if pos > 0 {
			prevLineStart++
		}

		prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

		switch language {
		case "go", "typescript", "tsx", "javascript", "jsx":
			if strings.HasPrefix(prevLine, "//") {
				commentLines = append([]string{strings.TrimPrefix(prevLine, "//")}, commentLines...)
				continue
			}
		case "python":
			if strings.HasPrefix(prevLine, "#") {
				commentLines = append([]string{strings.TrimPrefix(prevLine, "#")}, commentLines...)
				continue
			}
		}

		if prevLine != "" {
			break
		}
	}

	if len(commentLines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(commentLines, "\n"))
}

// chunksFromSymbol builds one or more Chunks from a symbol node, refining
// (line-splitting) anything over MaxChunkChars.
func (c *CodeChunker) chunksFromSymbol(info *symbolNodeInfo, tree *Tree, file *FileInput, fileContext string) []*Chunk {
	node := info.node
	raw := node.GetContent(tree.Source)

	base := &Chunk{
		FilePath:        file.Path,
		Content:         combineContextAndContent(fileContext, raw),
		RawContent:      raw,
		Context:         fileContext,
		ContentType:     ContentTypeCode,
		Language:        file.Language,
		StartLine:       info.symbol.StartLine,
		EndLine:         info.symbol.EndLine,
		SymbolName:      info.symbol.Name,
		SymbolKind:      info.symbol.Type,
		SymbolSignature: info.symbol.Signature,
		ParentSymbol:    info.symbol.ParentSymbol,
	}

	if len(base.Content) <= MaxChunkChars {
		return []*Chunk{base}
	}

	// Refine over the raw symbol body, not the context-prefixed content:
	// the prefix would shift sub-chunk line numbers off the source.
	toRefine := *base
	toRefine.Content = raw
	return refineChunk(&toRefine)
}

// refineChunk splits an over-sized chunk by line, greedily packing lines
// into sub-chunks that do not exceed MaxChunkChars. A sub-chunk may exceed
// the limit only if it is a single line longer than the limit. Sub-chunks
// preserve language, file path, and the symbol metadata of the original but
// carry their own startLine/endLine within the original.
func refineChunk(original *Chunk) []*Chunk {
	lines := strings.Split(original.Content, "\n")
	var chunks []*Chunk

	lineNo := original.StartLine
	i := 0
	for i < len(lines) {
		var sb strings.Builder
		startLine := lineNo
		j := i
		for j < len(lines) {
			candidate := lines[j]
			next := sb.Len()
			if sb.Len() > 0 {
				next++ // account for the joining newline
			}
			next += len(candidate)
			if sb.Len() > 0 && next > MaxChunkChars {
				break
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(candidate)
			j++
			if sb.Len() > MaxChunkChars {
				// a single line longer than the limit: emit it alone
				j = i + 1
				break
			}
		}
		if j == i {
			j = i + 1
		}
		content := strings.Join(lines[i:j], "\n")
		endLine := startLine + (j - i) - 1

		chunks = append(chunks, &Chunk{
			FilePath:        original.FilePath,
			Content:         content,
			RawContent:      content,
			Context:         original.Context,
			ContentType:     original.ContentType,
			Language:        original.Language,
			StartLine:       startLine,
			EndLine:         endLine,
			SymbolName:      original.SymbolName,
			SymbolKind:      original.SymbolKind,
			SymbolSignature: original.SymbolSignature,
			ParentSymbol:    original.ParentSymbol,
		})

		lineNo = endLine + 1
		i = j
	}

	return chunks
}

func (c *CodeChunker) extractFileContext(tree *Tree, language string) string {
	var parts []string
	source := tree.Source

	switch language {
	case "go":
		for _, node := range tree.Root.Children {
			if node.Type == "package_clause" {
				parts = append(parts, node.GetContent(source))
			}
		}
		for _, node := range tree.Root.Children {
			if node.Type == "import_declaration" {
				parts = append(parts, node.GetContent(source))
			}
		}
	case "typescript", "tsx", "javascript", "jsx":
		for _, node := range tree.Root.Children {
			if node.Type == "import_statement" {
				parts = append(parts, node.GetContent(source))
			}
		}
	case "python":
		for _, node := range tree.Root.Children {
			if node.Type == "import_statement" || node.Type == "import_from_statement" {
				parts = append(parts, node.GetContent(source))
			}
		}
	}

	return strings.Join(parts, "\n\n")
}

// enrichContextWithFilePath prepends a language-appropriate "File: path"
// marker so the embedder sees file location even for small chunks.
func enrichContextWithFilePath(filePath, language, existingContext string) string {
	if filePath == "" {
		return existingContext
	}

	marker := fmt.Sprintf("// File: %s", filePath)
	if language == "python" {
		marker = fmt.Sprintf("# File: %s", filePath)
	}

	if existingContext == "" {
		return marker
	}
	return marker + "\n" + existingContext
}

func combineContextAndContent(context, rawContent string) string {
	if context == "" {
		return rawContent
	}
	return context + "\n\n" + rawContent
}

// LineChunker is the size-bounded line-based fallback used when the AST
// splitter is unavailable, fails to parse, or returns zero chunks.
type LineChunker struct{}

// NewLineChunker creates a line-based chunker.
func NewLineChunker() *LineChunker { return &LineChunker{} }

// SupportedExtensions returns nil: the line chunker accepts any input.
func (l *LineChunker) SupportedExtensions() []string { return nil }

// Chunk splits file content by line, packing greedily up to MaxChunkChars
// with no symbol metadata. Empty or whitespace-only input yields no chunks.
func (l *LineChunker) Chunk(_ context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	base := &Chunk{
		FilePath:    file.Path,
		Content:     content,
		RawContent:  content,
		ContentType: ContentTypeText,
		Language:    file.Language,
		StartLine:   1,
		EndLine:     len(strings.Split(content, "\n")),
	}

	if len(content) <= MaxChunkChars {
		return []*Chunk{base}, nil
	}
	return refineChunk(base), nil
}
