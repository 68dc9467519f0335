// Package chunk implements AST-aware and line-bounded code segmentation.
package chunk

import (
	"context"
)

// MaxChunkChars is the hard size ceiling a chunk's content may reach after
// refinement.
const MaxChunkChars = 2500

// ContentType records how a chunk's content was produced.
type ContentType string

const (
	ContentTypeCode ContentType = "code"
	ContentTypeText ContentType = "text"
)

// Chunk is a retrievable unit of content submitted to the embedder.
type Chunk struct {
	FilePath        string // relative to tree root
	Content         string // full content (with file-context header, code chunks)
	RawContent      string // just the symbol body, no context header
	Context         string // imports / package decl prefixed onto Content
	ContentType     ContentType
	Language        string
	StartLine       int // 1-based, inclusive
	EndLine         int // 1-based, inclusive
	SymbolName      string
	SymbolKind      SymbolType
	SymbolSignature string
	ParentSymbol    string
}

// FileInput is input to a Chunker.
type FileInput struct {
	Path     string
	Content  []byte
	Language string
}

// Chunker splits a file into chunks.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}

// SymbolType is the kind of a code symbol.
type SymbolType string

const (
	SymbolTypeFunction  SymbolType = "function"
	SymbolTypeClass     SymbolType = "class"
	SymbolTypeInterface SymbolType = "interface"
	SymbolTypeType      SymbolType = "type"
	SymbolTypeVariable  SymbolType = "variable"
	SymbolTypeConstant  SymbolType = "constant"
	SymbolTypeMethod    SymbolType = "method"
)

// Symbol is a named AST node discovered while splitting a file.
type Symbol struct {
	Name         string
	Type         SymbolType
	StartLine    int
	EndLine      int
	Signature    string
	DocComment   string
	ParentSymbol string // set when nested inside a container (class/interface)
}

// Tree is a parsed AST, converted from tree-sitter's node graph into a form
// the rest of this package can walk without importing the sitter types
// directly.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node is one node of a Tree.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point is a (row, column) position in source, row 0-indexed.
type Point struct {
	Row    uint32
	Column uint32
}

// LanguageConfig declares, per language, which node types are "splittable"
// (emit their own chunk) and which are "container" types whose children are
// recursed into with parentSymbol set.
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string
	ClassTypes     []string // container types: class/struct, recursed into
	InterfaceTypes []string // container types: interface, recursed into
	MethodTypes    []string
	TypeDefTypes   []string
	ConstantTypes  []string
	VariableTypes  []string

	// NameField is the tree-sitter field name holding a node's identifier.
	NameField string
}

// IsContainer reports whether typ is one of this language's container node
// types (class/interface) whose children are walked with parentSymbol set.
func (c *LanguageConfig) IsContainer(typ string) bool {
	return containsString(c.ClassTypes, typ) || containsString(c.InterfaceTypes, typ)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
