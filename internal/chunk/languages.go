package chunk

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry resolves file extensions and language names to their
// grammar and splittable-node configuration. It is immutable after
// construction, so lookups need no locking.
type LanguageRegistry struct {
	configs   map[string]*LanguageConfig
	grammars  map[string]*sitter.Language
	extToLang map[string]string
}

// languageEntry pairs a LanguageConfig with its tree-sitter grammar for
// registration.
type languageEntry struct {
	config  *LanguageConfig
	grammar *sitter.Language
}

// goLang declares Go's splittable node types. Go has no class syntax;
// structs and interfaces both surface as type_declaration.
func goLang() languageEntry {
	return languageEntry{
		config: &LanguageConfig{
			Name:          "go",
			Extensions:    []string{".go"},
			FunctionTypes: []string{"function_declaration"},
			MethodTypes:   []string{"method_declaration"},
			TypeDefTypes:  []string{"type_declaration"},
			ConstantTypes: []string{"const_declaration"},
			VariableTypes: []string{"var_declaration"},
			NameField:     "name",
		},
		grammar: golang.GetLanguage(),
	}
}

// typescriptLangs declares TypeScript and TSX, which share a node-type
// vocabulary but parse with different grammars.
func typescriptLangs() []languageEntry {
	base := &LanguageConfig{
		Name:           "typescript",
		Extensions:     []string{".ts"},
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		TypeDefTypes:   []string{"type_alias_declaration"},
		ConstantTypes:  []string{"lexical_declaration"},
		VariableTypes:  []string{"variable_declaration"},
		NameField:      "name",
	}

	tsxConfig := *base
	tsxConfig.Name = "tsx"
	tsxConfig.Extensions = []string{".tsx"}

	return []languageEntry{
		{config: base, grammar: typescript.GetLanguage()},
		{config: &tsxConfig, grammar: tsx.GetLanguage()},
	}
}

// javascriptLangs declares JavaScript and JSX; both parse with the
// javascript grammar.
func javascriptLangs() []languageEntry {
	base := &LanguageConfig{
		Name:          "javascript",
		Extensions:    []string{".js", ".mjs", ".cjs"},
		FunctionTypes: []string{"function_declaration", "function"},
		MethodTypes:   []string{"method_definition"},
		ClassTypes:    []string{"class_declaration"},
		ConstantTypes: []string{"lexical_declaration"},
		VariableTypes: []string{"variable_declaration"},
		NameField:     "name",
	}

	jsxConfig := *base
	jsxConfig.Name = "jsx"
	jsxConfig.Extensions = []string{".jsx"}

	return []languageEntry{
		{config: base, grammar: javascript.GetLanguage()},
		{config: &jsxConfig, grammar: javascript.GetLanguage()},
	}
}

// pythonLang declares Python. Methods are function_definition nodes
// nested in a class_definition, so the container recursion handles them
// without a separate method type.
func pythonLang() languageEntry {
	return languageEntry{
		config: &LanguageConfig{
			Name:          "python",
			Extensions:    []string{".py"},
			FunctionTypes: []string{"function_definition"},
			ClassTypes:    []string{"class_definition"},
			VariableTypes: []string{"assignment"},
			NameField:     "name",
		},
		grammar: python.GetLanguage(),
	}
}

// NewLanguageRegistry builds a registry with every supported language.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:   make(map[string]*LanguageConfig),
		grammars:  make(map[string]*sitter.Language),
		extToLang: make(map[string]string),
	}

	entries := []languageEntry{goLang(), pythonLang()}
	entries = append(entries, typescriptLangs()...)
	entries = append(entries, javascriptLangs()...)

	for _, e := range entries {
		r.configs[e.config.Name] = e.config
		r.grammars[e.config.Name] = e.grammar
		for _, ext := range e.config.Extensions {
			r.extToLang[ext] = e.config.Name
		}
	}
	return r
}

// GetByExtension returns the configuration for a file extension, with or
// without its leading dot.
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	config, ok := r.configs[name]
	return config, ok
}

// GetByName returns the configuration for a language name.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the grammar for a language name.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	lang, ok := r.grammars[name]
	return lang, ok
}

// SupportedExtensions returns every registered extension.
func (r *LanguageRegistry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the shared process-wide registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
