package snapshot

// DefaultExtensions is the default allow-list of lowercased extensions the
// scanner considers indexable, merged with a caller's customExtensions.
var DefaultExtensions = map[string]bool{
	".go":      true,
	".js":      true,
	".jsx":     true,
	".mjs":     true,
	".cjs":     true,
	".ts":      true,
	".tsx":     true,
	".py":      true,
	".pyi":     true,
	".rb":      true,
	".rs":      true,
	".java":    true,
	".kt":      true,
	".kts":     true,
	".c":       true,
	".h":       true,
	".cpp":     true,
	".hpp":     true,
	".cc":      true,
	".cs":      true,
	".swift":   true,
	".php":     true,
	".scala":   true,
	".ex":      true,
	".exs":     true,
	".lua":     true,
	".sql":     true,
	".sh":      true,
	".bash":    true,
	".md":      true,
	".mdx":     true,
	".rst":     true,
	".txt":     true,
	".json":    true,
	".yaml":    true,
	".yml":     true,
	".toml":    true,
	".xml":     true,
	".html":    true,
	".css":     true,
	".scss":    true,
	".vue":     true,
	".svelte":  true,
	".proto":   true,
	".graphql": true,
}

// DefaultIgnoreGlobs are the ignore patterns applied regardless of
// .gitignore or customIgnorePatterns.
var DefaultIgnoreGlobs = []string{
	"**/.git",
	"**/node_modules",
	"**/vendor",
	"**/dist",
	"**/build",
	"**/.venv",
	"**/venv",
	"**/__pycache__",
	"**/.next",
	"**/.turbo",
	"**/target",
	"**/*.min.js",
	"**/*.lock",
	"**/.eideticmcp",
}
