package scanner

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language bundles a tree-sitter grammar with its query sources.
type Language struct {
	Name     string
	Grammar  *tree_sitter.Language
	defKinds map[string]bool
}

var languages = map[string]*Language{
	"go": {
		Name:     "go",
		Grammar:  tree_sitter.NewLanguage(tree_sitter_go.Language()),
		defKinds: definitionKinds["go"],
	},
	"python": {
		Name:     "python",
		Grammar:  tree_sitter.NewLanguage(tree_sitter_python.Language()),
		defKinds: definitionKinds["python"],
	},
	"javascript": {
		Name:     "javascript",
		Grammar:  tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
		defKinds: definitionKinds["javascript"],
	},
	"typescript": {
		Name:     "typescript",
		Grammar:  tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		defKinds: definitionKinds["typescript"],
	},
	"tsx": {
		Name:     "typescript",
		Grammar:  tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		defKinds: definitionKinds["typescript"],
	},
}

// extensions maps file extensions to language registry keys.
var extensions = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
}

// LanguageForExt returns the language registered for a file extension.
func LanguageForExt(ext string) (*Language, bool) {
	key, ok := extensions[ext]
	if !ok {
		return nil, false
	}
	lang, ok := languages[key]
	return lang, ok
}

// SupportedExtensions returns the extensions the scanner understands.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	return out
}
