package explain

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// grammars maps language tags to tree-sitter grammars.
var grammars = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"jsx":        javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"tsx":        tsx.GetLanguage,
	"java":       java.GetLanguage,
	"c":          c.GetLanguage,
	"cpp":        cpp.GetLanguage,
	"rust":       rust.GetLanguage,
	"ruby":       ruby.GetLanguage,
	"php":        php.GetLanguage,
	"bash":       bash.GetLanguage,
	"css":        css.GetLanguage,
	"html":       html.GetLanguage,
}

// grammarFor returns the grammar for tag, or nil.
func grammarFor(tag string) *sitter.Language {
	get, ok := grammars[tag]
	if !ok {
		return nil
	}
	return get()
}

// HasGrammar reports whether selections in tag get syntactic context.
func HasGrammar(tag string) bool {
	_, ok := grammars[tag]
	return ok
}
