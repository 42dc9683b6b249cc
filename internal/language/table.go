// Package language maps file names to the language tags used for highlighting.
package language

import (
	"sort"
	"strings"
)

// Fallback is the tag for names without a known extension.
const Fallback = "plaintext"

// defaultTable maps lower-case extensions (without the dot) to tags.
var defaultTable = map[string]string{
	"js":    "javascript",
	"jsx":   "jsx",
	"ts":    "typescript",
	"tsx":   "tsx",
	"py":    "python",
	"rb":    "ruby",
	"php":   "php",
	"java":  "java",
	"c":     "c",
	"cpp":   "cpp",
	"h":     "c",
	"hpp":   "cpp",
	"cs":    "csharp",
	"go":    "go",
	"rs":    "rust",
	"swift": "swift",
	"kt":    "kotlin",
	"scala": "scala",
	"html":  "html",
	"css":   "css",
	"scss":  "scss",
	"sass":  "sass",
	"less":  "less",
	"json":  "json",
	"xml":   "xml",
	"yaml":  "yaml",
	"yml":   "yaml",
	"md":    "markdown",
	"sql":   "sql",
	"sh":    "bash",
	"bat":   "batch",
	"ps1":   "powershell",
}

// acceptedExtensions is the picker allow-list. It is advisory: drag and drop
// and API clients can send anything, and Detect still answers.
var acceptedExtensions = []string{
	"js", "jsx", "ts", "tsx", "py", "php", "java", "c", "cpp", "cs", "go",
	"rb", "rs", "html", "css", "json", "yaml", "yml", "md", "sql", "sh",
}

// AcceptedExtensions returns the picker allow-list without leading dots.
func AcceptedExtensions() []string {
	out := make([]string, len(acceptedExtensions))
	copy(out, acceptedExtensions)
	return out
}

// AcceptAttribute returns the allow-list formatted for an HTML file input.
func AcceptAttribute() string {
	parts := make([]string, len(acceptedExtensions))
	for i, ext := range acceptedExtensions {
		parts[i] = "." + ext
	}
	return strings.Join(parts, ",")
}

// DefaultTable returns a copy of the built-in extension table.
func DefaultTable() map[string]string {
	out := make(map[string]string, len(defaultTable))
	for ext, tag := range defaultTable {
		out[ext] = tag
	}
	return out
}

func sortedTags(table map[string]string) []string {
	seen := map[string]struct{}{Fallback: {}}
	for _, tag := range table {
		seen[tag] = struct{}{}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
