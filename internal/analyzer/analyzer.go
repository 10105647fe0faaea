// Package analyzer implements per-language static analysis. Each language
// analyzer scans raw file content (and, where a tree-sitter grammar is
// available, a syntax tree) and produces structured failures. Analyzers
// are stateless and safe to call concurrently.
package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// Analyzer scans a single file's content and reports detected failures.
// Implementations must not panic on malformed input: a parse failure is
// itself reported as a SYNTAX failure.
type Analyzer interface {
	// Name identifies the language (e.g. "python", "java").
	Name() string

	// Extensions lists the file extensions this analyzer handles,
	// including the leading dot.
	Extensions() []string

	// Structural reports whether a language-native syntax tree is
	// available for this language. When false, only the lexical
	// strategy runs.
	Structural() bool

	// Analyze scans content and returns failures with File set to
	// relPath. The returned order is not significant.
	Analyze(content []byte, relPath string) []types.Failure
}

// registry maps extensions to analyzers. Each extension routes to exactly
// one analyzer.
var registry = map[string]Analyzer{}

func register(a Analyzer) {
	for _, ext := range a.Extensions() {
		registry[ext] = a
	}
}

func init() {
	register(NewPython())
	register(NewJava())
	register(NewJavaScript())
	register(NewTypeScript())
}

// ForFile returns the analyzer responsible for the given path, or nil if
// the extension is not routable.
func ForFile(path string) Analyzer {
	ext := strings.ToLower(filepath.Ext(path))
	return registry[ext]
}

// SupportedExtensions returns every extension with a registered analyzer.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}
