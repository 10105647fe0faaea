// Package patcher rewrites source files to fix detected failures. Each
// language carries an ordered rule table per defect category; the first
// rule whose trigger matches the failure message and whose rewrite
// changes the file wins.
package patcher

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// Outcome records whether a single failure's patch applied.
type Outcome struct {
	Failure types.Failure
	Fixed   bool
}

// rewriteFunc mutates the buffer to fix the failure whose message is msg
// at 0-based line idx. It reports whether anything changed.
type rewriteFunc func(buf *fileBuffer, idx int, msg string) bool

// rule pairs a message precondition with a rewrite. An empty triggers
// list matches any message of the category.
type rule struct {
	triggers []string
	rewrite  rewriteFunc
}

func (r rule) matches(msg string) bool {
	if len(r.triggers) == 0 {
		return true
	}
	lower := strings.ToLower(msg)
	for _, t := range r.triggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// ruleTable maps defect categories to ordered rules.
type ruleTable map[types.BugCategory][]rule

func tableForFile(path string) ruleTable {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return pythonRules
	case ".java":
		return javaRules
	case ".js", ".jsx", ".mjs":
		return javascriptRules
	case ".ts", ".tsx":
		return typescriptRules
	}
	return nil
}

// Apply patches every failure it can and returns one outcome per input
// failure. Within a file, failures are applied in descending line order
// so earlier rewrites cannot shift the lines later ones target.
func Apply(repoRoot string, failures []types.Failure) ([]Outcome, error) {
	byFile := map[string][]types.Failure{}
	var fileOrder []string
	for _, f := range failures {
		if _, seen := byFile[f.File]; !seen {
			fileOrder = append(fileOrder, f.File)
		}
		byFile[f.File] = append(byFile[f.File], f)
	}

	outcomes := map[types.FailureKey]bool{}
	for _, file := range fileOrder {
		for key, ok := range applyToFile(repoRoot, file, byFile[file]) {
			outcomes[key] = ok
		}
	}

	results := make([]Outcome, 0, len(failures))
	for _, f := range failures {
		results = append(results, Outcome{Failure: f, Fixed: outcomes[f.Key()]})
	}
	return results, nil
}

// applyToFile patches one file's failures. Any I/O failure degrades to
// not-fixed for every failure targeting the file; the batch continues.
func applyToFile(repoRoot, file string, failures []types.Failure) map[types.FailureKey]bool {
	results := map[types.FailureKey]bool{}
	for _, f := range failures {
		results[f.Key()] = false
	}

	table := tableForFile(file)
	if table == nil {
		return results
	}

	path := filepath.Join(repoRoot, file)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return results
	}
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("patch: skipping %s: %v", file, err)
		return results
	}

	buf := newFileBuffer(string(content))
	sorted := make([]types.Failure, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Line > sorted[j].Line
	})

	changed := false
	for _, f := range sorted {
		idx := f.Line - 1
		if idx < 0 || idx >= buf.Len() {
			continue
		}
		for _, r := range table[f.Category] {
			if !r.matches(f.Message) {
				continue
			}
			if r.rewrite(buf, idx, f.Message) {
				results[f.Key()] = true
				changed = true
				break
			}
		}
	}

	if changed {
		if err := os.WriteFile(path, []byte(buf.String()), info.Mode().Perm()); err != nil {
			// Nothing reached disk, so none of the rewrites count.
			log.Printf("patch: writing %s: %v", file, err)
			for key := range results {
				results[key] = false
			}
		}
	}
	return results
}

// fileBuffer is a line-addressed view of a file under repair.
type fileBuffer struct {
	lines []string
}

func newFileBuffer(content string) *fileBuffer {
	return &fileBuffer{lines: strings.Split(content, "\n")}
}

func (b *fileBuffer) Len() int { return len(b.lines) }

func (b *fileBuffer) Line(idx int) string {
	if idx < 0 || idx >= len(b.lines) {
		return ""
	}
	return b.lines[idx]
}

func (b *fileBuffer) SetLine(idx int, line string) bool {
	if idx < 0 || idx >= len(b.lines) || b.lines[idx] == line {
		return false
	}
	b.lines[idx] = line
	return true
}

func (b *fileBuffer) RemoveLine(idx int) bool {
	if idx < 0 || idx >= len(b.lines) {
		return false
	}
	b.lines = append(b.lines[:idx], b.lines[idx+1:]...)
	return true
}

// BlankLine empties a line without shifting those below it.
func (b *fileBuffer) BlankLine(idx int) bool {
	return b.SetLine(idx, "")
}

func (b *fileBuffer) InsertLines(idx int, lines []string) bool {
	if idx < 0 || idx > len(b.lines) || len(lines) == 0 {
		return false
	}
	b.lines = append(b.lines[:idx], append(append([]string{}, lines...), b.lines[idx:]...)...)
	return true
}

func (b *fileBuffer) String() string {
	out := strings.Join(b.lines, "\n")
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// Lines returns a copy of the current buffer contents.
func (b *fileBuffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
