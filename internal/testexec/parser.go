package testexec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// Test output parsing. The interesting formats are pytest tracebacks
// (File "x", line N context followed by an error class line) and
// flake8-style lint lines (file:line:col: CODE message).

var (
	tracebackFileLine = regexp.MustCompile(`File "([^"]+)", line (\d+)`)
	lintLine          = regexp.MustCompile(`^([^:\s]+):(\d+):\d+:\s*([A-Z]\d+)\s+(.+)$`)
	logicPrefix       = regexp.MustCompile(`(?i)^(FAILED|assert|AssertionError)`)
)

// ParseOutput extracts structured failures from raw test output,
// deduplicated by failure key.
func ParseOutput(output string) []types.Failure {
	lines := strings.Split(output, "\n")
	var failures []types.Failure

	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if m := lintLine.FindStringSubmatch(line); m != nil {
			num, _ := strconv.Atoi(m[2])
			failures = append(failures, types.Failure{
				File: m[1], Line: num, Category: types.CategoryLinting, Message: m[4],
			})
			continue
		}

		category := classifyErrorLine(line)
		if category == "" {
			continue
		}
		file, num, ok := tracebackContext(lines, i)
		if !ok {
			continue
		}
		if category == types.CategoryTypeError && file == "unknown" {
			continue
		}
		failures = append(failures, types.Failure{
			File: file, Line: num, Category: category, Message: line,
		})
	}

	return types.Merge(failures)
}

func classifyErrorLine(line string) types.BugCategory {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(line, "SyntaxError"):
		return types.CategorySyntax
	case strings.Contains(line, "IndentationError") || strings.Contains(lower, "unexpected indent"):
		return types.CategoryIndentation
	case strings.Contains(line, "ModuleNotFoundError") || strings.Contains(line, "ImportError") ||
		strings.Contains(lower, "cannot import name"):
		return types.CategoryImport
	case strings.Contains(line, "TypeError"):
		return types.CategoryTypeError
	case strings.Contains(line, "AssertionError"):
		return types.CategoryLogic
	case logicPrefix.MatchString(line):
		return types.CategoryLogic
	}
	return ""
}

// tracebackContext finds the File/line pair nearest to the error line:
// backward through the traceback first, then a short look ahead for
// formats that print context after the error.
func tracebackContext(lines []string, errorIdx int) (string, int, bool) {
	for i := errorIdx; i >= 0; i-- {
		if m := tracebackFileLine.FindStringSubmatch(lines[i]); m != nil {
			num, _ := strconv.Atoi(m[2])
			return m[1], num, true
		}
	}
	for i := errorIdx; i < len(lines) && i < errorIdx+3; i++ {
		if m := tracebackFileLine.FindStringSubmatch(lines[i]); m != nil {
			num, _ := strconv.Atoi(m[2])
			return m[1], num, true
		}
	}
	return "", 0, false
}
