package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// Shared scans for brace-delimited languages. Java, JavaScript and
// TypeScript report the same logic and indentation defects; only the
// declaration grammar around them differs.

var (
	clikePlusAssign    = regexp.MustCompile(`\w+\s*\+=`)
	clikeMinusAssign   = regexp.MustCompile(`\w+\s*-=`)
	clikeAccumSubtract = regexp.MustCompile(`\b(total|sum|count)\w*\s*-=\s*\w+`)
	clikeDivisor       = regexp.MustCompile(`sum\s*/\s*\d+`)
	clikeXOR           = regexp.MustCompile(`\b\w+\s*\^\s*\w+\b`)
	clikeStringLit     = regexp.MustCompile(`\+\s*["'][a-zA-Z_]\w*["']`)
	clikeCompare       = regexp.MustCompile(`if\s*\(\s*([a-zA-Z_]\w*)\s*([<>])\s*([a-zA-Z_]\w*)\s*\)`)
	clikeReturn        = regexp.MustCompile(`\breturn\b`)
	clikeLoopKeyword   = regexp.MustCompile(`\bfor\b|\bwhile\b`)
	clikeConstAssign   = regexp.MustCompile(`\b([a-zA-Z_]\w*)\s*=\s*(-?\d+(?:\.\d+)?)\s*;`)
	clikeLowerClass    = regexp.MustCompile(`\bclass\s+([a-z]\w*)`)
)

var (
	highHints = []string{"high", "highest", "top", "best", "max", "greatest"}
	lowHints  = []string{"low", "lowest", "bottom", "worst", "min", "smallest"}
)

type constAssignment struct {
	line  int
	name  string
	value float64
}

// scanCLikeLogic reports operator and comparison defects common to the
// brace languages. accumulators enables the total/sum/count subtraction
// check, which only makes sense where -= cannot be operator-overloaded.
func scanCLikeLogic(lines []string, relPath string, accumulators bool) []types.Failure {
	var failures []types.Failure
	var constants []constAssignment

	for i, line := range lines {
		lineNo := i + 1
		lower := strings.ToLower(line)

		if clikePlusAssign.MatchString(line) &&
			(strings.Contains(lower, "remove") || strings.Contains(lower, "decrement")) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLogic,
				Message: "Possible wrong operator: using += for removal operation",
			})
		}
		if clikeMinusAssign.MatchString(line) &&
			(strings.Contains(lower, "add") || strings.Contains(lower, "increment") || strings.Contains(lower, "deposit")) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLogic,
				Message: "Possible wrong operator: using -= for addition operation",
			})
		}
		if accumulators && clikeAccumSubtract.MatchString(line) &&
			!strings.Contains(lower, "remove") && !strings.Contains(lower, "decrement") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLogic,
				Message: "addition operation uses '-='",
			})
		}
		if clikeDivisor.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLogic,
				Message: "Possible wrong divisor: dividing by constant instead of array length",
			})
		}
		if clikeXOR.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLogic,
				Message: "bitwise XOR (^) detected, did you mean exponentiation?",
			})
		}
		if strings.Contains(line, "return") && strings.Contains(line, "+") && clikeStringLit.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLogic,
				Message: "string literal detected in expression, did you mean a variable?",
			})
		}

		if m := clikeCompare.FindStringSubmatch(line); m != nil {
			left, op, right := strings.ToLower(m[1]), m[2], strings.ToLower(m[3])
			if strings.Contains(right, "max") && op == "<" && !strings.Contains(left, "max") {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategoryLogic,
					Message: "comparison for max uses '<', did you mean '>'?",
				})
			}
			if strings.Contains(right, "min") && op == ">" && !strings.Contains(left, "min") {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategoryLogic,
					Message: "comparison for min uses '>', did you mean '<'?",
				})
			}
		}

		// return a few lines below an accumulation loop header usually
		// short-circuits the first iteration.
		if clikeReturn.MatchString(line) {
			for back := max(0, i-5); back < i; back++ {
				prev := strings.TrimSpace(lines[back])
				if clikeLoopKeyword.MatchString(prev) &&
					(strings.Contains(prev, "sum") || strings.Contains(prev, "total") || strings.Contains(prev, "count")) {
					failures = append(failures, types.Failure{
						File: relPath, Line: lineNo, Category: types.CategoryLogic,
						Message: "return inside accumulation loop causes premature exit",
					})
					break
				}
			}
		}

		if m := clikeConstAssign.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				constants = append(constants, constAssignment{line: lineNo, name: m[1], value: v})
			}
		}
	}

	failures = append(failures, trackerInitFailures(lines, relPath, constants)...)
	return failures
}

// trackerInitFailures flags min/max trackers seeded with constants and
// selection thresholds seeded on the wrong side of the comparison.
func trackerInitFailures(lines []string, relPath string, constants []constAssignment) []types.Failure {
	var failures []types.Failure
	for _, c := range constants {
		lower := strings.ToLower(c.name)
		if strings.Contains(lower, "min") || strings.Contains(lower, "max") {
			comparePattern := regexp.MustCompile(`if\s*\([^\)]*\b` + regexp.QuoteMeta(c.name) + `\b\s*[<>]`)
			for _, line := range lines {
				if comparePattern.MatchString(line) {
					failures = append(failures, types.Failure{
						File: relPath, Line: c.line, Category: types.CategoryLogic,
						Message: "min/max tracker initialized to constant; use first iterable element instead",
					})
					break
				}
			}
		}

		if containsAny(lower, highHints) && c.value > 0 {
			greater := regexp.MustCompile(`if\s*\([^\)]*>\s*\b` + regexp.QuoteMeta(c.name) + `\b`)
			for _, line := range lines {
				if greater.MatchString(line) {
					failures = append(failures, types.Failure{
						File: relPath, Line: c.line, Category: types.CategoryLogic,
						Message: "threshold tracker initialized too high for '>' selection",
					})
					break
				}
			}
		}
		if containsAny(lower, lowHints) && c.value < 0 {
			less := regexp.MustCompile(`if\s*\([^\)]*<\s*\b` + regexp.QuoteMeta(c.name) + `\b`)
			for _, line := range lines {
				if less.MatchString(line) {
					failures = append(failures, types.Failure{
						File: relPath, Line: c.line, Category: types.CategoryLogic,
						Message: "threshold tracker initialized too low for '<' selection",
					})
					break
				}
			}
		}
	}
	return failures
}

// scanBraceIndentation flags lines that fail to indent after an opening
// brace.
func scanBraceIndentation(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	for i := 0; i < len(lines)-1; i++ {
		line, next := lines[i], lines[i+1]
		if !strings.HasSuffix(strings.TrimRight(line, " \t"), "{") {
			continue
		}
		trimmed := strings.TrimSpace(next)
		if trimmed == "" || strings.HasPrefix(trimmed, "}") {
			continue
		}
		if leadingIndentWidth(next) <= leadingIndentWidth(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: i + 2, Category: types.CategoryIndentation,
				Message: "Missing indentation after opening brace",
			})
		}
	}
	return failures
}

// scanImportOrder flags import statements that appear after the first
// line of real code. headerPrefix decides what counts as header material
// rather than code (package/import declarations, block-comment art).
func scanImportOrder(lines []string, relPath string, importLine *regexp.Regexp, headerPrefix func(string) bool) []types.Failure {
	firstCode := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "//") || strings.HasPrefix(stripped, "/*") {
			continue
		}
		if !headerPrefix(stripped) {
			firstCode = i + 1
			break
		}
	}
	if firstCode == 0 {
		return nil
	}

	var failures []types.Failure
	for i, line := range lines {
		if i+1 > firstCode && importLine.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: i + 1, Category: types.CategoryImport,
				Message: "Import statement found after code",
			})
		}
	}
	return failures
}

// scanIncompleteImports flags bare import statements with no target.
func scanIncompleteImports(lines []string, relPath string, incomplete *regexp.Regexp) []types.Failure {
	var failures []types.Failure
	for i, line := range lines {
		if incomplete.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: i + 1, Category: types.CategoryImport,
				Message: "incomplete import statement",
			})
		}
	}
	return failures
}

// scanLowercaseClasses flags class names that do not use PascalCase.
func scanLowercaseClasses(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	for i, line := range lines {
		if m := clikeLowerClass.FindStringSubmatch(line); m != nil {
			failures = append(failures, types.Failure{
				File: relPath, Line: i + 1, Category: types.CategoryLinting,
				Message: fmt.Sprintf("Class '%s' should use PascalCase", m[1]),
			})
		}
	}
	return failures
}

// scanUnusedDeclarations flags declared names that never appear again.
// declPattern's first capture group must be the declared identifier.
func scanUnusedDeclarations(source string, lines []string, relPath string, declPattern *regexp.Regexp) []types.Failure {
	declared := map[string]int{}
	var order []string
	for i, line := range lines {
		if m := declPattern.FindStringSubmatch(line); m != nil {
			name := m[1]
			if strings.HasPrefix(name, "_") {
				continue
			}
			if _, seen := declared[name]; !seen {
				order = append(order, name)
			}
			declared[name] = i + 1
		}
	}

	var failures []types.Failure
	for _, name := range order {
		if countWordOccurrences(source, name) <= 1 {
			failures = append(failures, types.Failure{
				File: relPath, Line: declared[name], Category: types.CategoryLinting,
				Message: fmt.Sprintf("unused variable '%s'", name),
			})
		}
	}
	return failures
}

func containsAny(s string, hints []string) bool {
	for _, hint := range hints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}
