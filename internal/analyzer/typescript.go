package analyzer

import (
	"regexp"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// TypeScript detects defects in TypeScript source. The scans are the
// JavaScript set plus mismatches against declared type annotations, which
// only TypeScript can express.
type TypeScript struct {
	js         *JavaScript
	structural *structuralParser
}

func NewTypeScript() *TypeScript {
	return &TypeScript{
		js:         &JavaScript{},
		structural: newStructuralParser("typescript"),
	}
}

func (ts *TypeScript) Name() string { return "typescript" }

func (ts *TypeScript) Extensions() []string { return []string{".ts", ".tsx"} }

func (ts *TypeScript) Structural() bool { return ts.structural != nil }

var (
	tsNumberFromStr  = regexp.MustCompile(`:\s*number\s*=\s*['"]`)
	tsStringFromNum  = regexp.MustCompile(`:\s*string\s*=\s*-?\d+(?:\.\d+)?\s*[;,]`)
	tsBooleanFromStr = regexp.MustCompile(`:\s*boolean\s*=\s*['"]`)
	tsNumberArray    = regexp.MustCompile(`:\s*number\[\]\s*=\s*\[[^\]]*['"]`)
)

func (ts *TypeScript) Analyze(content []byte, relPath string) []types.Failure {
	source := string(content)
	lines := strings.Split(source, "\n")

	var failures []types.Failure
	failures = append(failures, ts.js.syntaxErrors(lines, relPath)...)
	if ts.structural != nil {
		failures = append(failures, ts.structural.syntaxFailures(content, relPath)...)
	}
	failures = append(failures, ts.js.lintingErrors(source, lines, relPath)...)
	failures = append(failures, ts.js.importErrors(lines, relPath)...)
	failures = append(failures, scanCLikeLogic(lines, relPath, false)...)
	failures = append(failures, ts.js.typeErrors(lines, relPath)...)
	failures = append(failures, ts.annotationMismatches(lines, relPath)...)
	failures = append(failures, scanBraceIndentation(lines, relPath)...)
	return failures
}

// annotationMismatches flags literal assignments that contradict the
// declared annotation.
func (ts *TypeScript) annotationMismatches(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	for i, line := range lines {
		lineNo := i + 1
		switch {
		case tsNumberFromStr.MatchString(line):
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "assigned string literal to numeric type",
			})
		case tsStringFromNum.MatchString(line):
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "assigned numeric literal to string type",
			})
		case tsBooleanFromStr.MatchString(line):
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "assigned string literal to boolean type",
			})
		case tsNumberArray.MatchString(line):
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "mixed numeric and string values in collection",
			})
		}
	}
	return failures
}
