package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// JavaScript detects defects in JavaScript source.
type JavaScript struct {
	structural *structuralParser
}

func NewJavaScript() *JavaScript {
	return &JavaScript{structural: newStructuralParser("javascript")}
}

func (js *JavaScript) Name() string { return "javascript" }

func (js *JavaScript) Extensions() []string { return []string{".js", ".jsx", ".mjs"} }

func (js *JavaScript) Structural() bool { return js.structural != nil }

var (
	jsImportLine     = regexp.MustCompile(`^\s*(import|require)\b`)
	jsIncompleteImp  = regexp.MustCompile(`^\s*import\s*;?\s*$`)
	jsImportedName   = regexp.MustCompile(`(?:import|from)\s+(?:.*\s+)?as\s+(\w+)|import\s+\{([^}]+)\}|import\s+(\w+)`)
	jsVarDecl        = regexp.MustCompile(`(?:let|const|var)\s+([a-zA-Z_]\w*)`)
	jsAnyDecl        = regexp.MustCompile(`\b(?:let|const|var)\s+([a-zA-Z_]\w*)\s*(?:=|;)`)
	jsArrowParams    = regexp.MustCompile(`\(([^)]*)\)\s*=>`)
	jsFunctionParams = regexp.MustCompile(`function\s+\w*\s*\(([^)]*)\)`)
	jsFunctionName   = regexp.MustCompile(`\bfunction\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	jsConsoleConcat  = regexp.MustCompile(`\(\s*['"][^'"]*['"]\s+[A-Za-z_]\w*\s*\)`)
	jsStrConcatDbl   = regexp.MustCompile(`"[^"]*"\s*\+\s*\w+`)
	jsStrConcatSgl   = regexp.MustCompile(`'[^']*'\s*\+\s*\w+`)
	jsStringAssign   = regexp.MustCompile(`\b(?:let|const|var)\s+(\w+)\s*=\s*['"][^'"]*['"]\s*;`)
	jsPushCall       = regexp.MustCompile(`\b(\w+)\s*\.\s*push\s*\(`)
	jsMixedArray     = regexp.MustCompile(`\[[^\]]*\d+[^\]]*['"]\d+['"][^\]]*\]`)
)

func (js *JavaScript) Analyze(content []byte, relPath string) []types.Failure {
	source := string(content)
	lines := strings.Split(source, "\n")

	var failures []types.Failure
	failures = append(failures, js.syntaxErrors(lines, relPath)...)
	if js.structural != nil {
		failures = append(failures, js.structural.syntaxFailures(content, relPath)...)
	}
	failures = append(failures, js.lintingErrors(source, lines, relPath)...)
	failures = append(failures, js.importErrors(lines, relPath)...)
	failures = append(failures, scanCLikeLogic(lines, relPath, false)...)
	failures = append(failures, js.typeErrors(lines, relPath)...)
	failures = append(failures, scanBraceIndentation(lines, relPath)...)
	return failures
}

func (js *JavaScript) syntaxErrors(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	for i, line := range lines {
		lineNo := i + 1
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "//") {
			continue
		}

		if !hasAnySuffix(stripped, "(", ")", "{", "}", ";", ",", "//", "/*", "*/") &&
			(strings.Contains(stripped, "=") || strings.HasPrefix(stripped, "return ")) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing semicolon at end of statement",
			})
		}

		if strings.Count(stripped, "(") > strings.Count(stripped, ")") && strings.HasSuffix(stripped, ";") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing closing parenthesis",
			})
		}

		if strings.HasPrefix(stripped, "if ") && strings.Contains(stripped, "{") &&
			!strings.Contains(strings.SplitN(stripped, "{", 2)[0], ")") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing closing parenthesis before '{'",
			})
		}

		if strings.Contains(stripped, "console.log") && jsConsoleConcat.MatchString(stripped) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing concatenation operator in console.log",
			})
		}

		if strings.Count(stripped, "[") > strings.Count(stripped, "]") && strings.HasSuffix(stripped, ";") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing closing bracket",
			})
		}
	}
	return failures
}

func (js *JavaScript) lintingErrors(source string, lines []string, relPath string) []types.Failure {
	var failures []types.Failure

	for i, line := range lines {
		if !jsImportLine.MatchString(line) {
			continue
		}
		m := jsImportedName.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		imported := m[1]
		if imported == "" {
			imported = m[2]
		}
		if imported == "" {
			imported = m[3]
		}
		imported = strings.TrimSpace(strings.SplitN(imported, ",", 2)[0])
		if imported == "" {
			continue
		}
		rest := strings.Replace(source, line, "", 1)
		if countWordOccurrences(rest, imported) == 0 {
			failures = append(failures, types.Failure{
				File: relPath, Line: i + 1, Category: types.CategoryLinting,
				Message: fmt.Sprintf("Unused import: %s", imported),
			})
		}
	}

	for i, line := range lines {
		lineNo := i + 1

		for _, m := range jsVarDecl.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if strings.Contains(name, "_") && name != "_" && name != strings.ToUpper(name) {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategoryLinting,
					Message: fmt.Sprintf("Variable '%s' should use camelCase, not snake_case", name),
				})
			}
		}

		params := jsArrowParams.FindStringSubmatch(line)
		if params == nil {
			params = jsFunctionParams.FindStringSubmatch(line)
		}
		if params != nil {
			for _, param := range strings.Split(params[1], ",") {
				name := strings.TrimSpace(strings.SplitN(param, "=", 2)[0])
				if strings.Contains(name, "_") && name != "_" && name != "" {
					failures = append(failures, types.Failure{
						File: relPath, Line: lineNo, Category: types.CategoryLinting,
						Message: fmt.Sprintf("parameter name should be camelCase: '%s'", name),
					})
				}
			}
		}

		if m := jsFunctionName.FindStringSubmatch(line); m != nil {
			name := m[1]
			if strings.Contains(name, "_") || (name[0] >= 'A' && name[0] <= 'Z') {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategoryLinting,
					Message: fmt.Sprintf("function name should be camelCase: '%s'", name),
				})
			}
		}
	}

	failures = append(failures, scanLowercaseClasses(lines, relPath)...)
	failures = append(failures, scanUnusedDeclarations(source, lines, relPath, jsAnyDecl)...)
	return failures
}

func (js *JavaScript) importErrors(lines []string, relPath string) []types.Failure {
	failures := scanImportOrder(lines, relPath, jsImportLine, func(stripped string) bool {
		return strings.HasPrefix(stripped, "import") || strings.HasPrefix(stripped, "export") ||
			strings.HasPrefix(stripped, "require") || strings.HasPrefix(stripped, "*")
	})
	failures = append(failures, scanIncompleteImports(lines, relPath, jsIncompleteImp)...)
	return failures
}

func (js *JavaScript) typeErrors(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	stringVars := map[string]bool{}

	for i, line := range lines {
		lineNo := i + 1

		if (jsStrConcatDbl.MatchString(line) || jsStrConcatSgl.MatchString(line)) &&
			!strings.Contains(line, "String") && !strings.Contains(line, "toString") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "type mismatch: string concatenation requires conversion",
			})
		}

		if m := jsStringAssign.FindStringSubmatch(line); m != nil {
			stringVars[m[1]] = true
		}

		if m := jsPushCall.FindStringSubmatch(line); m != nil && stringVars[m[1]] {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "attempting to push to non-array",
			})
		}

		if jsMixedArray.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "mixed numeric and string values in collection",
			})
		}
	}
	return failures
}
