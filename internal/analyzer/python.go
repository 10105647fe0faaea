package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// Python detects defects in Python source using lexical heuristics plus a
// tree-sitter pass for syntax validation.
type Python struct {
	structural *structuralParser
}

func NewPython() *Python {
	return &Python{structural: newStructuralParser("python")}
}

func (p *Python) Name() string { return "python" }

func (p *Python) Extensions() []string { return []string{".py"} }

func (p *Python) Structural() bool { return p.structural != nil }

var (
	pyXOR            = regexp.MustCompile(`\w+\s*\^\s*\d+`)
	pyStringLiteral  = regexp.MustCompile(`\+\s*["'][a-zA-Z_]\w*["']`)
	pyAssign         = regexp.MustCompile(`^([a-zA-Z_]\w*)\s*=\s*(.+)$`)
	pySimpleAssign   = regexp.MustCompile(`^([a-zA-Z_]\w*)\s*=\s*`)
	pyIntLiteral     = regexp.MustCompile(`^\d+$`)
	pyImportAs       = regexp.MustCompile(`^import\s+(.+)$`)
	pyFromImport     = regexp.MustCompile(`^from\s+(\S+)\s+import\s+(.*)$`)
	pyDedentKeywords = []string{"return", "pass", "break", "continue", "elif", "else", "except", "finally", "def", "class"}
)

func (p *Python) Analyze(content []byte, relPath string) []types.Failure {
	source := string(content)
	lines := strings.Split(source, "\n")

	var failures []types.Failure
	if p.structural != nil {
		failures = append(failures, p.structural.syntaxFailures(content, relPath)...)
	}
	failures = append(failures, p.unusedImports(source, lines, relPath)...)
	failures = append(failures, p.unusedVariables(lines, relPath)...)
	failures = append(failures, p.logicErrors(lines, relPath)...)
	failures = append(failures, p.typeErrors(lines, relPath)...)
	failures = append(failures, p.indentationErrors(lines, relPath)...)
	failures = append(failures, p.importErrors(lines, relPath)...)
	return failures
}

type importBinding struct {
	name string
	line int
}

// parseImportBindings extracts the names an import statement binds.
// Continuation imports (trailing backslash or open paren) are skipped:
// removing part of a multi-line import is not safe line-by-line.
func parseImportBindings(stripped string, lineNo int) []importBinding {
	if strings.HasSuffix(stripped, "(") || strings.HasSuffix(stripped, `\`) {
		return nil
	}

	var bindings []importBinding
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || name == "*" || strings.HasPrefix(name, "_") {
			return
		}
		bindings = append(bindings, importBinding{name: name, line: lineNo})
	}

	if m := pyFromImport.FindStringSubmatch(stripped); m != nil {
		if m[1] == "__future__" {
			return nil
		}
		for _, part := range strings.Split(m[2], ",") {
			part = strings.TrimSpace(part)
			if as := strings.Split(part, " as "); len(as) == 2 {
				add(as[1])
			} else {
				add(part)
			}
		}
		return bindings
	}

	if m := pyImportAs.FindStringSubmatch(stripped); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if as := strings.Split(part, " as "); len(as) == 2 {
				add(as[1])
			} else {
				// import a.b binds the top-level package name
				add(strings.SplitN(part, ".", 2)[0])
			}
		}
	}
	return bindings
}

func (p *Python) unusedImports(source string, lines []string, relPath string) []types.Failure {
	var bindings []importBinding
	for i, raw := range lines {
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		if !strings.HasPrefix(stripped, "import ") && !strings.HasPrefix(stripped, "from ") {
			continue
		}
		bindings = append(bindings, parseImportBindings(stripped, i+1)...)
	}
	if len(bindings) == 0 {
		return nil
	}

	withoutComments := make([]string, len(lines))
	for i, line := range lines {
		withoutComments[i] = stripHashComment(line)
	}
	searchable := strings.Join(withoutComments, "\n")

	var failures []types.Failure
	seen := map[importBinding]bool{}
	for _, b := range bindings {
		if seen[b] {
			continue
		}
		seen[b] = true
		// One occurrence is the import statement itself.
		if countWordOccurrences(searchable, b.name) <= 1 {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     b.line,
				Category: types.CategoryLinting,
				Message:  "unused import",
			})
		}
	}
	return failures
}

func (p *Python) unusedVariables(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	for i, raw := range lines {
		code := strings.TrimSpace(stripHashComment(raw))
		if code == "" || !strings.Contains(code, "=") {
			continue
		}
		if strings.Contains(code, "==") || strings.Contains(code, "!=") ||
			strings.Contains(code, ">=") || strings.Contains(code, "<=") {
			continue
		}
		m := pySimpleAssign.FindStringSubmatch(code)
		if m == nil || strings.HasPrefix(m[1], "_") {
			continue
		}
		remaining := strings.Join(lines[i+1:], "\n")
		if countWordOccurrences(remaining, m[1]) == 0 {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     i + 1,
				Category: types.CategoryLinting,
				Message:  fmt.Sprintf("unused variable '%s'", m[1]),
			})
		}
	}
	return failures
}

func (p *Python) logicErrors(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	for i, raw := range lines {
		code := strings.TrimSpace(stripHashComment(raw))
		if code == "" {
			continue
		}

		// Bitwise XOR where exponentiation was almost certainly intended.
		if pyXOR.MatchString(code) {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     i + 1,
				Category: types.CategoryLogic,
				Message:  "bitwise XOR (^) detected, did you mean exponentiation (**)?",
			})
		}

		// Quoted identifier in a return expression, e.g. return a + "b".
		if strings.Contains(code, "return") && strings.Contains(code, "+") && pyStringLiteral.MatchString(code) {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     i + 1,
				Category: types.CategoryLogic,
				Message:  "string literal detected in expression, did you mean a variable?",
			})
		}
	}
	return failures
}

func (p *Python) typeErrors(lines []string, relPath string) []types.Failure {
	// First pass: infer types from simple literal assignments.
	varTypes := map[string]string{}
	for _, raw := range lines {
		code := strings.TrimSpace(stripHashComment(raw))
		m := pyAssign.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch {
		case strings.HasPrefix(value, `"`) || strings.HasPrefix(value, "'"):
			varTypes[m[1]] = "str"
		case pyIntLiteral.MatchString(value):
			varTypes[m[1]] = "int"
		}
	}

	var failures []types.Failure
	for i, raw := range lines {
		code := strings.TrimSpace(stripHashComment(raw))
		if code == "" || !strings.Contains(code, "+") {
			continue
		}
		if pyAdditionMismatch(code, varTypes) {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     i + 1,
				Category: types.CategoryTypeError,
				Message:  "type mismatch: cannot add incompatible types",
			})
		}
	}
	return failures
}

// pyAdditionMismatch inspects each + operator's neighboring operands and
// reports whether any pair mixes string and non-string types. At most one
// report per line.
func pyAdditionMismatch(code string, varTypes map[string]string) bool {
	parts := strings.Split(code, "+")
	for i := 0; i < len(parts)-1; i++ {
		left := lastToken(parts[i])
		right := firstToken(parts[i+1])
		if left == "" || right == "" {
			continue
		}

		leftStrLit := strings.HasPrefix(left, `"`) || strings.HasPrefix(left, "'")
		rightStrLit := strings.HasPrefix(right, `"`) || strings.HasPrefix(right, "'")
		leftIntLit := pyIntLiteral.MatchString(left)
		rightIntLit := pyIntLiteral.MatchString(right)
		leftStrVar := varTypes[left] == "str"
		rightStrVar := varTypes[right] == "str"
		leftCall := strings.HasSuffix(left, ")") && strings.Contains(left, "(")
		rightCall := strings.HasSuffix(right, ")") && strings.Contains(right, "(")

		// "=" * 70 style repetition is string-valued, not a mismatch.
		stringMultiplication := (strings.Contains(parts[i], "*") || strings.Contains(parts[i+1], "*")) &&
			(leftStrLit || rightStrLit)

		switch {
		case (leftIntLit && rightStrLit) || (leftStrLit && rightIntLit):
			return true
		case !leftStrLit && !leftIntLit && !leftStrVar && !leftCall && rightStrLit && !stringMultiplication:
			return true
		case leftStrLit && !rightStrLit && !rightIntLit && !rightStrVar && !rightCall && !stringMultiplication:
			return true
		}
	}
	return false
}

func (p *Python) indentationErrors(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	for i, raw := range lines {
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(strings.TrimSpace(raw), "#") {
			continue
		}
		code := strings.TrimRight(stripHashComment(raw), " \t")
		indent := leadingIndentWidth(raw)

		prefix := raw[:min(indent, len(raw))]
		if strings.Contains(prefix, "\t") && strings.Contains(prefix, " ") {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     i + 1,
				Category: types.CategoryIndentation,
				Message:  "mixed tabs and spaces in indentation",
			})
		}

		if i == 0 {
			continue
		}
		prev := strings.TrimRight(stripHashComment(lines[i-1]), " \t")
		prevStripped := strings.TrimSpace(prev)
		if !strings.HasSuffix(prevStripped, ":") {
			continue
		}
		expected := leadingIndentWidth(prev) + 4

		dedent := false
		for _, kw := range pyDedentKeywords {
			if strings.HasPrefix(strings.TrimSpace(code), kw) {
				dedent = true
				break
			}
		}
		if !dedent && indent < expected && code != "" {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     i + 1,
				Category: types.CategoryIndentation,
				Message:  fmt.Sprintf("expected indentation of %d spaces, got %d", expected, indent),
			})
		}
	}
	return failures
}

func (p *Python) importErrors(lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	importEnded := false

	for i, raw := range lines {
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}

		isImport := strings.HasPrefix(stripped, "import ") || strings.HasPrefix(stripped, "from ") ||
			stripped == "import" || stripped == "from"
		if !isImport {
			importEnded = true
		}

		if isImport && importEnded && i > 0 {
			prev := ""
			for j := i - 1; j >= 0; j-- {
				s := strings.TrimSpace(lines[j])
				if s != "" && !strings.HasPrefix(s, "#") {
					prev = s
					break
				}
			}
			if prev != "" && !strings.HasPrefix(prev, "from __future__") {
				failures = append(failures, types.Failure{
					File:     relPath,
					Line:     i + 1,
					Category: types.CategoryImport,
					Message:  "import statement should appear at the top of the file",
				})
			}
		}

		if !isImport {
			continue
		}
		if stripped == "import" || stripped == "from" {
			failures = append(failures, types.Failure{
				File:     relPath,
				Line:     i + 1,
				Category: types.CategoryImport,
				Message:  "incomplete import statement",
			})
		}
		if strings.HasPrefix(stripped, "from ") && strings.Contains(stripped, " import ") {
			importPart := strings.TrimSpace(strings.SplitN(stripped, " import ", 2)[1])
			if importPart == "" {
				failures = append(failures, types.Failure{
					File:     relPath,
					Line:     i + 1,
					Category: types.CategoryImport,
					Message:  "empty import list",
				})
			}
		}
	}
	return failures
}

func stripHashComment(line string) string {
	if idx := strings.Index(line, "#"); idx >= 0 {
		return line[:idx]
	}
	return line
}

func leadingIndentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func lastToken(s string) string {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func firstToken(s string) string {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func countWordOccurrences(text, word string) int {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return len(re.FindAllStringIndex(text, -1))
}
