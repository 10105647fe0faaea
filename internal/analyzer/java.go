package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// Java detects defects in Java source. Beyond the shared brace-language
// scans it knows about method return types, Scanner usage, raw generics
// and a handful of recursive-search mistakes.
type Java struct {
	structural *structuralParser
}

func NewJava() *Java {
	return &Java{structural: newStructuralParser("java")}
}

func (j *Java) Name() string { return "java" }

func (j *Java) Extensions() []string { return []string{".java"} }

func (j *Java) Structural() bool { return j.structural != nil }

var (
	javaControlStart   = regexp.MustCompile(`^\s*(for|if|while|else|class|interface|try|catch|finally|switch|public|private|protected|static)\b`)
	javaMissingBrace   = regexp.MustCompile(`(public|private|protected)?\s*(static)?\s*(class|interface|void|int|String|boolean|double|float)\s+\w+\s*\([^)]*\)\s*$`)
	javaImportStmt     = regexp.MustCompile(`import\s+([\w.]+);`)
	javaImportLine     = regexp.MustCompile(`^\s*import\s+`)
	javaIncompleteImp  = regexp.MustCompile(`^\s*import\s*;?\s*$`)
	javaVarDecl        = regexp.MustCompile(`\b(int|String|double|boolean|float|long)\s+([a-zA-Z_]\w*)`)
	javaAnyDecl        = regexp.MustCompile(`\b(?:int|String|double|boolean|float|long|char|byte|short|var)\s+([a-zA-Z_]\w*)\s*(?:=|;)`)
	javaSignature      = regexp.MustCompile(`\b\w[\w<>\[\]]*\s+\w+\s*\(([^)]*)\)`)
	javaMethodName     = regexp.MustCompile(`\b(?:public|private|protected)?\s*(?:static\s+)?\w[\w<>\[\]]*\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	javaMethodDecl     = regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?(\w[\w<>\[\],\s]*?)\s+([a-zA-Z_]\w*)\s*\(([^)]*)\)\s*\{?\s*$`)
	javaCtorDecl       = regexp.MustCompile(`^\s*(?:public|private|protected)\s+([A-Z]\w*)\s*\([^)]*\)\s*\{?\s*$`)
	javaClassDecl      = regexp.MustCompile(`\bclass\s+([A-Za-z_]\w*)`)
	javaStrConcat      = regexp.MustCompile(`".*"\s*\+\s*(\w+(?:\.\w+)?)\s*[,;)]`)
	javaStrConversion  = regexp.MustCompile(`(toString\(\)|String\.valueOf\()`)
	javaNumPlusStr     = regexp.MustCompile(`\d\s*\+\s*"`)
	javaNumericFromStr = regexp.MustCompile(`\b(int|long|double|float)\s+\w+\s*=\s*"-?\d+(?:\.\d+)?"\s*;`)
	javaMixedBraces    = regexp.MustCompile(`\{[^}]*\d+[^}]*['"]\d+['"][^}]*\}`)
	javaCharFromStr    = regexp.MustCompile(`\bchar\s+\w+\s*=\s*"`)
	javaIntFromNext    = regexp.MustCompile(`\bint\s+\w+\s*=\s*\w+\.next\s*\(\s*\)`)
	javaLowerScanner   = regexp.MustCompile(`java\.util\.scanner|\bscanner\s+[a-zA-Z_]\w*\s*=\s*new\s+scanner\b`)
	javaRawType        = regexp.MustCompile(`\b(HashMap|ArrayList|HashSet|LinkedList|TreeMap)\s+\w+\s*=\s*new\s+(HashMap|ArrayList|HashSet|LinkedList|TreeMap)\s*\(\s*\)`)
	javaReturnString   = regexp.MustCompile(`\breturn\s+"`)
	javaReturnDecimal  = regexp.MustCompile(`\breturn\s+-?\d+\.\d+`)
	javaDoubleMapDecl  = regexp.MustCompile(`Map<String,\s*Double>\s+([a-zA-Z_]\w*)`)
	javaMidpoint       = regexp.MustCompile(`\b([a-zA-Z_]\w*)\s*=\s*\(\s*\w+\s*\+\s*\w+\s*\)\s*/\s*2`)
	javaArray2DDecl    = regexp.MustCompile(`\w+\s*\[\]\s*\[\]\s*([A-Za-z_]\w*)\s*=\s*new\s+\w+\[(\d+)\]\[(\d+)\]`)
	javaArray2DAccess  = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\[\s*([A-Za-z_]\w*)\s*\]\s*\[\s*([A-Za-z_]\w*)\s*\]`)
	javaLoopBound      = regexp.MustCompile(`for\s*\(\s*int\s+([A-Za-z_]\w*)\s*=\s*0\s*;\s*([A-Za-z_]\w*)\s*<\s*(\d+)\s*;`)
	javaEmptySlotCmp   = regexp.MustCompile(`==\s*'[ \-]'`)
)

func (j *Java) Analyze(content []byte, relPath string) []types.Failure {
	source := string(content)
	lines := strings.Split(source, "\n")
	methods := parseJavaMethods(lines)

	var failures []types.Failure
	failures = append(failures, j.syntaxErrors(source, lines, relPath)...)
	if j.structural != nil {
		failures = append(failures, j.structural.syntaxFailures(content, relPath)...)
	}
	failures = append(failures, j.lintingErrors(source, lines, methods, relPath)...)
	failures = append(failures, j.importErrors(lines, relPath)...)
	failures = append(failures, scanCLikeLogic(lines, relPath, true)...)
	failures = append(failures, j.logicErrors(lines, methods, relPath)...)
	failures = append(failures, j.typeErrors(lines, methods, relPath)...)
	failures = append(failures, scanBraceIndentation(lines, relPath)...)
	return failures
}

// javaMethod is a method body located by brace counting.
type javaMethod struct {
	returnType string
	name       string
	declLine   int // 1-based
	endLine    int // 1-based, line holding the closing brace
}

func parseJavaMethods(lines []string) []javaMethod {
	var methods []javaMethod
	for i, line := range lines {
		m := javaMethodDecl.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ret := strings.TrimSpace(m[1])
		if ret == "new" || ret == "return" || strings.HasPrefix(ret, "class") {
			continue
		}
		methods = append(methods, javaMethod{
			returnType: ret,
			name:       m[2],
			declLine:   i + 1,
			endLine:    findBlockEnd(lines, i),
		})
	}
	return methods
}

// findBlockEnd returns the 1-based line of the brace closing the block
// that opens at or after startIdx.
func findBlockEnd(lines []string, startIdx int) int {
	depth := 0
	opened := false
	for i := startIdx; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{")
		if strings.Contains(lines[i], "{") {
			opened = true
		}
		depth -= strings.Count(lines[i], "}")
		if opened && depth <= 0 {
			return i + 1
		}
	}
	return len(lines)
}

func (j *Java) syntaxErrors(source string, lines []string, relPath string) []types.Failure {
	var failures []types.Failure
	className := ""
	if m := javaClassDecl.FindStringSubmatch(source); m != nil {
		className = m[1]
	}

	for i, line := range lines {
		lineNo := i + 1
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "//") {
			continue
		}

		if !hasAnySuffix(stripped, ";", "{", "}", ",", ")", "//", "/*", "*/") &&
			!javaControlStart.MatchString(stripped) &&
			(strings.Contains(stripped, "=") || strings.HasSuffix(stripped, ")") || clikeReturn.MatchString(stripped)) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing semicolon at end of statement",
			})
		}

		if javaMissingBrace.MatchString(stripped) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing opening brace after method/class declaration",
			})
		}

		if strings.Count(stripped, "(") > strings.Count(stripped, ")") && strings.HasSuffix(stripped, ";") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing closing parenthesis",
			})
		}

		if strings.Count(stripped, "[") > strings.Count(stripped, "]") && strings.HasSuffix(stripped, ";") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategorySyntax,
				Message: "Missing closing bracket",
			})
		}

		if className != "" {
			if m := javaCtorDecl.FindStringSubmatch(line); m != nil && m[1] != className && !isJavaTypeName(m[1]) {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategorySyntax,
					Message: "constructor name does not match class name",
				})
			}
		}
	}
	return failures
}

func isJavaTypeName(name string) bool {
	switch name {
	case "String", "Integer", "Double", "Boolean", "Float", "Long", "Character", "Object", "Scanner":
		return true
	}
	return false
}

func (j *Java) lintingErrors(source string, lines []string, methods []javaMethod, relPath string) []types.Failure {
	var failures []types.Failure

	for i, line := range lines {
		if !javaImportLine.MatchString(line) {
			continue
		}
		m := javaImportStmt.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		segments := strings.Split(m[1], ".")
		imported := segments[len(segments)-1]
		if imported == "*" {
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

		for _, m := range javaVarDecl.FindAllStringSubmatch(line, -1) {
			if strings.Contains(m[2], "_") && m[2] != "_" {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategoryLinting,
					Message: fmt.Sprintf("Variable '%s' should use camelCase, not snake_case", m[2]),
				})
			}
		}

		if sig := javaSignature.FindStringSubmatch(line); sig != nil {
			for _, param := range strings.Split(sig[1], ",") {
				fields := strings.Fields(strings.TrimSpace(param))
				if len(fields) == 0 {
					continue
				}
				name := fields[len(fields)-1]
				if strings.Contains(name, "_") && name != "_" {
					failures = append(failures, types.Failure{
						File: relPath, Line: lineNo, Category: types.CategoryLinting,
						Message: fmt.Sprintf("parameter name should be camelCase: '%s'", name),
					})
				}
			}
		}

		if m := javaMethodName.FindStringSubmatch(line); m != nil {
			name := m[1]
			if strings.Contains(name, "_") || (name != "" && name[0] >= 'A' && name[0] <= 'Z') {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategoryLinting,
					Message: fmt.Sprintf("method name should be camelCase: '%s'", name),
				})
			}
		}

		if javaLowerScanner.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLinting,
				Message: "scanner type should be capitalized",
			})
		}

		if m := javaRawType.FindStringSubmatch(line); m != nil && !strings.Contains(line, "<") {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryLinting,
				Message: fmt.Sprintf("raw type %s used without generics", m[1]),
			})
		}
	}

	failures = append(failures, scanLowercaseClasses(lines, relPath)...)
	failures = append(failures, scanUnusedDeclarations(source, lines, relPath, javaAnyDecl)...)
	failures = append(failures, j.unusedEmptyMethods(source, lines, methods, relPath)...)
	return failures
}

// unusedEmptyMethods flags methods with an empty body that nothing calls.
func (j *Java) unusedEmptyMethods(source string, lines []string, methods []javaMethod, relPath string) []types.Failure {
	var failures []types.Failure
	for _, m := range methods {
		if m.name == "main" {
			continue
		}
		empty := true
		for idx := m.declLine; idx < m.endLine-1; idx++ {
			body := strings.TrimSpace(stripLineComment(lines[idx]))
			if body != "" && body != "{" && body != "}" {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		if countWordOccurrences(source, m.name) <= 1 {
			failures = append(failures, types.Failure{
				File: relPath, Line: m.declLine, Category: types.CategoryLinting,
				Message: fmt.Sprintf("unused empty method '%s'", m.name),
			})
		}
	}
	return failures
}

func (j *Java) importErrors(lines []string, relPath string) []types.Failure {
	failures := scanImportOrder(lines, relPath, javaImportLine, func(stripped string) bool {
		return strings.HasPrefix(stripped, "package") || strings.HasPrefix(stripped, "import") || strings.HasPrefix(stripped, "*")
	})
	failures = append(failures, scanIncompleteImports(lines, relPath, javaIncompleteImp)...)
	return failures
}

func (j *Java) logicErrors(lines []string, methods []javaMethod, relPath string) []types.Failure {
	var failures []types.Failure
	failures = append(failures, j.loopBoundOverruns(lines, relPath)...)
	failures = append(failures, j.recursionDefects(lines, methods, relPath)...)
	failures = append(failures, j.boardGameDefects(lines, methods, relPath)...)
	return failures
}

// loopBoundOverruns flags 2D array accesses whose surrounding loop bound
// exceeds the declared dimension.
func (j *Java) loopBoundOverruns(lines []string, relPath string) []types.Failure {
	dims := map[string][2]int{}
	for _, line := range lines {
		if m := javaArray2DDecl.FindStringSubmatch(line); m != nil {
			d1, _ := strconv.Atoi(m[2])
			d2, _ := strconv.Atoi(m[3])
			dims[m[1]] = [2]int{d1, d2}
		}
	}
	if len(dims) == 0 {
		return nil
	}

	bounds := map[string]int{}
	var failures []types.Failure
	for i, line := range lines {
		if m := javaLoopBound.FindStringSubmatch(line); m != nil && m[1] == m[2] {
			if b, err := strconv.Atoi(m[3]); err == nil {
				bounds[m[1]] = b
			}
		}
		m := javaArray2DAccess.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		dim, ok := dims[m[1]]
		if !ok {
			continue
		}
		b1, ok1 := bounds[m[2]]
		b2, ok2 := bounds[m[3]]
		if (ok1 && b1 > dim[0]) || (ok2 && b2 > dim[1]) {
			failures = append(failures, types.Failure{
				File: relPath, Line: i + 1, Category: types.CategoryLogic,
				Message: "loop bound exceeds array dimension",
			})
		}
	}
	return failures
}

// recursionDefects flags binary-search style recursion that reuses the
// midpoint as a boundary and rotated-array searches whose boundary update
// moves away from the target.
func (j *Java) recursionDefects(lines []string, methods []javaMethod, relPath string) []types.Failure {
	var failures []types.Failure
	for _, m := range methods {
		midVar := ""
		for idx := m.declLine; idx < m.endLine && idx <= len(lines); idx++ {
			if mid := javaMidpoint.FindStringSubmatch(lines[idx-1]); mid != nil {
				midVar = mid[1]
				break
			}
		}
		if midVar == "" {
			continue
		}

		callPattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(m.name) + `\s*\(([^)]*)\)`)
		for idx := m.declLine + 1; idx <= m.endLine && idx <= len(lines); idx++ {
			line := lines[idx-1]
			call := callPattern.FindStringSubmatch(line)
			if call != nil {
				for _, arg := range strings.Split(call[1], ",") {
					if strings.TrimSpace(arg) == midVar {
						failures = append(failures, types.Failure{
							File: relPath, Line: idx, Category: types.CategoryLogic,
							Message: "infinite recursion: midpoint passed as boundary without adjustment",
						})
						break
					}
				}
			}
		}

		if !strings.Contains(strings.ToLower(m.name), "rotated") {
			continue
		}
		for idx := m.declLine + 1; idx < m.endLine && idx <= len(lines)-1; idx++ {
			cond := lines[idx-1]
			next := lines[idx]
			inLeftRange := strings.Contains(cond, "<= target") && strings.Contains(cond, "target <")
			inRightRange := strings.Contains(cond, "< target") && strings.Contains(cond, "target <=")
			lowRaised := regexp.MustCompile(`\b(low|left)\w*\s*=\s*` + regexp.QuoteMeta(midVar) + `\s*\+\s*1`).MatchString(next)
			highLowered := regexp.MustCompile(`\b(high|right)\w*\s*=\s*` + regexp.QuoteMeta(midVar) + `\s*-\s*1`).MatchString(next)
			if inLeftRange && lowRaised {
				failures = append(failures, types.Failure{
					File: relPath, Line: idx + 1, Category: types.CategoryLogic,
					Message: "inverted rotated-array search: boundary update moves away from target",
				})
			}
			if inRightRange && highLowered {
				failures = append(failures, types.Failure{
					File: relPath, Line: idx + 1, Category: types.CategoryLogic,
					Message: "inverted rotated-array search: boundary update moves away from target",
				})
			}
		}
	}
	return failures
}

// boardGameDefects covers the three tic-tac-toe mistakes: a fullness
// check that answers early, a win check that only scans rows, and a game
// loop with no tie exit.
func (j *Java) boardGameDefects(lines []string, methods []javaMethod, relPath string) []types.Failure {
	var failures []types.Failure
	hasBoardFull := false

	for _, m := range methods {
		lower := strings.ToLower(m.name)
		body := strings.Join(lines[min(m.declLine, len(lines)):min(m.endLine, len(lines))], "\n")

		if lower == "isboardfull" {
			hasBoardFull = true
			firstTrue := strings.Index(body, "return true")
			lastFalse := strings.LastIndex(body, "return false")
			if javaEmptySlotCmp.MatchString(body) && firstTrue >= 0 && lastFalse > firstTrue {
				failures = append(failures, types.Failure{
					File: relPath, Line: m.declLine, Category: types.CategoryLogic,
					Message: "isBoardFull returns true when empty slot found",
				})
			}
		}

		if lower == "checkwin" && strings.Contains(body, "board[") && !strings.Contains(body, "board[1][1]") {
			failures = append(failures, types.Failure{
				File: relPath, Line: m.declLine, Category: types.CategoryLogic,
				Message: "checkWin missing column and/or diagonal checks",
			})
		}
	}

	if !hasBoardFull {
		return failures
	}
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "while") {
			continue
		}
		end := findBlockEnd(lines, i)
		body := strings.Join(lines[i:end], "\n")
		if strings.Contains(strings.ToLower(body), "checkwin") && !strings.Contains(strings.ToLower(body), "isboardfull") {
			failures = append(failures, types.Failure{
				File: relPath, Line: i + 1, Category: types.CategoryLogic,
				Message: "missing tie-check in loop when board is full",
			})
		}
	}
	return failures
}

func (j *Java) typeErrors(lines []string, methods []javaMethod, relPath string) []types.Failure {
	var failures []types.Failure
	doubleMaps := map[string]bool{}

	for i, line := range lines {
		lineNo := i + 1

		if m := javaDoubleMapDecl.FindStringSubmatch(line); m != nil {
			doubleMaps[m[1]] = true
		}

		if javaStrConcat.MatchString(line) && !javaStrConversion.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "type mismatch: string concatenation requires conversion",
			})
		}
		if javaNumPlusStr.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "Type error: adding number to String",
			})
		}
		if javaNumericFromStr.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "assigned string literal to numeric type",
			})
		}
		if javaMixedBraces.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "mixed numeric and string values in collection",
			})
		}
		if javaCharFromStr.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "char assigned from string literal",
			})
		}
		if javaIntFromNext.MatchString(line) {
			failures = append(failures, types.Failure{
				File: relPath, Line: lineNo, Category: types.CategoryTypeError,
				Message: "int assigned from scanner.next()",
			})
		}

		for name := range doubleMaps {
			putStr := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\.put\s*\([^)]*,\s*"`)
			if putStr.MatchString(line) {
				failures = append(failures, types.Failure{
					File: relPath, Line: lineNo, Category: types.CategoryTypeError,
					Message: "Map<String, Double> receiving String value",
				})
			}
		}
	}

	for _, m := range methods {
		if m.returnType != "int" && m.returnType != "static int" {
			continue
		}
		for idx := m.declLine + 1; idx <= m.endLine && idx <= len(lines); idx++ {
			line := lines[idx-1]
			if javaReturnString.MatchString(line) {
				failures = append(failures, types.Failure{
					File: relPath, Line: idx, Category: types.CategoryTypeError,
					Message: "int method returning String literal",
				})
			}
			if javaReturnDecimal.MatchString(line) {
				failures = append(failures, types.Failure{
					File: relPath, Line: idx, Category: types.CategoryTypeError,
					Message: "int method returning decimal literal",
				})
			}
		}
	}
	return failures
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func stripLineComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}
