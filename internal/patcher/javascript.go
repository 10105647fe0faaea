package patcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// JavaScript rewrite rules. Same blank-don't-delete convention as Java.

var (
	jsForOf        = regexp.MustCompile(`for\s*\(\s*(?:const|let|var)\s+\w+\s+of\s+(\w+)\s*\)`)
	jsIndexFor     = regexp.MustCompile(`for\s*\(.*;\s*\w+\s*<\s*(\w+)\.length\s*;`)
	jsXORExpr      = regexp.MustCompile(`(\w+)\s*\^\s*(\w+)`)
	jsConstAssign  = regexp.MustCompile(`^(\s*)(?:(const|let|var)\s+)?([a-zA-Z_$][\w$]*)\s*=\s*-?\d+(?:\.\d+)?\s*;?\s*$`)
	jsDivConstant  = regexp.MustCompile(`/\s*\d+`)
	jsLogMissingOp = regexp.MustCompile(`("[^"]*"|'[^']*')\s+([a-zA-Z_$])`)
	jsConcatTail   = regexp.MustCompile(`(["'][^"']*["'])\s*\+\s*([a-zA-Z_$][\w$.]*)`)
	jsPushTarget   = regexp.MustCompile(`\b([a-zA-Z_$][\w$]*)\.push\s*\(`)
	jsStringInit   = func(name string) *regexp.Regexp {
		return regexp.MustCompile(`\b(const|let|var)\s+` + regexp.QuoteMeta(name) + `\s*=\s*(["'][^"']*["'])`)
	}
)

var javascriptRules = ruleTable{
	types.CategorySyntax: {
		{triggers: []string{"semicolon"}, rewrite: appendIfMissing(";", ";", "{", "}", ",")},
		{triggers: []string{"closing parenthesis before"}, rewrite: jsParenBeforeBrace},
		{triggers: []string{"concatenation operator in console.log"}, rewrite: jsInsertConcatOperator},
		{triggers: []string{"closing parenthesis"}, rewrite: appendIfMissing(")", ")")},
		{triggers: []string{"closing bracket"}, rewrite: appendIfMissing("]", "]")},
	},
	types.CategoryLinting: {
		{triggers: []string{"unused import"}, rewrite: blankLine},
		{triggers: []string{"snake_case"}, rewrite: jvRenameToCamelCase(jvVarMsg)},
		{triggers: []string{"parameter name should be camelcase"}, rewrite: jvRenameToCamelCase(jvQuotedName)},
		{triggers: []string{"function name should be camelcase"}, rewrite: jsRenameFunction},
		{triggers: []string{"pascalcase"}, rewrite: jvRenameClass},
		{triggers: []string{"unused variable"}, rewrite: blankLine},
	},
	types.CategoryImport: {
		{triggers: []string{"after code"}, rewrite: blankLine},
		{triggers: []string{"incomplete import"}, rewrite: blankLine},
	},
	types.CategoryLogic: {
		{triggers: []string{"removal operation"}, rewrite: replaceAllOnLine("+=", "-=")},
		{triggers: []string{"addition operation"}, rewrite: replaceAllOnLine("-=", "+=")},
		{triggers: []string{"divisor"}, rewrite: jsFixDivisor},
		{triggers: []string{"xor", "exponentiation"}, rewrite: jsXORToPower},
		{triggers: []string{"string literal"}, rewrite: unquoteOperandLiteral},
		{triggers: []string{"comparison for max uses '<'"}, rewrite: replaceFirst("<", ">")},
		{triggers: []string{"comparison for min uses '>'"}, rewrite: replaceFirst(">", "<")},
		{triggers: []string{"return inside accumulation loop"}, rewrite: dedentReturnToLoop},
		{triggers: []string{"min/max tracker initialized to constant"}, rewrite: jsSeedTrackerFromIterable},
		{triggers: []string{"threshold tracker initialized too high"}, rewrite: jsSeedThreshold("Number.NEGATIVE_INFINITY")},
		{triggers: []string{"threshold tracker initialized too low"}, rewrite: jsSeedThreshold("Number.POSITIVE_INFINITY")},
	},
	types.CategoryTypeError: {
		{triggers: []string{"push to non-array"}, rewrite: jsFixPushTarget},
		{triggers: []string{"mixed numeric and string values in collection"}, rewrite: unquoteNumericStrings},
		{triggers: []string{"string concatenation", "type mismatch"}, rewrite: jsWrapInString},
	},
	types.CategoryIndentation: {
		{rewrite: jsReindentByBraceDepth},
	},
}

func jsParenBeforeBrace(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	brace := strings.LastIndex(line, "{")
	if brace < 0 {
		return false
	}
	head := strings.TrimRight(line[:brace], " \t")
	if strings.Count(head, "(") <= strings.Count(head, ")") {
		return false
	}
	return buf.SetLine(idx, head+") {"+line[brace+1:])
}

func jsInsertConcatOperator(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if !strings.Contains(line, "console.log") {
		return false
	}
	return buf.SetLine(idx, jsLogMissingOp.ReplaceAllString(line, "$1 + $2"))
}

func jsRenameFunction(buf *fileBuffer, idx int, msg string) bool {
	m := jvQuotedName.FindStringSubmatch(msg)
	if m == nil || !strings.Contains(m[1], "_") {
		return false
	}
	old := m[1]
	camel := toCamelCase(old)
	if camel == old {
		return false
	}

	refs := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)
	changed := false
	for i, line := range buf.Lines() {
		if i != idx && !refs.MatchString(line) {
			continue
		}
		if buf.SetLine(i, refs.ReplaceAllString(line, camel)) {
			changed = true
		}
	}
	return changed
}

func jsInferIterable(lines []string, idx int) string {
	for i := idx - 1; i >= 0; i-- {
		if m := jsForOf.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
		if m := jsIndexFor.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	for i := idx + 1; i < len(lines); i++ {
		if m := jsForOf.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
		if m := jsIndexFor.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	return ""
}

func jsFixDivisor(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if !strings.Contains(line, "/") {
		return false
	}
	iterable := jsInferIterable(buf.Lines(), idx)
	if iterable == "" {
		return false
	}
	return buf.SetLine(idx, jsDivConstant.ReplaceAllString(line, "/ "+iterable+".length"))
}

func jsXORToPower(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	m := jsXORExpr.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return buf.SetLine(idx, jsXORExpr.ReplaceAllString(line, m[1]+" ** "+m[2]))
}

func jsSeedTrackerFromIterable(buf *fileBuffer, idx int, _ string) bool {
	m := jsConstAssign.FindStringSubmatch(buf.Line(idx))
	if m == nil {
		return false
	}
	iterable := jsInferIterable(buf.Lines(), idx)
	if iterable == "" {
		return false
	}
	decl := ""
	if m[2] != "" {
		decl = m[2] + " "
	}
	return buf.SetLine(idx, fmt.Sprintf("%s%s%s = %s[0];", m[1], decl, m[3], iterable))
}

func jsSeedThreshold(sentinel string) rewriteFunc {
	return func(buf *fileBuffer, idx int, _ string) bool {
		m := jsConstAssign.FindStringSubmatch(buf.Line(idx))
		if m == nil {
			return false
		}
		decl := ""
		if m[2] != "" {
			decl = m[2] + " "
		}
		return buf.SetLine(idx, fmt.Sprintf("%s%s%s = %s;", m[1], decl, m[3], sentinel))
	}
}

// jsFixPushTarget rewrites the string initializer of the variable being
// pushed to into an array literal.
func jsFixPushTarget(buf *fileBuffer, idx int, _ string) bool {
	m := jsPushTarget.FindStringSubmatch(buf.Line(idx))
	if m == nil {
		return false
	}
	init := jsStringInit(m[1])
	for i := idx - 1; i >= 0; i-- {
		line := buf.Line(i)
		if !init.MatchString(line) {
			continue
		}
		return buf.SetLine(i, init.ReplaceAllString(line, "$1 "+m[1]+" = []"))
	}
	return false
}

func jsWrapInString(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	m := jsConcatTail.FindStringSubmatch(line)
	if m == nil || strings.Contains(line, "String(") || strings.Contains(line, ".toString()") {
		return false
	}
	return buf.SetLine(idx, strings.Replace(line, "+ "+m[2], "+ String("+m[2]+")", 1))
}

func jsReindentByBraceDepth(buf *fileBuffer, idx int, _ string) bool {
	depth := 0
	for i := 0; i < idx; i++ {
		depth += strings.Count(buf.Line(i), "{")
		depth -= strings.Count(buf.Line(i), "}")
		if depth < 0 {
			depth = 0
		}
	}
	stripped := strings.TrimLeft(buf.Line(idx), " \t")
	if strings.HasPrefix(stripped, "}") {
		depth = max(0, depth-1)
	}
	return buf.SetLine(idx, strings.Repeat(" ", depth*2)+stripped)
}
