package patcher

import (
	"regexp"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// TypeScript shares the JavaScript rules and prepends fixes for type
// annotation mismatches, which only exist there.

var (
	tsBoolLiteral = regexp.MustCompile(`=\s*["'](true|false)["']`)
	tsStringAnnot = regexp.MustCompile(`(:\s*string\s*=\s*)(-?\d+(?:\.\d+)?)`)
	tsQuotedValue = regexp.MustCompile(`=\s*(["'][^"']*["'])`)
)

var typescriptRules = func() ruleTable {
	table := ruleTable{}
	for cat, rules := range javascriptRules {
		table[cat] = rules
	}
	annotations := []rule{
		{triggers: []string{"assigned string literal to numeric type"}, rewrite: unquoteNumericStrings},
		{triggers: []string{"assigned numeric literal to string type"}, rewrite: tsQuoteStringValue},
		{triggers: []string{"assigned string literal to boolean type"}, rewrite: tsUnquoteBoolean},
	}
	table[types.CategoryTypeError] = append(annotations, javascriptRules[types.CategoryTypeError]...)
	return table
}()

func tsQuoteStringValue(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	m := tsStringAnnot.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return buf.SetLine(idx, strings.Replace(line, m[0], m[1]+`"`+m[2]+`"`, 1))
}

func tsUnquoteBoolean(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if m := tsBoolLiteral.FindStringSubmatch(line); m != nil {
		return buf.SetLine(idx, tsBoolLiteral.ReplaceAllString(line, "= "+m[1]))
	}
	// Non-boolean text falls back to a truthiness check on length.
	if m := tsQuotedValue.FindStringSubmatch(line); m != nil {
		return buf.SetLine(idx, strings.Replace(line, m[1], m[1]+".length > 0", 1))
	}
	return false
}
