package patcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fixwright/fixwright/internal/types"
)

// Python rewrite rules. Removal-style fixes drop the line outright; the
// descending application order keeps remaining targets stable.

var (
	pyUnusedVarMsg    = regexp.MustCompile(`unused variable ['"]?([a-zA-Z_]\w*)['"]?`)
	pyKeywordStmt     = regexp.MustCompile(`\b(if|elif|else|for|while|def|class|try|except|finally|with)\b`)
	pyCannotImport    = regexp.MustCompile(`cannot import name ['"]([A-Za-z_][A-Za-z0-9_]*)['"]`)
	pyNoAttribute     = regexp.MustCompile(`has no attribute ['"]([A-Za-z_][A-Za-z0-9_]*)['"]`)
	pyQuotedIntArg    = regexp.MustCompile(`([(,]\s*)["'](\d+)["'](\s*[,)])`)
	pyCallArgs        = regexp.MustCompile(`^(\s*\w+\()(.*)(\)\s*)$`)
	pyPlusVar         = regexp.MustCompile(`\+\s*([a-zA-Z_]\w*)(\s*[)\s]|$)`)
	pyVarPlusString   = regexp.MustCompile(`([a-zA-Z_]\w*)\s*\+\s*["']`)
	pyNumPlusVar      = regexp.MustCompile(`(\d+)\s*\+\s*([a-zA-Z_]\w*)`)
	pyOperatorStrLit  = regexp.MustCompile(`([+\-*/%])\s*["']([a-zA-Z_]\w*)["']`)
	pyAssignPrefix    = func(name string) *regexp.Regexp { return regexp.MustCompile(`^\s*` + regexp.QuoteMeta(name) + `\s*=\s*`) }
	pyWordOccurrences = func(name string) *regexp.Regexp { return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`) }
)

var pythonRules = ruleTable{
	types.CategoryLinting: {
		{triggers: []string{"unused import", "imported but unused", "f401"}, rewrite: pyRemoveUnusedImport},
		{triggers: []string{"unused variable"}, rewrite: pyRemoveUnusedVariable},
	},
	types.CategorySyntax: {
		{triggers: []string{"expected ':'"}, rewrite: pyColonOnPreviousLine},
		{rewrite: pyAddMissingColon},
		{rewrite: pyCloseParen},
		{rewrite: pyCloseBracket},
		{triggers: []string{"quote", "string"}, rewrite: pyBalanceQuotes},
	},
	types.CategoryIndentation: {
		{rewrite: pyTabsToSpaces},
		{triggers: []string{"mixed tabs and spaces"}, rewrite: pyNormalizeMixedIndent},
		{rewrite: pyIndentAfterColon},
	},
	types.CategoryImport: {
		{triggers: []string{"no module named", "modulenotfounderror"}, rewrite: pyRemoveImportLine},
		{triggers: []string{"import statement should appear at the top"}, rewrite: pyRemoveImportLine},
		{triggers: []string{"incomplete import statement"}, rewrite: func(buf *fileBuffer, idx int, _ string) bool { return buf.RemoveLine(idx) }},
		{triggers: []string{"empty import list"}, rewrite: pyRemoveImportLine},
		{triggers: []string{"cannot import name"}, rewrite: pyFilterBadImport(pyCannotImport, true)},
		{triggers: []string{"has no attribute"}, rewrite: pyFilterBadImport(pyNoAttribute, false)},
	},
	types.CategoryTypeError: {
		{triggers: []string{"argument type mismatch"}, rewrite: pyUnquoteIntArgs},
		{triggers: []string{"required positional argument"}, rewrite: pyAppendNoneArg},
		{triggers: []string{"unsupported operand type", "can only concatenate", "type mismatch", "cannot concatenate", "+"}, rewrite: pyWrapConcatInStr},
	},
	types.CategoryLogic: {
		{triggers: []string{"comparison for max uses '<'"}, rewrite: replaceFirst("<", ">")},
		{triggers: []string{"comparison for min uses '>'"}, rewrite: replaceFirst(">", "<")},
		{triggers: []string{"xor", "exponentiation", "did you mean"}, rewrite: pyXORToPower},
		{triggers: []string{"string literal", "did you mean a variable"}, rewrite: unquoteOperandLiteral},
		{triggers: []string{"assert", "condition"}, rewrite: pyFlipAssertComparison},
	},
}

func isSafeImportLine(line string) bool {
	stripped := strings.TrimSpace(line)
	if !strings.HasPrefix(stripped, "import ") && !strings.HasPrefix(stripped, "from ") {
		return false
	}
	return !strings.HasSuffix(stripped, "(") && !strings.HasSuffix(stripped, `\`)
}

func splitInlineComment(line string) (code, comment string) {
	if idx := strings.Index(line, "#"); idx >= 0 {
		return strings.TrimRight(line[:idx], " \t"), strings.TrimLeft(line[idx:], " \t")
	}
	return strings.TrimRight(line, " \t"), ""
}

// pyRemoveUnusedImport drops a single-name import, or rewrites a
// multi-name from-import keeping the names still referenced elsewhere.
func pyRemoveUnusedImport(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if !isSafeImportLine(line) {
		return false
	}

	stripped := strings.TrimSpace(line)
	if strings.Contains(line, ",") && strings.HasPrefix(stripped, "from ") && strings.Contains(line, " import ") {
		prefix := strings.SplitN(line, " import ", 2)[0]
		importPart := strings.SplitN(line, " import ", 2)[1]

		rest := strings.Join(append(buf.Lines()[:idx], buf.Lines()[idx+1:]...), "\n")
		var used []string
		for _, name := range strings.Split(importPart, ",") {
			name = strings.TrimSpace(name)
			if name != "" && pyWordOccurrences(name).MatchString(rest) {
				used = append(used, name)
			}
		}
		switch {
		case len(used) == 0:
			return buf.RemoveLine(idx)
		case len(used) < len(strings.Split(importPart, ",")):
			return buf.SetLine(idx, fmt.Sprintf("%s import %s", prefix, strings.Join(used, ", ")))
		}
		return false
	}
	return buf.RemoveLine(idx)
}

func pyRemoveUnusedVariable(buf *fileBuffer, idx int, msg string) bool {
	m := pyUnusedVarMsg.FindStringSubmatch(msg)
	if m == nil {
		return false
	}
	if pyAssignPrefix(m[1]).MatchString(buf.Line(idx)) {
		return buf.RemoveLine(idx)
	}
	return false
}

// pyColonOnPreviousLine handles the parser reporting the line after a
// header that lost its colon.
func pyColonOnPreviousLine(buf *fileBuffer, idx int, _ string) bool {
	if idx == 0 {
		return false
	}
	code, comment := splitInlineComment(buf.Line(idx - 1))
	if !pyKeywordStmt.MatchString(code) || strings.HasSuffix(code, ":") {
		return false
	}
	if comment != "" {
		return buf.SetLine(idx-1, code+": "+comment)
	}
	return buf.SetLine(idx-1, code+":")
}

func pyAddMissingColon(buf *fileBuffer, idx int, _ string) bool {
	code, comment := splitInlineComment(buf.Line(idx))
	if code == "" || strings.HasSuffix(code, ":") || !pyKeywordStmt.MatchString(code) {
		return false
	}
	if comment != "" {
		return buf.SetLine(idx, code+": "+comment)
	}
	return buf.SetLine(idx, code+":")
}

func pyCloseParen(buf *fileBuffer, idx int, _ string) bool {
	code, _ := splitInlineComment(buf.Line(idx))
	open := strings.Index(code, "(")
	if open < 0 || strings.Contains(code[open+1:], ")") {
		return false
	}
	return buf.SetLine(idx, buf.Line(idx)+")")
}

func pyCloseBracket(buf *fileBuffer, idx int, _ string) bool {
	code, _ := splitInlineComment(buf.Line(idx))
	if open := strings.Index(code, "["); open >= 0 && !strings.Contains(code[open+1:], "]") {
		return buf.SetLine(idx, buf.Line(idx)+"]")
	}
	if open := strings.Index(code, "{"); open >= 0 && !strings.Contains(code[open+1:], "}") {
		return buf.SetLine(idx, buf.Line(idx)+"}")
	}
	return false
}

func pyBalanceQuotes(buf *fileBuffer, idx int, _ string) bool {
	code, _ := splitInlineComment(buf.Line(idx))
	if strings.Count(code, "'")%2 != 0 {
		return buf.SetLine(idx, buf.Line(idx)+"'")
	}
	if strings.Count(code, `"`)%2 != 0 {
		return buf.SetLine(idx, buf.Line(idx)+`"`)
	}
	return false
}

func pyTabsToSpaces(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if !strings.Contains(line, "\t") {
		return false
	}
	return buf.SetLine(idx, strings.ReplaceAll(line, "\t", "    "))
}

func pyNormalizeMixedIndent(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	stripped := strings.TrimLeft(line, " \t")
	level := (indentWidth(line) + 2) / 4
	return buf.SetLine(idx, strings.Repeat("    ", level)+stripped)
}

func pyIndentAfterColon(buf *fileBuffer, idx int, msg string) bool {
	if idx == 0 {
		return false
	}
	prevCode, _ := splitInlineComment(buf.Line(idx - 1))
	if !strings.HasSuffix(strings.TrimSpace(prevCode), ":") {
		return false
	}
	line := buf.Line(idx)
	expected := indentWidth(buf.Line(idx-1)) + 4
	current := indentWidth(line)
	stripped := strings.TrimLeft(line, " \t")

	switch {
	case line == "" || (line[0] != ' ' && line[0] != '\t'):
		return buf.SetLine(idx, strings.Repeat(" ", expected)+stripped)
	case current > 0 && current < expected && current%4 != 0:
		return buf.SetLine(idx, strings.Repeat(" ", expected)+stripped)
	case strings.Contains(strings.ToLower(msg), "expected indentation"):
		return buf.SetLine(idx, strings.Repeat(" ", expected)+stripped)
	}
	return false
}

func pyRemoveImportLine(buf *fileBuffer, idx int, _ string) bool {
	if !isSafeImportLine(buf.Line(idx)) {
		return false
	}
	return buf.RemoveLine(idx)
}

// pyFilterBadImport drops the named binding from a from-import list. With
// prefixMatch the comparison tolerates "Name as alias" forms.
func pyFilterBadImport(pattern *regexp.Regexp, prefixMatch bool) rewriteFunc {
	return func(buf *fileBuffer, idx int, msg string) bool {
		m := pattern.FindStringSubmatch(msg)
		if m == nil {
			return false
		}
		bad := m[1]
		line := buf.Line(idx)
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "from ") || !strings.Contains(stripped, " import ") {
			return false
		}

		before := strings.SplitN(stripped, " import ", 2)[0]
		var kept []string
		for _, name := range strings.Split(strings.SplitN(stripped, " import ", 2)[1], ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			drop := name == bad
			if prefixMatch {
				drop = strings.HasPrefix(name, bad)
			}
			if !drop {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			return buf.RemoveLine(idx)
		}
		updated := fmt.Sprintf("%s import %s", before, strings.Join(kept, ", "))
		if updated == stripped {
			return false
		}
		return buf.SetLine(idx, leadingWhitespace(line)+updated)
	}
}

func pyUnquoteIntArgs(buf *fileBuffer, idx int, msg string) bool {
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "expected int") || !strings.Contains(lower, "got str") {
		return false
	}
	line := buf.Line(idx)
	return buf.SetLine(idx, pyQuotedIntArg.ReplaceAllString(line, "$1$2$3"))
}

func pyAppendNoneArg(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	m := pyCallArgs.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	args := strings.TrimSpace(m[2])
	if args != "" {
		return buf.SetLine(idx, m[1]+args+", None"+m[3])
	}
	return buf.SetLine(idx, m[1]+"None"+m[3])
}

// pyWrapConcatInStr converts the most likely offending operand of a +
// expression to str().
func pyWrapConcatInStr(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if !strings.Contains(line, "+") {
		return false
	}
	code, comment := splitInlineComment(line)

	finish := func(newCode string) bool {
		if comment != "" {
			return buf.SetLine(idx, newCode+" "+comment)
		}
		return buf.SetLine(idx, newCode)
	}

	// ... + var  →  ... + str(var)
	if m := pyPlusVar.FindStringSubmatchIndex(code); m != nil {
		name := code[m[2]:m[3]]
		if name != "str" {
			return finish(code[:m[2]] + "str(" + name + ")" + code[m[3]:])
		}
	}
	// var + "..."  →  str(var) + "..."
	if m := pyVarPlusString.FindStringSubmatchIndex(code); m != nil {
		name := code[m[2]:m[3]]
		if name != "str" {
			return finish(code[:m[2]] + "str(" + name + ")" + code[m[3]:])
		}
	}
	// 1 + var  →  str(1) + str(var)
	if m := pyNumPlusVar.FindStringSubmatch(code); m != nil {
		loc := pyNumPlusVar.FindStringIndex(code)
		return finish(code[:loc[0]] + "str(" + m[1] + ") + str(" + m[2] + ")" + code[loc[1]:])
	}
	return false
}

func pyXORToPower(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if !strings.Contains(line, "^") {
		return false
	}
	return buf.SetLine(idx, strings.ReplaceAll(line, "^", "**"))
}

// unquoteOperandLiteral turns + "name" into + name. Shared with the
// brace languages, which report the same defect.
func unquoteOperandLiteral(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	m := pyOperatorStrLit.FindStringSubmatchIndex(line)
	if m == nil {
		return false
	}
	// Drop the quotes around the identifier.
	name := line[m[4]:m[5]]
	return buf.SetLine(idx, line[:m[4]-1]+name+line[m[5]+1:])
}

func pyFlipAssertComparison(buf *fileBuffer, idx int, _ string) bool {
	line := buf.Line(idx)
	if !strings.Contains(line, "assert") {
		return false
	}
	if strings.Contains(line, "!=") {
		return buf.SetLine(idx, strings.Replace(line, "!=", "==", 1))
	}
	if strings.Contains(line, "==") {
		return buf.SetLine(idx, strings.Replace(line, "==", "!=", 1))
	}
	return false
}

// replaceFirst builds a rewrite swapping the first occurrence of old for
// new on the failing line.
func replaceFirst(old, repl string) rewriteFunc {
	return func(buf *fileBuffer, idx int, _ string) bool {
		line := buf.Line(idx)
		if !strings.Contains(line, old) {
			return false
		}
		return buf.SetLine(idx, strings.Replace(line, old, repl, 1))
	}
}
