package patcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixwright/fixwright/internal/types"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readSource(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func fail(file string, line int, cat types.BugCategory, msg string) types.Failure {
	return types.Failure{File: file, Line: line, Category: cat, Message: msg}
}

func applyOne(t *testing.T, dir string, f types.Failure) bool {
	t.Helper()
	outcomes, err := Apply(dir, []types.Failure{f})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	return outcomes[0].Fixed
}

func TestPythonUnusedImportRemoved(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "app.py", "import os\nimport sys\n\nprint(sys.argv)\n")

	fixed := applyOne(t, dir, fail("app.py", 1, types.CategoryLinting, "unused import"))

	assert.True(t, fixed)
	assert.Equal(t, "import sys\n\nprint(sys.argv)\n", readSource(t, dir, "app.py"))
}

func TestPythonUnusedImportKeepsUsedNames(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "calc.py", "from math import sqrt, floor, ceil\nprint(sqrt(4))\nprint(ceil(1.2))\n")

	fixed := applyOne(t, dir, fail("calc.py", 1, types.CategoryLinting, "unused import"))

	assert.True(t, fixed)
	assert.Equal(t, "from math import sqrt, ceil", strings.Split(readSource(t, dir, "calc.py"), "\n")[0])
}

func TestPythonMissingColonAdded(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "fn.py", "def add(a, b)\n    return a + b\n")

	fixed := applyOne(t, dir, fail("fn.py", 1, types.CategorySyntax, "invalid syntax"))

	assert.True(t, fixed)
	assert.Equal(t, "def add(a, b):", strings.Split(readSource(t, dir, "fn.py"), "\n")[0])
}

func TestPythonXORBecomesPower(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "sq.py", "area = side ^ 2\n")

	fixed := applyOne(t, dir, fail("sq.py", 1, types.CategoryLogic,
		"bitwise XOR (^) detected, did you mean exponentiation (**)?"))

	assert.True(t, fixed)
	assert.Equal(t, "area = side ** 2\n", readSource(t, dir, "sq.py"))
}

func TestPythonConcatWrappedInStr(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "msg.py", "print(\"total: \" + count)\n")

	fixed := applyOne(t, dir, fail("msg.py", 1, types.CategoryTypeError,
		"type mismatch: cannot add incompatible types"))

	assert.True(t, fixed)
	assert.Equal(t, "print(\"total: \" + str(count))\n", readSource(t, dir, "msg.py"))
}

func TestPythonTabsConvertedToSpaces(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "tabs.py", "def f():\n\treturn 1\n")

	fixed := applyOne(t, dir, fail("tabs.py", 2, types.CategoryIndentation,
		"mixed tabs and spaces in indentation"))

	assert.True(t, fixed)
	assert.Equal(t, "    return 1", strings.Split(readSource(t, dir, "tabs.py"), "\n")[1])
}

// Fixes are applied bottom-up within a file, so a removal above must not
// shift the target of a fix below it.
func TestApplyDescendingLineOrder(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "mix.py", "import os\nx = 2\ny = x ^ 3\n")

	outcomes, err := Apply(dir, []types.Failure{
		fail("mix.py", 1, types.CategoryLinting, "unused import"),
		fail("mix.py", 3, types.CategoryLogic, "bitwise XOR (^) detected, did you mean exponentiation (**)?"),
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Fixed)
	assert.True(t, outcomes[1].Fixed)
	assert.Equal(t, "x = 2\ny = x ** 3\n", readSource(t, dir, "mix.py"))
}

func TestApplyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Demo.java", "int x = 5\n")
	f := fail("Demo.java", 1, types.CategorySyntax, "Missing semicolon")

	assert.True(t, applyOne(t, dir, f))
	first := readSource(t, dir, "Demo.java")

	assert.False(t, applyOne(t, dir, f))
	assert.Equal(t, first, readSource(t, dir, "Demo.java"))
}

func TestApplySkipsUnroutableFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.go", "package main\n")

	fixed := applyOne(t, dir, fail("main.go", 1, types.CategoryLinting, "unused import"))

	assert.False(t, fixed)
	assert.Equal(t, "package main\n", readSource(t, dir, "main.go"))
}

func TestApplySkipsMissingFile(t *testing.T) {
	dir := t.TempDir()

	fixed := applyOne(t, dir, fail("ghost.py", 1, types.CategoryLinting, "unused import"))

	assert.False(t, fixed)
}

func TestJavaMissingSemicolonAppended(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Calc.java", "int total = 0\n")

	fixed := applyOne(t, dir, fail("Calc.java", 1, types.CategorySyntax, "Missing semicolon"))

	assert.True(t, fixed)
	assert.Equal(t, "int total = 0;\n", readSource(t, dir, "Calc.java"))
}

// Java removals blank the line so the remaining failures keep their line
// numbers.
func TestJavaUnusedImportBlanked(t *testing.T) {
	dir := t.TempDir()
	src := "import java.util.List;\nimport java.util.Map;\n\npublic class Demo {\n}\n"
	writeSource(t, dir, "Demo.java", src)

	fixed := applyOne(t, dir, fail("Demo.java", 1, types.CategoryLinting, "Unused import: java.util.List"))

	assert.True(t, fixed)
	lines := strings.Split(readSource(t, dir, "Demo.java"), "\n")
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "import java.util.Map;", lines[1])
	assert.Len(t, lines, 6)
}

func TestJavaSnakeCaseVariableRenamed(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Count.java", "int total_count = 0;\n")

	fixed := applyOne(t, dir, fail("Count.java", 1, types.CategoryLinting,
		"Variable 'total_count' should use camelCase, not snake_case"))

	assert.True(t, fixed)
	assert.Equal(t, "int totalCount = 0;\n", readSource(t, dir, "Count.java"))
}

func TestJavaScannerCapitalized(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "In.java", "scanner input = new scanner(System.in);\n")

	fixed := applyOne(t, dir, fail("In.java", 1, types.CategoryLinting,
		"scanner type should be capitalized"))

	assert.True(t, fixed)
	assert.Equal(t, "Scanner input = new Scanner(System.in);\n", readSource(t, dir, "In.java"))
}

func TestJavaCharFromStringLiteral(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Grade.java", "char grade = \"A\";\n")

	fixed := applyOne(t, dir, fail("Grade.java", 1, types.CategoryTypeError,
		"char assigned from string literal"))

	assert.True(t, fixed)
	assert.Equal(t, "char grade = 'A';\n", readSource(t, dir, "Grade.java"))
}

func TestJavaScannerNextBecomesNextInt(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Age.java", "int age = input.next();\n")

	fixed := applyOne(t, dir, fail("Age.java", 1, types.CategoryTypeError,
		"int assigned from scanner.next()"))

	assert.True(t, fixed)
	assert.Equal(t, "int age = input.nextInt();\n", readSource(t, dir, "Age.java"))
}

func TestJavaXORBecomesMathPow(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Sq.java", "int square = base ^ 2;\n")

	fixed := applyOne(t, dir, fail("Sq.java", 1, types.CategoryLogic,
		"bitwise XOR (^) detected, did you mean exponentiation?"))

	assert.True(t, fixed)
	assert.Equal(t, "int square = Math.pow(base, 2);\n", readSource(t, dir, "Sq.java"))
}

func TestJavaConcatWrappedInStringValueOf(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Msg.java", "String msg = \"Count: \" + count;\n")

	fixed := applyOne(t, dir, fail("Msg.java", 1, types.CategoryTypeError,
		"Type error: adding number to String"))

	assert.True(t, fixed)
	assert.Equal(t, "String msg = \"Count: \" + String.valueOf(count);\n", readSource(t, dir, "Msg.java"))
}

func TestJavaThresholdSeededWithInfinity(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"double highest = 1000;",
		"for (int i = 0; i < scores.length; i++) {",
		"    if (scores[i] > highest) {",
		"        highest = scores[i];",
		"    }",
		"}",
	}, "\n") + "\n"
	writeSource(t, dir, "Best.java", src)

	fixed := applyOne(t, dir, fail("Best.java", 1, types.CategoryLogic,
		"threshold tracker initialized too high for '>' selection"))

	assert.True(t, fixed)
	assert.Equal(t, "double highest = Double.NEGATIVE_INFINITY;",
		strings.Split(readSource(t, dir, "Best.java"), "\n")[0])
}

func TestJavaTrackerSeededFromIterable(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"int max = 0;",
		"for (int i = 0; i < nums.length; i++) {",
		"    if (max < nums[i]) {",
		"        max = nums[i];",
		"    }",
		"}",
	}, "\n") + "\n"
	writeSource(t, dir, "Max.java", src)

	fixed := applyOne(t, dir, fail("Max.java", 1, types.CategoryLogic,
		"min/max tracker initialized to constant; use first iterable element instead"))

	assert.True(t, fixed)
	assert.Equal(t, "int max = nums[0];", strings.Split(readSource(t, dir, "Max.java"), "\n")[0])
}

func TestJavaBoardFullReturnsFlipped(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"public boolean isBoardFull() {",
		"    for (int i = 0; i < 3; i++) {",
		"        for (int j = 0; j < 3; j++) {",
		"            if (board[i][j] == '-') {",
		"                return true;",
		"            }",
		"        }",
		"    }",
		"    return false;",
		"}",
	}, "\n") + "\n"
	writeSource(t, dir, "Board.java", src)

	fixed := applyOne(t, dir, fail("Board.java", 1, types.CategoryLogic,
		"isBoardFull returns true when empty slot found"))

	assert.True(t, fixed)
	lines := strings.Split(readSource(t, dir, "Board.java"), "\n")
	assert.Contains(t, lines[4], "return false;")
	assert.Contains(t, lines[8], "return true;")
}

func TestJavaWinChecksInserted(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"public boolean checkWin() {",
		"    for (int i = 0; i < 3; i++) {",
		"        if (board[i][0] == player && board[i][1] == player && board[i][2] == player) {",
		"            return true;",
		"        }",
		"    }",
		"    return false;",
		"}",
	}, "\n") + "\n"
	writeSource(t, dir, "Win.java", src)

	fixed := applyOne(t, dir, fail("Win.java", 1, types.CategoryLogic,
		"checkWin missing column and/or diagonal checks"))

	assert.True(t, fixed)
	patched := readSource(t, dir, "Win.java")
	assert.Contains(t, patched, "board[0][i] == player && board[1][i] == player && board[2][i] == player")
	assert.Contains(t, patched, "board[0][0] == player && board[1][1] == player && board[2][2] == player")
	assert.Contains(t, patched, "board[0][2] == player && board[1][1] == player && board[2][0] == player")
}

func TestJavaTieCheckInserted(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"TicTacToe game = new TicTacToe();",
		"while (true) {",
		"    game.printBoard();",
		"    game.makeMove();",
		"    if (game.checkWin(player)) {",
		"        break;",
		"    }",
		"    player = (player == 'X' ? 'O' : 'X');",
		"}",
	}, "\n") + "\n"
	writeSource(t, dir, "Game.java", src)

	fixed := applyOne(t, dir, fail("Game.java", 2, types.CategoryLogic,
		"missing tie-check in loop when board is full"))

	assert.True(t, fixed)
	patched := readSource(t, dir, "Game.java")
	assert.Contains(t, patched, "if (game.isBoardFull()) {")
	assert.Contains(t, patched, "Game is a tie!")
	toggle := strings.Index(patched, "player = (player")
	tie := strings.Index(patched, "isBoardFull")
	assert.Less(t, tie, toggle)
}

func TestJavaLoopBoundCorrected(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"int[][] grid = new int[2][3];",
		"for (int i = 0; i < 3; i++) {",
		"    for (int j = 0; j < 3; j++) {",
		"        grid[i][j] = i + j;",
		"    }",
		"}",
	}, "\n") + "\n"
	writeSource(t, dir, "Grid.java", src)

	fixed := applyOne(t, dir, fail("Grid.java", 4, types.CategoryLogic,
		"loop bound exceeds array dimension"))

	assert.True(t, fixed)
	lines := strings.Split(readSource(t, dir, "Grid.java"), "\n")
	assert.Contains(t, lines[1], "i < 2")
	assert.Contains(t, lines[2], "j < 3")
}

func TestJavaIntMethodReturnSentinel(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "Find.java", "        return \"not found\";\n")

	fixed := applyOne(t, dir, fail("Find.java", 1, types.CategoryTypeError,
		"int method returning String literal"))

	assert.True(t, fixed)
	assert.Equal(t, "        return -1;\n", readSource(t, dir, "Find.java"))
}

func TestJSConcatOperatorInserted(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "log.js", "console.log(\"Total: \" total);\n")

	fixed := applyOne(t, dir, fail("log.js", 1, types.CategorySyntax,
		"Missing concatenation operator in console.log"))

	assert.True(t, fixed)
	assert.Equal(t, "console.log(\"Total: \" + total);\n", readSource(t, dir, "log.js"))
}

func TestJSPushTargetBecomesArray(t *testing.T) {
	dir := t.TempDir()
	src := "let results = \"\";\nfor (const item of items) {\n  results.push(item);\n}\n"
	writeSource(t, dir, "collect.js", src)

	fixed := applyOne(t, dir, fail("collect.js", 3, types.CategoryTypeError,
		"attempting to push to non-array"))

	assert.True(t, fixed)
	assert.Equal(t, "let results = [];", strings.Split(readSource(t, dir, "collect.js"), "\n")[0])
}

func TestJSFunctionRenamedEverywhere(t *testing.T) {
	dir := t.TempDir()
	src := "function calculate_total(items) {\n  return items.length;\n}\ncalculate_total([]);\n"
	writeSource(t, dir, "sum.js", src)

	fixed := applyOne(t, dir, fail("sum.js", 1, types.CategoryLinting,
		"function name should be camelCase: 'calculate_total'"))

	assert.True(t, fixed)
	patched := readSource(t, dir, "sum.js")
	assert.Contains(t, patched, "function calculateTotal(items)")
	assert.Contains(t, patched, "calculateTotal([]);")
	assert.NotContains(t, patched, "calculate_total")
}

func TestJSXORBecomesExponent(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "area.js", "const area = side ^ 2;\n")

	fixed := applyOne(t, dir, fail("area.js", 1, types.CategoryLogic,
		"bitwise XOR (^) detected, did you mean exponentiation?"))

	assert.True(t, fixed)
	assert.Equal(t, "const area = side ** 2;\n", readSource(t, dir, "area.js"))
}

func TestJSThresholdSeededWithInfinity(t *testing.T) {
	dir := t.TempDir()
	src := strings.Join([]string{
		"let lowest = -1;",
		"for (let i = 0; i < prices.length; i++) {",
		"  if (prices[i] < lowest) {",
		"    lowest = prices[i];",
		"  }",
		"}",
	}, "\n") + "\n"
	writeSource(t, dir, "low.js", src)

	fixed := applyOne(t, dir, fail("low.js", 1, types.CategoryLogic,
		"threshold tracker initialized too low for '<' selection"))

	assert.True(t, fixed)
	assert.Equal(t, "let lowest = Number.POSITIVE_INFINITY;",
		strings.Split(readSource(t, dir, "low.js"), "\n")[0])
}

func TestTSNumericAnnotationUnquoted(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "age.ts", "const age: number = \"42\";\n")

	fixed := applyOne(t, dir, fail("age.ts", 1, types.CategoryTypeError,
		"assigned string literal to numeric type"))

	assert.True(t, fixed)
	assert.Equal(t, "const age: number = 42;\n", readSource(t, dir, "age.ts"))
}

func TestTSBooleanAnnotationUnquoted(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "flag.ts", "let active: boolean = \"true\";\n")

	fixed := applyOne(t, dir, fail("flag.ts", 1, types.CategoryTypeError,
		"assigned string literal to boolean type"))

	assert.True(t, fixed)
	assert.Equal(t, "let active: boolean = true;\n", readSource(t, dir, "flag.ts"))
}

func TestTSStringAnnotationQuoted(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "label.ts", "let label: string = 42;\n")

	fixed := applyOne(t, dir, fail("label.ts", 1, types.CategoryTypeError,
		"assigned numeric literal to string type"))

	assert.True(t, fixed)
	assert.Equal(t, "let label: string = \"42\";\n", readSource(t, dir, "label.ts"))
}

func TestOutcomeAccountingMixedResults(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "mix.java", "int a = 1\nint b = 2;\n")

	outcomes, err := Apply(dir, []types.Failure{
		fail("mix.java", 1, types.CategorySyntax, "Missing semicolon"),
		fail("mix.java", 2, types.CategorySyntax, "Missing semicolon"),
		fail("mix.java", 99, types.CategorySyntax, "Missing semicolon"),
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Fixed)
	assert.False(t, outcomes[1].Fixed, "line already terminated")
	assert.False(t, outcomes[2].Fixed, "line out of range")
}

func TestApplyContinuesPastUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "good.py", "import os\nimport sys\n\nprint(sys.argv)\n")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "broken.py")))

	outcomes, err := Apply(dir, []types.Failure{
		fail("broken.py", 1, types.CategoryLinting, "unused import"),
		fail("good.py", 1, types.CategoryLinting, "unused import"),
	})
	require.NoError(t, err)

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Fixed)
	assert.True(t, outcomes[1].Fixed)
	assert.Equal(t, "import sys\n\nprint(sys.argv)\n", readSource(t, dir, "good.py"))
}

func TestApplyReportsNotFixedOnUnwritableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("write permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeSource(t, dir, "locked.py", "import os\n\nprint(\"hi\")\n")
	require.NoError(t, os.Chmod(filepath.Join(dir, "locked.py"), 0o444))

	fixed := applyOne(t, dir, fail("locked.py", 1, types.CategoryLinting, "unused import"))

	assert.False(t, fixed)
	assert.Contains(t, readSource(t, dir, "locked.py"), "import os")
}
