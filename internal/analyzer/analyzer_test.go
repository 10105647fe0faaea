package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixwright/fixwright/internal/types"
)

func findFailure(failures []types.Failure, cat types.BugCategory, msgSub string) *types.Failure {
	for i := range failures {
		if failures[i].Category == cat && strings.Contains(failures[i].Message, msgSub) {
			return &failures[i]
		}
	}
	return nil
}

func assertFailure(t *testing.T, failures []types.Failure, cat types.BugCategory, line int, msgSub string) {
	t.Helper()
	f := findFailure(failures, cat, msgSub)
	require.NotNilf(t, f, "expected %s failure containing %q, got %v", cat, msgSub, failures)
	assert.Equal(t, line, f.Line)
}

func TestForFileRouting(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"pkg/util.py", "python"},
		{"src/Main.java", "java"},
		{"lib/index.js", "javascript"},
		{"lib/app.jsx", "javascript"},
		{"src/api.ts", "typescript"},
		{"src/view.tsx", "typescript"},
	}
	for _, tt := range tests {
		a := ForFile(tt.path)
		require.NotNilf(t, a, "no analyzer for %s", tt.path)
		assert.Equal(t, tt.want, a.Name(), tt.path)
	}
	assert.Nil(t, ForFile("README.md"))
	assert.Nil(t, ForFile("binary.exe"))
}

func TestPythonUnusedImport(t *testing.T) {
	src := "import os\nimport json\n\nprint(json.dumps({}))\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryLinting, 1, "unused import")
	assert.Nil(t, findFailure(failures, types.CategoryLinting, "unused variable"))
}

func TestPythonUnusedImportAliasAndFrom(t *testing.T) {
	src := "from collections import OrderedDict, defaultdict\nimport numpy as np\n\nd = defaultdict(list)\nprint(d)\n"
	failures := NewPython().Analyze([]byte(src), "app.py")

	// OrderedDict and np are unused, defaultdict is used.
	var unused []int
	for _, f := range failures {
		if f.Category == types.CategoryLinting && f.Message == "unused import" {
			unused = append(unused, f.Line)
		}
	}
	assert.ElementsMatch(t, []int{1, 2}, unused)
}

func TestPythonUnusedVariable(t *testing.T) {
	src := "x = 10\ny = 20\nprint(y)\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryLinting, 1, "unused variable 'x'")
}

func TestPythonLogicXOR(t *testing.T) {
	src := "def square(n):\n    return n ^ 2\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryLogic, 2, "bitwise XOR (^) detected, did you mean exponentiation (**)?")
}

func TestPythonLogicStringLiteral(t *testing.T) {
	src := "def join(a, b):\n    return a + \"b\"\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryLogic, 2, "string literal detected in expression")
}

func TestPythonTypeMismatch(t *testing.T) {
	src := "x = 5\ny = x + \"20\"\nprint(y)\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryTypeError, 2, "cannot add incompatible types")
}

func TestPythonTypeMismatchSkipsStringRepetition(t *testing.T) {
	src := "title = \"=\" * 70\nbanner = title + \"end\"\nprint(banner)\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assert.Nil(t, findFailure(failures, types.CategoryTypeError, "incompatible"))
}

func TestPythonIndentation(t *testing.T) {
	src := "def f():\nx = 1\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryIndentation, 2, "expected indentation of 4 spaces, got 0")
}

func TestPythonMixedTabsAndSpaces(t *testing.T) {
	src := "def f():\n\t x = 1\n\t return x\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryIndentation, 2, "mixed tabs and spaces")
}

func TestPythonImportAfterCode(t *testing.T) {
	src := "x = 1\nimport os\nprint(os.getcwd(), x)\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assertFailure(t, failures, types.CategoryImport, 2, "import statement should appear at the top of the file")
}

func TestPythonFutureImportExempt(t *testing.T) {
	src := "from __future__ import annotations\nimport os\nprint(os.getcwd())\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	assert.Nil(t, findFailure(failures, types.CategoryImport, "top of the file"))
}

func TestPythonSyntaxError(t *testing.T) {
	src := "def f(:\n    return 1\n"
	failures := NewPython().Analyze([]byte(src), "app.py")
	require.NotNil(t, findFailure(failures, types.CategorySyntax, "invalid syntax"))
}

func TestJavaMissingSemicolon(t *testing.T) {
	src := "public class A {\n    void run() {\n        int x = 1\n    }\n}\n"
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategorySyntax, 3, "Missing semicolon at end of statement")
}

func TestJavaUnusedImport(t *testing.T) {
	src := "import java.util.List;\nimport java.util.Map;\n\npublic class A {\n    Map<String, String> m;\n}\n"
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryLinting, 1, "Unused import: List")
	assert.Nil(t, findFailure(failures, types.CategoryLinting, "Unused import: Map"))
}

func TestJavaSnakeCaseVariable(t *testing.T) {
	src := "public class A {\n    void run() {\n        int total_count = 0;\n        System.out.println(total_count);\n    }\n}\n"
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryLinting, 3, "Variable 'total_count' should use camelCase, not snake_case")
}

func TestJavaLowercaseClass(t *testing.T) {
	src := "public class bankAccount {\n}\n"
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryLinting, 1, "Class 'bankAccount' should use PascalCase")
}

func TestJavaScannerLowercase(t *testing.T) {
	src := "public class A {\n    void run() {\n        scanner input = new scanner(System.in);\n    }\n}\n"
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryLinting, 3, "scanner type should be capitalized")
}

func TestJavaRawType(t *testing.T) {
	src := "public class A {\n    void run() {\n        HashMap map = new HashMap();\n        map.put(\"k\", \"v\");\n    }\n}\n"
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryLinting, 3, "raw type HashMap used without generics")
}

func TestJavaIntMethodReturningString(t *testing.T) {
	src := strings.Join([]string{
		"public class A {",
		"    public static int find(int[] nums) {",
		"        if (nums.length == 0) {",
		"            return \"not found\";",
		"        }",
		"        return nums[0];",
		"    }",
		"}",
	}, "\n")
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryTypeError, 4, "int method returning String literal")
}

func TestJavaDoubleMapReceivingString(t *testing.T) {
	src := strings.Join([]string{
		"public class A {",
		"    void run() {",
		"        Map<String, Double> scores = new HashMap<>();",
		"        scores.put(\"Alice\", \"95.5\");",
		"    }",
		"}",
	}, "\n")
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryTypeError, 4, "Map<String, Double> receiving String value")
}

func TestJavaInfiniteRecursion(t *testing.T) {
	src := strings.Join([]string{
		"public class A {",
		"    public static int search(int[] nums, int target, int low, int high) {",
		"        if (low > high) { return -1; }",
		"        int mid = (low + high) / 2;",
		"        if (nums[mid] == target) { return mid; }",
		"        if (nums[mid] > target) {",
		"            return search(nums, target, low, mid);",
		"        }",
		"        return search(nums, target, mid + 1, high);",
		"    }",
		"}",
	}, "\n")
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryLogic, 7, "infinite recursion")

	// The adjusted call on line 9 is fine.
	for _, f := range failures {
		if strings.Contains(f.Message, "infinite recursion") {
			assert.NotEqual(t, 9, f.Line)
		}
	}
}

func TestJavaCharFromStringLiteral(t *testing.T) {
	src := "public class A {\n    void run() {\n        char mark = \"X\";\n    }\n}\n"
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryTypeError, 3, "char assigned from string literal")
}

func TestJavaComparisonForMax(t *testing.T) {
	src := strings.Join([]string{
		"public class A {",
		"    int largest(int[] nums) {",
		"        int maxValue = nums[0];",
		"        for (int n : nums) {",
		"            if (n < maxValue) {",
		"                maxValue = n;",
		"            }",
		"        }",
		"        return maxValue;",
		"    }",
		"}",
	}, "\n")
	failures := NewJava().Analyze([]byte(src), "A.java")
	assertFailure(t, failures, types.CategoryLogic, 5, "comparison for max uses '<', did you mean '>'?")
}

func TestJavaScriptConsoleConcat(t *testing.T) {
	src := "function greet(name) {\n    console.log(\"hello\" name);\n}\n"
	failures := NewJavaScript().Analyze([]byte(src), "app.js")
	assertFailure(t, failures, types.CategorySyntax, 2, "Missing concatenation operator in console.log")
}

func TestJavaScriptPushToString(t *testing.T) {
	src := "const items = \"list\";\nitems.push(1);\n"
	failures := NewJavaScript().Analyze([]byte(src), "app.js")
	assertFailure(t, failures, types.CategoryTypeError, 2, "attempting to push to non-array")
}

func TestJavaScriptFunctionNaming(t *testing.T) {
	src := "function Get_Data() {\n    return 1;\n}\n"
	failures := NewJavaScript().Analyze([]byte(src), "app.js")
	assertFailure(t, failures, types.CategoryLinting, 1, "function name should be camelCase: 'Get_Data'")
}

func TestJavaScriptUnusedImport(t *testing.T) {
	src := "import lodash from \"lodash\";\n\nconsole.log(\"hi\");\n"
	failures := NewJavaScript().Analyze([]byte(src), "app.js")
	assertFailure(t, failures, types.CategoryLinting, 1, "Unused import: lodash")
}

func TestJavaScriptMixedArray(t *testing.T) {
	src := "const nums = [1, 2, \"3\"];\nconsole.log(nums);\n"
	failures := NewJavaScript().Analyze([]byte(src), "app.js")
	assertFailure(t, failures, types.CategoryTypeError, 1, "mixed numeric and string values in collection")
}

func TestTypeScriptAnnotationMismatch(t *testing.T) {
	src := "const count: number = \"10\";\nconsole.log(count);\n"
	failures := NewTypeScript().Analyze([]byte(src), "app.ts")
	assertFailure(t, failures, types.CategoryTypeError, 1, "assigned string literal to numeric type")
}

func TestAnalyzeRepository(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte("import os\n\nx = 1\nprint(x)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep", "skip.py"), []byte("import os\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("import os\n"), 0o644))

	failures, err := AnalyzeRepository(context.Background(), root)
	require.NoError(t, err)

	for _, f := range failures {
		assert.NotContains(t, f.File, "node_modules")
		assert.NotContains(t, f.File, "notes.txt")
	}
	assertFailure(t, failures, types.CategoryLinting, 1, "unused import")
}

func TestAnalyzeRepositoryDeterministic(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("import os\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte("import sys\n"), 0o644))

	first, err := AnalyzeRepository(context.Background(), root)
	require.NoError(t, err)
	second, err := AnalyzeRepository(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzeRepositoryRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "generated"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "generated", "gen.py"), []byte("import os\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte("import os\n"), 0o644))

	failures, err := AnalyzeRepository(context.Background(), root)
	require.NoError(t, err)
	for _, f := range failures {
		assert.NotContains(t, f.File, "generated")
	}
}

func TestAnalyzeRepositorySkipsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "good.py"), []byte("import os\n\nprint(\"hi\")\n"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "bad.py")))

	failures, err := AnalyzeRepository(context.Background(), root)
	require.NoError(t, err)
	assertFailure(t, failures, types.CategoryLinting, 1, "unused import")
	for _, f := range failures {
		assert.NotEqual(t, "bad.py", f.File)
	}
}
