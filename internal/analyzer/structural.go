package analyzer

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/fixwright/fixwright/internal/types"
)

// structuralParser validates files against a real grammar. Lexical scans
// see lines; this sees the tree, so unbalanced constructs that span lines
// still surface as SYNTAX failures.
type structuralParser struct {
	lang *sitter.Language
}

// maxSyntaxReports caps cascading parse errors per file. One broken brace
// can poison every node after it.
const maxSyntaxReports = 3

func newStructuralParser(name string) *structuralParser {
	switch name {
	case "python":
		return &structuralParser{lang: python.GetLanguage()}
	case "java":
		return &structuralParser{lang: java.GetLanguage()}
	case "javascript":
		return &structuralParser{lang: javascript.GetLanguage()}
	case "typescript":
		return &structuralParser{lang: typescript.GetLanguage()}
	}
	return nil
}

// syntaxFailures parses content and reports ERROR and missing nodes.
// Parsers are not safe for concurrent use, so each call builds its own.
func (s *structuralParser) syntaxFailures(content []byte, relPath string) []types.Failure {
	parser := sitter.NewParser()
	parser.SetLanguage(s.lang)

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	var failures []types.Failure
	seenLines := map[int]bool{}
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if len(failures) >= maxSyntaxReports {
			return
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			line := int(n.StartPoint().Row) + 1
			if !seenLines[line] {
				seenLines[line] = true
				failures = append(failures, types.Failure{
					File:     relPath,
					Line:     line,
					Category: types.CategorySyntax,
					Message:  "invalid syntax",
				})
			}
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return failures
}
