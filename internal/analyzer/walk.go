package analyzer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/fixwright/fixwright/internal/types"
)

// skipDirs are never descended into regardless of .gitignore contents.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".idea":        true,
	".vscode":      true,
}

// maxFileSize guards against scanning generated bundles and data dumps.
const maxFileSize = 1 << 20 // 1 MiB

// analyzeWorkers bounds concurrent file scans.
const analyzeWorkers = 8

// AnalyzeRepository walks repoRoot, routes each source file to its language
// analyzer, and returns the merged failure list. Files are scanned
// concurrently; results are ordered by file path then line number so runs
// over the same tree are deterministic.
func AnalyzeRepository(ctx context.Context, repoRoot string) ([]types.Failure, error) {
	info, err := os.Stat(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("stat repo root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo root %s is not a directory", repoRoot)
	}

	ignore := loadGitignore(repoRoot)

	var files []string
	err = filepath.WalkDir(repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		if ForFile(path) == nil {
			return nil
		}
		if fi, err := d.Info(); err == nil && fi.Size() > maxFileSize {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", repoRoot, err)
	}

	results := make([][]types.Failure, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(analyzeWorkers)
	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(repoRoot, rel))
			if err != nil {
				// Unreadable files yield no findings; the scan continues.
				log.Printf("analyze: skipping %s: %v", rel, err)
				return nil
			}
			results[i] = AnalyzeFile(content, rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := types.Merge(results...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].File != merged[j].File {
			return merged[i].File < merged[j].File
		}
		return merged[i].Line < merged[j].Line
	})
	return merged, nil
}

// AnalyzeFile runs the analyzer for relPath's extension over content.
// Unroutable extensions yield no failures.
func AnalyzeFile(content []byte, relPath string) []types.Failure {
	a := ForFile(relPath)
	if a == nil {
		return nil
	}
	return a.Analyze(content, filepath.ToSlash(relPath))
}

func loadGitignore(repoRoot string) *gitignore.GitIgnore {
	path := filepath.Join(repoRoot, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ign, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return ign
}
