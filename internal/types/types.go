// Package types defines the shared data shapes used by every other
// component: detected failures, fix plans and results, and the per-run
// ledger that the repair controller owns for the duration of one run.
package types

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// BugCategory classifies a detected defect. The set is closed: analyzers,
// patchers, and the failure parser all dispatch on these six values.
type BugCategory string

const (
	CategoryLinting     BugCategory = "LINTING"
	CategorySyntax      BugCategory = "SYNTAX"
	CategoryLogic       BugCategory = "LOGIC"
	CategoryTypeError   BugCategory = "TYPE_ERROR"
	CategoryImport      BugCategory = "IMPORT"
	CategoryIndentation BugCategory = "INDENTATION"
)

// IsValid checks if the category value is one of the six known kinds.
func (c BugCategory) IsValid() bool {
	switch c {
	case CategoryLinting, CategorySyntax, CategoryLogic, CategoryTypeError, CategoryImport, CategoryIndentation:
		return true
	}
	return false
}

// Categories lists every valid bug category in a stable order.
var Categories = []BugCategory{
	CategoryLinting,
	CategorySyntax,
	CategoryLogic,
	CategoryTypeError,
	CategoryImport,
	CategoryIndentation,
}

// Failure is one detected defect instance. Two failures with the same
// (File, Line, Category) key are the same logical defect regardless of
// message text.
type Failure struct {
	// File is the path relative to the repository root, forward-slash
	// normalized.
	File string `json:"file"`
	// Line is 1-based.
	Line     int         `json:"line_number"`
	Category BugCategory `json:"bug_type"`
	Message  string      `json:"message"`
}

// FailureKey is the identity of a Failure, usable as a map key.
type FailureKey struct {
	File     string
	Line     int
	Category BugCategory
}

// Key returns the failure's identity key.
func (f Failure) Key() FailureKey {
	return FailureKey{File: f.File, Line: f.Line, Category: f.Category}
}

// Validate checks the failure has usable field values.
func (f Failure) Validate() error {
	if f.File == "" {
		return fmt.Errorf("file is required")
	}
	if f.Line < 1 {
		return fmt.Errorf("line number must be positive (got %d)", f.Line)
	}
	if !f.Category.IsValid() {
		return fmt.Errorf("invalid bug category: %s", f.Category)
	}
	return nil
}

// NormalizePath converts a possibly absolute or backslashed file path into
// a forward-slash path relative to repoRoot. Paths outside the root are
// returned slash-normalized but otherwise untouched.
func NormalizePath(file, repoRoot string) string {
	p := strings.ReplaceAll(file, "\\", "/")
	root := strings.TrimSuffix(strings.ReplaceAll(repoRoot, "\\", "/"), "/")
	if root != "" && strings.HasPrefix(p, root+"/") {
		p = strings.TrimPrefix(p, root+"/")
	}
	return path.Clean(p)
}

// Merge combines failure lists into a single list deduplicated by key.
// Later lists overwrite earlier ones at the same key (last-writer-wins on
// the message). Ordering of the result is not significant.
func Merge(lists ...[]Failure) []Failure {
	merged := make(map[FailureKey]Failure)
	var order []FailureKey
	for _, list := range lists {
		for _, f := range list {
			key := f.Key()
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = f
		}
	}
	result := make([]Failure, 0, len(merged))
	for _, key := range order {
		result = append(result, merged[key])
	}
	return result
}

// FixStatus is the outcome of one attempted fix.
type FixStatus string

const (
	FixApplied FixStatus = "FIXED"
	FixFailed  FixStatus = "FAILED"
)

// FixPlan is descriptive metadata about an intended repair, derived
// deterministically from a Failure. The repair logic itself lives in the
// patch rule engines, which re-inspect the original message and the
// current source line independently.
type FixPlan struct {
	File          string      `json:"file"`
	Line          int         `json:"line_number"`
	Category      BugCategory `json:"bug_type"`
	CommitMessage string      `json:"commit_message"`
	ExpectedOut   string      `json:"expected_output"`
}

// categoryActions maps each category to a human-readable repair action.
var categoryActions = map[BugCategory]string{
	CategoryLinting:     "remove the import statement",
	CategorySyntax:      "add the colon at the correct position",
	CategoryLogic:       "adjust the conditional branch and return value",
	CategoryTypeError:   "align variable and function type usage",
	CategoryImport:      "correct the import path and symbol name",
	CategoryIndentation: "fix the indentation level",
}

// PlanFix builds the FixPlan for a failure.
func PlanFix(f Failure) FixPlan {
	action := categoryActions[f.Category]
	return FixPlan{
		File:          f.File,
		Line:          f.Line,
		Category:      f.Category,
		CommitMessage: fmt.Sprintf("Fix %s in %s:%d", f.Category, f.File, f.Line),
		ExpectedOut:   fmt.Sprintf("%s error in %s line %d → Fix: %s", f.Category, f.File, f.Line, action),
	}
}

// FixResult records one attempted fix, appended to the run ledger.
type FixResult struct {
	File          string      `json:"file"`
	Category      BugCategory `json:"bug_type"`
	Line          int         `json:"line_number"`
	CommitMessage string      `json:"commit_message"`
	Status        FixStatus   `json:"status"`
	ExpectedOut   string      `json:"expected_output"`
}

// RunStatus is the lifecycle state of a run. PASSED and FAILED are
// terminal.
type RunStatus string

const (
	RunQueued  RunStatus = "QUEUED"
	RunRunning RunStatus = "RUNNING"
	RunPassed  RunStatus = "PASSED"
	RunFailed  RunStatus = "FAILED"
)

// IsValid checks if the run status value is valid.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunQueued, RunRunning, RunPassed, RunFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the run can no longer change state.
func (s RunStatus) IsTerminal() bool {
	return s == RunPassed || s == RunFailed
}

// TimelineEntry records the outcome of one outer repair iteration.
type TimelineEntry struct {
	Iteration  int       `json:"iteration"`
	RetryLimit int       `json:"retry_limit"`
	Status     RunStatus `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// ScoreBreakdown is the run's score decomposition.
type ScoreBreakdown struct {
	BaseScore         int `json:"base_score"`
	SpeedBonus        int `json:"speed_bonus"`
	EfficiencyPenalty int `json:"efficiency_penalty"`
	FinalScore        int `json:"final_score"`
}

// RunState is the full snapshot of one run: request parameters, lifecycle
// state, the cumulative counters the controller maintains, and the ordered
// fix and timeline ledgers. It is exclusively owned by the run's goroutine
// while RUNNING and frozen once terminal.
type RunState struct {
	RunID          string     `json:"run_id"`
	RepositoryURL  string     `json:"repository_url"`
	TeamName       string     `json:"team_name"`
	TeamLeaderName string     `json:"team_leader_name"`
	BranchName     string     `json:"branch_name"`
	Status         RunStatus  `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	// DurationSeconds is nil until the run reaches a terminal state.
	DurationSeconds *float64 `json:"duration_seconds"`

	TotalFailuresDetected int `json:"total_failures_detected"`
	TotalFixesApplied     int `json:"total_fixes_applied"`
	CommitCount           int `json:"commit_count"`

	Score    ScoreBreakdown  `json:"score"`
	Fixes    []FixResult     `json:"fixes"`
	Timeline []TimelineEntry `json:"timeline"`

	ErrorMessage  string `json:"error_message,omitempty"`
	CIWorkflowURL string `json:"ci_workflow_url,omitempty"`
}

// RunRequest is the control-plane payload that starts a run.
type RunRequest struct {
	RepositoryURL  string `json:"repository_url"`
	TeamName       string `json:"team_name"`
	TeamLeaderName string `json:"team_leader_name"`
	RetryLimit     int    `json:"retry_limit"`
}

// Validate checks the request has usable field values.
func (r RunRequest) Validate() error {
	if !strings.HasPrefix(r.RepositoryURL, "http://") && !strings.HasPrefix(r.RepositoryURL, "https://") {
		return fmt.Errorf("repository_url must be an http(s) URL")
	}
	if strings.TrimSpace(r.TeamName) == "" {
		return fmt.Errorf("team_name is required")
	}
	if strings.TrimSpace(r.TeamLeaderName) == "" {
		return fmt.Errorf("team_leader_name is required")
	}
	if r.RetryLimit < 1 || r.RetryLimit > 20 {
		return fmt.Errorf("retry_limit must be between 1 and 20 (got %d)", r.RetryLimit)
	}
	return nil
}
