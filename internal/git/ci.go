package git

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// CIStatus is the verdict of a CI polling session.
type CIStatus string

const (
	CIPassed CIStatus = "PASSED"
	CIFailed CIStatus = "FAILED"
)

// CIPoller watches GitHub Actions for the latest workflow run on a
// branch. API calls go through a rate limiter so tight polling loops
// stay well inside GitHub's budget.
type CIPoller struct {
	// BaseURL is overridable for tests; defaults to the public API.
	BaseURL  string
	Token    string
	Interval time.Duration
	Timeout  time.Duration

	client  *http.Client
	limiter *rate.Limiter
}

// NewCIPoller builds a poller with the given check interval and overall
// session timeout.
func NewCIPoller(token string, interval, timeout time.Duration) *CIPoller {
	if interval <= 0 {
		interval = 8 * time.Second
	}
	if timeout <= 0 {
		timeout = 480 * time.Second
	}
	return &CIPoller{
		BaseURL:  "https://api.github.com",
		Token:    token,
		Interval: interval,
		Timeout:  timeout,
		client:   &http.Client{Timeout: 20 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

type workflowRun struct {
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HTMLURL    string `json:"html_url"`
}

type workflowRunsResponse struct {
	WorkflowRuns []workflowRun `json:"workflow_runs"`
}

// Poll blocks until the latest workflow run on the branch completes or
// the session times out. Timeout and lookup errors resolve to FAILED;
// the run can still succeed on a later iteration.
func (p *CIPoller) Poll(ctx context.Context, owner, repo, branch string) (CIStatus, string) {
	deadline := time.Now().Add(p.Timeout)
	workflowURL := ""

	for time.Now().Before(deadline) {
		run, err := p.latestRun(ctx, owner, repo, branch)
		if err == nil && run != nil {
			workflowURL = run.HTMLURL
			if run.Status == "completed" {
				if run.Conclusion == "success" {
					return CIPassed, workflowURL
				}
				return CIFailed, workflowURL
			}
		}

		select {
		case <-ctx.Done():
			return CIFailed, workflowURL
		case <-time.After(p.Interval):
		}
	}
	return CIFailed, workflowURL
}

func (p *CIPoller) latestRun(ctx context.Context, owner, repo, branch string) (*workflowRun, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/actions/runs?branch=%s&per_page=10",
		p.BaseURL, owner, repo, url.QueryEscape(branch))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("actions API returned %d", resp.StatusCode)
	}

	var payload workflowRunsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode actions response: %w", err)
	}
	if len(payload.WorkflowRuns) == 0 {
		return nil, nil
	}
	return &payload.WorkflowRuns[0], nil
}
