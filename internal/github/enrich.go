package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Detail lookups used to enrich a display record. All of them are
// best-effort from the caller's point of view: a failed lookup degrades the
// record, it never aborts the run.

// GetSubjectState fetches the lifecycle state of an issue or pull request
// from its subject API URL. For issues the merged flag is always false.
func (c *Client) GetSubjectState(ctx context.Context, subjectURL string) (SubjectState, error) {
	var st SubjectState
	if subjectURL == "" {
		return st, fmt.Errorf("github: empty subject url")
	}
	if err := c.getJSON(ctx, subjectURL, nil, &st); err != nil {
		return SubjectState{}, err
	}
	return st, nil
}

// ListComments fetches the most recent comments on an issue or pull request.
// subjectURL is the issue/PR API URL; GitHub serves comments at its
// /comments child resource.
func (c *Client) ListComments(ctx context.Context, subjectURL string, limit int) ([]Comment, error) {
	if subjectURL == "" {
		return nil, fmt.Errorf("github: empty subject url")
	}
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("direction", "desc")
	q.Set("sort", "created")

	var comments []Comment
	if err := c.getJSON(ctx, subjectURL+"/comments", q, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// ListWorkflowRuns fetches recent workflow runs for a repository, newest
// first. Used by the formatter to correlate CheckSuite/CheckRun subjects
// that carry no usable URL of their own.
func (c *Client) ListWorkflowRuns(ctx context.Context, repoFullName string, limit int) ([]WorkflowRun, error) {
	if repoFullName == "" {
		return nil, fmt.Errorf("github: empty repository name")
	}
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(limit))

	var payload struct {
		WorkflowRuns []WorkflowRun `json:"workflow_runs"`
	}
	if err := c.getJSON(ctx, "/repos/"+repoFullName+"/actions/runs", q, &payload); err != nil {
		return nil, err
	}
	return payload.WorkflowRuns, nil
}

// GetCheckSuite fetches a check suite by its subject API URL. The suite ID
// doubles as the workflow-run ID for the web actions URL.
func (c *Client) GetCheckSuite(ctx context.Context, suiteURL string) (CheckSuite, error) {
	var cs CheckSuite
	if suiteURL == "" {
		return cs, fmt.Errorf("github: empty check suite url")
	}
	if err := c.getJSON(ctx, suiteURL, nil, &cs); err != nil {
		return CheckSuite{}, err
	}
	return cs, nil
}

// GetCheckRun fetches a check run by its subject API URL. The run links back
// to its parent suite, which in turn yields the actions run ID.
func (c *Client) GetCheckRun(ctx context.Context, runURL string) (CheckRun, error) {
	var cr CheckRun
	if runURL == "" {
		return cr, fmt.Errorf("github: empty check run url")
	}
	if err := c.getJSON(ctx, runURL, nil, &cr); err != nil {
		return CheckRun{}, err
	}
	return cr, nil
}

// GetRelease fetches a release by its subject API URL, mainly for the tag
// name that the web URL is keyed on.
func (c *Client) GetRelease(ctx context.Context, releaseURL string) (Release, error) {
	var rel Release
	if releaseURL == "" {
		return rel, fmt.Errorf("github: empty release url")
	}
	if err := c.getJSON(ctx, releaseURL, nil, &rel); err != nil {
		return Release{}, err
	}
	return rel, nil
}
