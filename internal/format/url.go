package format

import (
	"strconv"
	"strings"
)

const (
	apiRepoPrefix = "api.github.com/repos"
	webPrefix     = "github.com"
)

// RewriteAPIURL converts a REST subject URL into the corresponding web URL
// with pure string mapping, no network. It handles the subject kinds whose
// web path mirrors the API path; kinds that need a lookup (releases,
// check suites/runs) return "" and are resolved by the formatter.
func RewriteAPIURL(apiURL string) string {
	if apiURL == "" {
		return ""
	}
	switch {
	case strings.Contains(apiURL, "/pulls/"):
		u := strings.Replace(apiURL, apiRepoPrefix, webPrefix, 1)
		return strings.Replace(u, "/pulls/", "/pull/", 1)
	case strings.Contains(apiURL, "/issues/"):
		return strings.Replace(apiURL, apiRepoPrefix, webPrefix, 1)
	case strings.Contains(apiURL, "/actions/runs/"):
		return strings.Replace(apiURL, apiRepoPrefix, webPrefix, 1)
	case strings.Contains(apiURL, "/commits/"):
		u := strings.Replace(apiURL, apiRepoPrefix, webPrefix, 1)
		return strings.Replace(u, "/commits/", "/commit/", 1)
	case strings.Contains(apiURL, "/discussions/"):
		return strings.Replace(apiURL, apiRepoPrefix, webPrefix, 1)
	}
	return ""
}

// RunIDFromURL extracts the run ID from an .../actions/runs/<id> URL.
func RunIDFromURL(apiURL string) (int64, bool) {
	_, rest, ok := strings.Cut(apiURL, "/runs/")
	if !ok {
		return 0, false
	}
	rest, _, _ = strings.Cut(rest, "?")
	rest, _, _ = strings.Cut(rest, "/")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ActionsRunURL builds the web URL of a workflow run.
func ActionsRunURL(repoFullName string, runID int64) string {
	return "https://github.com/" + repoFullName + "/actions/runs/" + strconv.FormatInt(runID, 10)
}

// ActionsPageURL is the fallback when no run can be resolved.
func ActionsPageURL(repoFullName string) string {
	return "https://github.com/" + repoFullName + "/actions"
}

// ReleasesPageURL is the fallback when a release tag cannot be resolved.
func ReleasesPageURL(repoFullName string) string {
	return "https://github.com/" + repoFullName + "/releases"
}

// ReleaseTagURL builds the web URL of a release by tag.
func ReleaseTagURL(repoFullName, tag string) string {
	return "https://github.com/" + repoFullName + "/releases/tag/" + tag
}
