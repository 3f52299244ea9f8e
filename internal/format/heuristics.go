package format

import (
	"math"
	"strings"
	"time"

	"ghnotify/internal/github"
)

// reasonPhrases maps notification reasons to display phrases. Unknown reasons
// fall back to underscore-stripped Title Case.
var reasonPhrases = map[string]string{
	"assign":           "Assigned",
	"author":           "Author",
	"comment":          "Comment",
	"ci_activity":      "CI Activity",
	"invitation":       "Invitation",
	"manual":           "Subscribed",
	"mention":          "Mentioned",
	"review_requested": "Review Requested",
	"security_alert":   "Security Alert",
	"state_change":     "State Change",
	"subscribed":       "Watching",
	"team_mention":     "Team Mentioned",
}

func ReasonPhrase(reason string) string {
	key := strings.ToLower(strings.TrimSpace(reason))
	if p, ok := reasonPhrases[key]; ok {
		return p
	}
	return titleCase(strings.ReplaceAll(key, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func baseColor(typ string) int {
	switch typ {
	case github.SubjectIssue:
		return ColorIssue
	case github.SubjectPullRequest:
		return ColorPullRequest
	case github.SubjectRelease:
		return ColorRelease
	case github.SubjectDiscussion:
		return ColorDiscussion
	case github.SubjectCommit:
		return ColorCommit
	case github.SubjectCheckSuite, github.SubjectCheckRun, github.SubjectWorkflowRun:
		return ColorWorkflow
	default:
		return ColorDefault
	}
}

// IsActionsNotification reports whether a notification looks like GitHub
// Actions activity. Actions threads routinely arrive with a CI-ish reason or
// a status phrase in the title instead of a usable subject type, so this is
// a keyword heuristic, not a type check.
func IsActionsNotification(n github.Notification) bool {
	reason := strings.ToLower(n.Reason)
	typ := strings.ToLower(n.Subject.Type)
	title := strings.ToLower(n.Subject.Title)

	switch {
	case strings.Contains(reason, "workflow"),
		strings.Contains(reason, "ci"),
		strings.Contains(reason, "check"):
		return true
	case typ == "checksuite", typ == "checkrun", typ == "workflowrun":
		return true
	case strings.Contains(title, "workflow"):
		return true
	case strings.Contains(title, "build") && hasOutcomeWord(title):
		return true
	case strings.Contains(title, "ci"):
		return true
	case strings.Contains(title, "test") && hasOutcomeWord(title):
		return true
	}
	return false
}

func hasOutcomeWord(title string) bool {
	return strings.Contains(title, "failed") ||
		strings.Contains(title, "passed") ||
		strings.Contains(title, "success")
}

// TypePhrase renders the Type field. Actions notifications get a workflow
// status phrase derived from the title; everything else gets the subject
// type with word breaks.
func TypePhrase(n github.Notification) string {
	typ := n.Subject.Type
	title := strings.ToLower(n.Subject.Title)

	if IsActionsNotification(n) {
		switch {
		case strings.Contains(title, "failed") || strings.Contains(title, "failure"):
			return "Workflow Failed ❌"
		case strings.Contains(title, "passed") || strings.Contains(title, "success"):
			return "Workflow Passed ✅"
		case strings.Contains(title, "cancelled") || strings.Contains(title, "canceled"):
			return "Workflow Cancelled ⏹️"
		case strings.Contains(title, "in_progress") || strings.Contains(title, "running"):
			return "Workflow Running 🔄"
		case typ == github.SubjectCheckSuite:
			return "Check Suite"
		case typ == github.SubjectCheckRun:
			return "Check Run"
		default:
			return "Workflow"
		}
	}

	switch typ {
	case github.SubjectPullRequest:
		return "Pull Request"
	case github.SubjectWorkflowRun:
		return "Workflow Run"
	case github.SubjectCheckSuite:
		return "Check Suite"
	case github.SubjectCheckRun:
		return "Check Run"
	case "":
		return "Unknown"
	default:
		return typ
	}
}

// MatchWorkflowRun picks the run that best matches a notification by time
// proximity and title keyword overlap. Candidates outside the tolerance
// window are ignored; ok is false when nothing qualifies.
func MatchWorkflowRun(runs []github.WorkflowRun, title string, updatedAt time.Time, window time.Duration) (github.WorkflowRun, bool) {
	if window <= 0 || updatedAt.IsZero() {
		return github.WorkflowRun{}, false
	}
	titleWords := keywordSet(title)

	var (
		best      github.WorkflowRun
		bestScore = -1.0
	)
	for _, run := range runs {
		at := run.UpdatedAt
		if at.IsZero() {
			at = run.CreatedAt
		}
		delta := updatedAt.Sub(at)
		if delta < 0 {
			delta = -delta
		}
		if delta > window {
			continue
		}

		// Time proximity in [0,1], plus one point per shared keyword.
		score := 1 - float64(delta)/float64(window)
		for w := range keywordSet(run.Name + " " + run.DisplayTitle) {
			if titleWords[w] {
				score += 1
			}
		}
		if score > bestScore {
			best, bestScore = run, score
		}
	}
	if bestScore < 0 {
		return github.WorkflowRun{}, false
	}
	return best, true
}

// matchComment picks the comment whose creation time is closest to the
// notification's updated_at, within the tolerance window.
func matchComment(comments []github.Comment, updatedAt time.Time, window time.Duration) (github.Comment, bool) {
	if window <= 0 || updatedAt.IsZero() {
		return github.Comment{}, false
	}
	var (
		best      github.Comment
		bestDelta = time.Duration(math.MaxInt64)
		found     bool
	)
	for _, cm := range comments {
		delta := updatedAt.Sub(cm.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta > window || delta >= bestDelta {
			continue
		}
		best, bestDelta, found = cm, delta, true
	}
	return best, found
}

// Common words that carry no signal for run matching.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "for": true,
	"in": true, "on": true, "of": true, "to": true, "run": true,
	"workflow": true,
}

func keywordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,:;!?#()[]\"'")
		if len(w) < 2 || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}
