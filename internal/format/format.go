package format

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ghnotify/internal/github"
	logx "ghnotify/pkg/logx"
)

// ErrSuppressed marks a notification that should not be published at all
// (cancelled/skipped workflow noise). Callers drop the record and move on.
var ErrSuppressed = errors.New("notification suppressed")

const excerptMaxLen = 300

// Enricher is the slice of the GitHub client the formatter needs for detail
// lookups. Kept as an interface so tests stub it without a server.
type Enricher interface {
	GetSubjectState(ctx context.Context, subjectURL string) (github.SubjectState, error)
	ListComments(ctx context.Context, subjectURL string, limit int) ([]github.Comment, error)
	ListWorkflowRuns(ctx context.Context, repoFullName string, limit int) ([]github.WorkflowRun, error)
	GetCheckSuite(ctx context.Context, suiteURL string) (github.CheckSuite, error)
	GetCheckRun(ctx context.Context, runURL string) (github.CheckRun, error)
	GetRelease(ctx context.Context, releaseURL string) (github.Release, error)
}

// Options tune the enrichment lookups. Zero windows disable the matching
// heuristics that depend on them.
type Options struct {
	Enabled       bool
	CommentWindow time.Duration // comment correlation tolerance
	RunWindow     time.Duration // workflow-run correlation tolerance
	Timeout       time.Duration // bounds each lookup call
}

// Formatter maps raw notifications into display records. The mapping itself
// is deterministic; enrichment adds detail when the lookups succeed and
// degrades silently when they don't.
type Formatter struct {
	enrich Enricher
	log    logx.Logger

	mu   sync.RWMutex
	opts Options
}

func New(enrich Enricher, opts Options, log logx.Logger) *Formatter {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Formatter{enrich: enrich, opts: opts, log: log}
}

// Apply swaps the enrichment options (config hot reload).
func (f *Formatter) Apply(opts Options) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	f.mu.Lock()
	f.opts = opts
	f.mu.Unlock()
}

func (f *Formatter) options() Options {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opts
}

// Format builds the display record for one notification. It returns
// ErrSuppressed for workflow notifications whose outcome is cancelled or
// skipped; any other error is impossible by construction (enrichment
// failures degrade, they don't propagate).
func (f *Formatter) Format(ctx context.Context, n github.Notification) (Record, error) {
	title := n.Subject.Title
	if title == "" {
		title = "No title"
	}
	repoName := n.Repository.FullName
	if repoName == "" {
		repoName = "Unknown"
	}

	actions := IsActionsNotification(n)

	color := baseColor(n.Subject.Type)
	if actions {
		color = ColorWorkflow
	}

	rec := Record{
		Title:     title,
		Color:     color,
		Timestamp: n.UpdatedAt,
		Fields: []Field{
			{Name: "Repository", Value: repoField(n.Repository), Inline: true},
			{Name: "Type", Value: TypePhrase(n), Inline: true},
			{Name: "Reason", Value: ReasonPhrase(n.Reason), Inline: true},
		},
	}
	if !n.UpdatedAt.IsZero() {
		rec.Fields = append(rec.Fields, Field{
			Name:   "Updated",
			Value:  fmt.Sprintf("<t:%d:R>", n.UpdatedAt.Unix()),
			Inline: true,
		})
	}
	if n.Repository.Owner.Login != "" {
		rec.Author = Author{
			Name:    n.Repository.Owner.Login,
			IconURL: n.Repository.Owner.AvatarURL,
			URL:     n.Repository.Owner.HTMLURL,
		}
		rec.ThumbnailURL = n.Repository.Owner.AvatarURL
	}

	if actions {
		if err := f.formatActions(ctx, n, &rec); err != nil {
			return Record{}, err
		}
		return rec, nil
	}

	rec.URL = f.resolveURL(ctx, n)
	f.applyLifecycle(ctx, n, &rec)
	f.applyCommentExcerpt(ctx, n, &rec)
	return rec, nil
}

func repoField(r github.Repository) string {
	name := r.FullName
	if name == "" {
		return "Unknown"
	}
	if r.HTMLURL == "" {
		return name
	}
	return fmt.Sprintf("[%s](%s)", name, r.HTMLURL)
}

// resolveURL derives the web link for non-actions subjects.
func (f *Formatter) resolveURL(ctx context.Context, n github.Notification) string {
	apiURL := n.Subject.URL
	if apiURL == "" {
		return n.Repository.HTMLURL
	}
	if u := RewriteAPIURL(apiURL); u != "" {
		return u
	}
	if strings.Contains(apiURL, "/releases/") {
		if f.enrichEnabled() {
			rel, err := f.lookupRelease(ctx, apiURL)
			if err == nil && rel.TagName != "" {
				return ReleaseTagURL(n.Repository.FullName, rel.TagName)
			}
			f.debugLookup("release", n, err)
		}
		return ReleasesPageURL(n.Repository.FullName)
	}
	return n.Repository.HTMLURL
}

// formatActions handles workflow-flavored notifications: orange color was
// already applied; here we resolve the run URL and suppress cancelled or
// skipped outcomes.
func (f *Formatter) formatActions(ctx context.Context, n github.Notification, rec *Record) error {
	repoName := n.Repository.FullName
	apiURL := n.Subject.URL

	conclusion := ""
	rec.URL = ActionsPageURL(repoName)

	switch {
	case strings.Contains(apiURL, "/actions/runs/"):
		if id, ok := RunIDFromURL(apiURL); ok {
			rec.URL = ActionsRunURL(repoName, id)
		}
	case strings.Contains(apiURL, "/check-suites/") && f.enrichEnabled():
		cs, err := f.lookupCheckSuite(ctx, apiURL)
		if err == nil {
			// The suite ID doubles as the actions run ID.
			rec.URL = ActionsRunURL(repoName, cs.ID)
			conclusion = cs.Conclusion
		} else {
			f.debugLookup("check suite", n, err)
		}
	case strings.Contains(apiURL, "/check-runs/") && f.enrichEnabled():
		cr, err := f.lookupCheckRun(ctx, apiURL)
		if err != nil {
			f.debugLookup("check run", n, err)
			break
		}
		conclusion = cr.Conclusion
		if cr.CheckSuite.URL == "" {
			break
		}
		cs, err := f.lookupCheckSuite(ctx, cr.CheckSuite.URL)
		if err == nil {
			rec.URL = ActionsRunURL(repoName, cs.ID)
		} else {
			f.debugLookup("check suite", n, err)
		}
	case f.enrichEnabled() && f.options().RunWindow > 0:
		// No usable subject URL: correlate against recent runs.
		runs, err := f.lookupWorkflowRuns(ctx, repoName)
		if err != nil {
			f.debugLookup("workflow runs", n, err)
			break
		}
		if run, ok := MatchWorkflowRun(runs, n.Subject.Title, n.UpdatedAt, f.options().RunWindow); ok {
			if run.HTMLURL != "" {
				rec.URL = run.HTMLURL
			} else {
				rec.URL = ActionsRunURL(repoName, run.ID)
			}
			conclusion = run.Conclusion
		}
	}

	if suppressedConclusion(conclusion) || suppressedTitle(n.Subject.Title) {
		return ErrSuppressed
	}
	return nil
}

func suppressedConclusion(conclusion string) bool {
	switch strings.ToLower(conclusion) {
	case "cancelled", "skipped":
		return true
	}
	return false
}

func suppressedTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "cancelled") ||
		strings.Contains(t, "canceled") ||
		strings.Contains(t, "skipped")
}

// applyLifecycle overrides the base color once the issue/PR state is known.
func (f *Formatter) applyLifecycle(ctx context.Context, n github.Notification, rec *Record) {
	if !f.enrichEnabled() {
		return
	}
	typ := n.Subject.Type
	if typ != github.SubjectIssue && typ != github.SubjectPullRequest {
		return
	}
	if n.Subject.URL == "" {
		return
	}
	st, err := f.lookupState(ctx, n.Subject.URL)
	if err != nil {
		f.debugLookup("subject state", n, err)
		return
	}
	switch {
	case st.Merged:
		rec.Color = ColorMerged
	case st.State == "closed":
		rec.Color = ColorClosed
	}
}

// applyCommentExcerpt attaches a truncated comment body for comment-driven
// notifications.
func (f *Formatter) applyCommentExcerpt(ctx context.Context, n github.Notification, rec *Record) {
	window := f.options().CommentWindow
	if !f.enrichEnabled() || window <= 0 {
		return
	}
	reason := strings.ToLower(n.Reason)
	if !strings.Contains(reason, "comment") && reason != "mention" && reason != "team_mention" {
		return
	}
	if n.Subject.URL == "" {
		return
	}
	comments, err := f.lookupComments(ctx, n.Subject.URL)
	if err != nil {
		f.debugLookup("comments", n, err)
		return
	}
	cm, ok := matchComment(comments, n.UpdatedAt, window)
	if !ok {
		return
	}
	rec.Excerpt = truncate(cm.Body, excerptMaxLen)
	if cm.HTMLURL != "" {
		rec.URL = cm.HTMLURL
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	// Don't split a multi-byte rune.
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}

func (f *Formatter) enrichEnabled() bool {
	return f.options().Enabled && f.enrich != nil
}

func (f *Formatter) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, f.options().Timeout)
}

func (f *Formatter) debugLookup(what string, n github.Notification, err error) {
	if err == nil {
		return
	}
	f.log.Debug("enrichment lookup failed",
		logx.String("lookup", what),
		logx.String("repo", n.Repository.FullName),
		logx.String("subject", n.Subject.Type),
		logx.Err(err))
}

func (f *Formatter) lookupState(ctx context.Context, url string) (github.SubjectState, error) {
	ctx, cancel := f.lookupCtx(ctx)
	defer cancel()
	return f.enrich.GetSubjectState(ctx, url)
}

func (f *Formatter) lookupComments(ctx context.Context, url string) ([]github.Comment, error) {
	ctx, cancel := f.lookupCtx(ctx)
	defer cancel()
	return f.enrich.ListComments(ctx, url, 10)
}

func (f *Formatter) lookupWorkflowRuns(ctx context.Context, repo string) ([]github.WorkflowRun, error) {
	ctx, cancel := f.lookupCtx(ctx)
	defer cancel()
	return f.enrich.ListWorkflowRuns(ctx, repo, 20)
}

func (f *Formatter) lookupCheckSuite(ctx context.Context, url string) (github.CheckSuite, error) {
	ctx, cancel := f.lookupCtx(ctx)
	defer cancel()
	return f.enrich.GetCheckSuite(ctx, url)
}

func (f *Formatter) lookupCheckRun(ctx context.Context, url string) (github.CheckRun, error) {
	ctx, cancel := f.lookupCtx(ctx)
	defer cancel()
	return f.enrich.GetCheckRun(ctx, url)
}

func (f *Formatter) lookupRelease(ctx context.Context, url string) (github.Release, error) {
	ctx, cancel := f.lookupCtx(ctx)
	defer cancel()
	return f.enrich.GetRelease(ctx, url)
}
