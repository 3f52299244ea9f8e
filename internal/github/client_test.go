package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "ghnotify/pkg/logx"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		Token:     "test-token",
		APIBase:   srv.URL,
		UserAgent: "ghnotify-test",
		Timeout:   2 * time.Second,
		PerPage:   2,
		PageLimit: 3,
	}, logx.Nop())
	return c, srv
}

func TestListNotificationsHeadersAndQuery(t *testing.T) {
	t.Parallel()

	var gotReq *http.Request
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		fmt.Fprint(w, `[]`)
	}))

	since := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	if _, err := c.ListNotifications(context.Background(), since); err != nil {
		t.Fatalf("list: %v", err)
	}

	if got := gotReq.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Fatalf("Authorization = %q", got)
	}
	if got := gotReq.Header.Get("Accept"); got != "application/vnd.github+json" {
		t.Fatalf("Accept = %q", got)
	}
	if got := gotReq.Header.Get("X-GitHub-Api-Version"); got != "2022-11-28" {
		t.Fatalf("X-GitHub-Api-Version = %q", got)
	}
	q := gotReq.URL.Query()
	if q.Get("all") != "false" || q.Get("participating") != "false" {
		t.Fatalf("query = %v", q)
	}
	if q.Get("since") != "2026-04-01T08:00:00Z" {
		t.Fatalf("since = %q", q.Get("since"))
	}
}

func TestListNotificationsPagination(t *testing.T) {
	t.Parallel()

	// per_page=2, page cap 3. Serve 2+2+2 so the walk hits the cap.
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		fmt.Fprintf(w, `[{"id":"%s-a"},{"id":"%s-b"}]`, page, page)
	}))

	got, err := c.ListNotifications(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6 (page cap)", len(got))
	}
	if got[0].ID != "1-a" || got[5].ID != "3-b" {
		t.Fatalf("ids = %q ... %q", got[0].ID, got[5].ID)
	}
}

func TestListNotificationsShortPageStops(t *testing.T) {
	t.Parallel()

	var pages int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		fmt.Fprint(w, `[{"id":"only"}]`) // shorter than per_page=2
	}))

	got, err := c.ListNotifications(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || pages != 1 {
		t.Fatalf("len=%d pages=%d, want 1 and 1", len(got), pages)
	}
}

func TestListNotificationsErrorStatus(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))

	if _, err := c.ListNotifications(context.Background(), time.Time{}); err == nil {
		t.Fatalf("want error on 401")
	}
}

func TestEnrichmentLookups(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state":"closed","merged":true}`)
	})
	mux.HandleFunc("/repos/o/r/issues/3/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"body":"looks good","created_at":"2026-04-01T08:00:00Z","user":{"login":"alice"}}]`)
	})
	mux.HandleFunc("/repos/o/r/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"workflow_runs":[{"id":42,"name":"CI","conclusion":"failure","head_branch":"main"}]}`)
	})
	mux.HandleFunc("/repos/o/r/check-suites/99", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":99,"status":"completed","conclusion":"success"}`)
	})
	mux.HandleFunc("/repos/o/r/releases/5", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v1.2.0","name":"v1.2.0"}`)
	})

	c, srv := newTestClient(t, mux)
	ctx := context.Background()

	st, err := c.GetSubjectState(ctx, srv.URL+"/repos/o/r/pulls/7")
	if err != nil || st.State != "closed" || !st.Merged {
		t.Fatalf("subject state = %+v err=%v", st, err)
	}

	comments, err := c.ListComments(ctx, srv.URL+"/repos/o/r/issues/3", 5)
	if err != nil || len(comments) != 1 || comments[0].User.Login != "alice" {
		t.Fatalf("comments = %+v err=%v", comments, err)
	}

	runs, err := c.ListWorkflowRuns(ctx, "o/r", 0)
	if err != nil || len(runs) != 1 || runs[0].ID != 42 {
		t.Fatalf("runs = %+v err=%v", runs, err)
	}

	cs, err := c.GetCheckSuite(ctx, srv.URL+"/repos/o/r/check-suites/99")
	if err != nil || cs.ID != 99 {
		t.Fatalf("check suite = %+v err=%v", cs, err)
	}

	rel, err := c.GetRelease(ctx, srv.URL+"/repos/o/r/releases/5")
	if err != nil || rel.TagName != "v1.2.0" {
		t.Fatalf("release = %+v err=%v", rel, err)
	}
}
