package github

import "time"

// Subject types seen on notification threads. The enum is open: unknown
// strings pass through untouched.
const (
	SubjectIssue       = "Issue"
	SubjectPullRequest = "PullRequest"
	SubjectRelease     = "Release"
	SubjectDiscussion  = "Discussion"
	SubjectCommit      = "Commit"
	SubjectCheckSuite  = "CheckSuite"
	SubjectCheckRun    = "CheckRun"
	SubjectWorkflowRun = "WorkflowRun"
)

// Notification is one thread from GET /notifications.
type Notification struct {
	ID         string     `json:"id"`
	Unread     bool       `json:"unread"`
	Reason     string     `json:"reason"`
	UpdatedAt  time.Time  `json:"updated_at"`
	URL        string     `json:"url"`
	Subject    Subject    `json:"subject"`
	Repository Repository `json:"repository"`
}

type Subject struct {
	Title            string `json:"title"`
	URL              string `json:"url"`
	LatestCommentURL string `json:"latest_comment_url"`
	Type             string `json:"type"`
}

type Repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Owner    Owner  `json:"owner"`
}

type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// SubjectState is the lifecycle of an issue or pull request.
type SubjectState struct {
	State  string `json:"state"` // "open" or "closed"
	Merged bool   `json:"merged"`
}

type Comment struct {
	Body      string    `json:"body"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	User      Owner     `json:"user"`
}

type WorkflowRun struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayTitle string    `json:"display_title"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	HTMLURL      string    `json:"html_url"`
	HeadBranch   string    `json:"head_branch"`
	Event        string    `json:"event"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CheckSuite struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

type CheckRun struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	CheckSuite struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	} `json:"check_suite"`
}

type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}
