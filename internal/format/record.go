package format

import "time"

// Embed colors, keyed by subject type. Lifecycle states override the base
// color once a detail lookup succeeds.
const (
	ColorIssue       = 0x28a745 // green
	ColorPullRequest = 0x0366d6 // blue
	ColorRelease     = 0x6f42c1 // purple
	ColorDiscussion  = 0xffc107 // yellow
	ColorCommit      = 0x6c757d // gray
	ColorWorkflow    = 0xff6b35 // orange
	ColorDefault     = 0x586069

	ColorClosed = 0xcb2431 // red
	ColorMerged = 0x6f42c1 // purple
)

// Record is the display form of one notification, ready to become a webhook
// embed. Write-once; never persisted.
type Record struct {
	Title     string
	Color     int
	URL       string
	Timestamp time.Time
	Fields    []Field

	// Author identifies the repository owner, when known.
	Author Author

	// ThumbnailURL is the owner avatar, when known.
	ThumbnailURL string

	// Excerpt is a truncated body of the correlated comment, for
	// comment/mention notifications. Empty when no comment matched.
	Excerpt string
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

type Author struct {
	Name    string
	IconURL string
	URL     string
}
