package github

import (
	"context"
	"net/url"
	"strconv"
	"time"

	logx "ghnotify/pkg/logx"
)

// ListNotifications fetches the unread, non-participating notification feed.
// When since is non-zero, only threads updated after it are requested.
//
// The walk is bounded by the configured page cap; a capped result is not an
// error (the next run catches up, since the checkpoint only advances on
// success).
func (c *Client) ListNotifications(ctx context.Context, since time.Time) ([]Notification, error) {
	var all []Notification
	for page := 1; page <= c.pageLimit; page++ {
		q := url.Values{}
		q.Set("all", "false")
		q.Set("participating", "false")
		q.Set("per_page", strconv.Itoa(c.perPage))
		q.Set("page", strconv.Itoa(page))
		if !since.IsZero() {
			q.Set("since", since.UTC().Format(time.RFC3339))
		}

		var batch []Notification
		if err := c.getJSON(ctx, "/notifications", q, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < c.perPage {
			return all, nil
		}
	}
	c.log.Warn("notification feed truncated at page cap",
		logx.Int("pages", c.pageLimit), logx.Int("fetched", len(all)))
	return all, nil
}
