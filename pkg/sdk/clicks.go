package catalogsearch

import (
	"context"
	"fmt"
	"time"
)

// Click reports that a user selected a search result. SessionID is
// minted when empty; ClickedAt defaults to now. A replayed click with
// the same identity is a silent success.
type Click struct {
	OrgID      string
	UserID     string
	SessionID  string
	QueryText  string
	ObjectType string
	ObjectID   string
	Rank       int // 1-based position in the served page
	FusedScore float64
	ClickedAt  time.Time
}

// RecordClick stores one click event for the learning loop.
func (c *Client) RecordClick(ctx context.Context, tenant string, click Click) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("record_click", start, err) }()

	err = c.telemetrySvc.Record(ctx,
		tenant, click.OrgID, click.UserID, click.SessionID,
		click.QueryText, click.ObjectType, click.ObjectID,
		click.Rank, click.FusedScore, click.ClickedAt)
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}
