// Package history loads recent queries from the analysis backend and summarizes them.
package history

import (
	"context"

	"github.com/liut/insightchat/pkg/models/convo"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// LimitChoices are the values offered by the page selector.
var LimitChoices = []int{10, 20, 50, 100}

// Fetcher is the remote history source.
type Fetcher interface {
	History(ctx context.Context, limit int) (convo.HistoryRecords, error)
}

// Page is one refresh outcome. On failure Records is empty, Stats is zero and Err is set.
type Page struct {
	Limit   int
	Records convo.HistoryRecords
	Stats   Stats
	Err     error
}

// Empty reports a successful load without records.
func (p *Page) Empty() bool {
	return p.Err == nil && len(p.Records) == 0
}

// Viewer ...
type Viewer struct {
	src Fetcher
}

// NewViewer ...
func NewViewer(src Fetcher) *Viewer {
	return &Viewer{src: src}
}

// ClampLimit maps non-positive to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Refresh fetches the latest records, newest first as the server returns them.
func (v *Viewer) Refresh(ctx context.Context, limit int) *Page {
	limit = ClampLimit(limit)
	page := &Page{Limit: limit}
	records, err := v.src.History(ctx, limit)
	if err != nil {
		logger().Infow("load history fail", "limit", limit, "err", err)
		page.Err = err
		page.Records = convo.HistoryRecords{}
		return page
	}
	if records == nil {
		records = convo.HistoryRecords{}
	}
	page.Records = records
	page.Stats = Compute(records)
	logger().Debugw("loaded history", "limit", limit, "count", len(records))
	return page
}
