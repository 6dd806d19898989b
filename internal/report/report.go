// Package report defines what a rendered statistics report receives and
// provides a terminal renderer.
package report

import (
	"context"
	"errors"
	"sort"

	"socialstats/internal/model"
	"socialstats/internal/stats"
)

// Report is one consolidated tuple ready to be persisted or displayed.
type Report struct {
	// Name is the suggested report name, "<Platform>_<account>" or "merge".
	Name string
	// Identity is zero for merged reports.
	Identity model.Identity

	Table   *stats.Table
	Daily   stats.Daily
	Hours   stats.Hours
	Records []model.Record
}

// Renderer persists or displays a report.
type Renderer interface {
	Render(ctx context.Context, r Report) error
}

// Multi renders to every renderer in turn and joins their errors.
type Multi []Renderer

func (m Multi) Render(ctx context.Context, r Report) error {
	var errs []error
	for _, rr := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rr.Render(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ByMessages returns row indices ordered by Messages, highest first. Ties
// keep table order.
func ByMessages(t *stats.Table) []int {
	idx := make([]int, t.Rows())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Get(stats.Messages, idx[a]).Num > t.Get(stats.Messages, idx[b]).Num
	})
	return idx
}
