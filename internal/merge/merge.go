// Package merge folds per-package statistics into one consolidated view.
package merge

import (
	"errors"

	"socialstats/internal/stats"
)

// ErrNoInput is returned when there is nothing to merge.
var ErrNoInput = errors.New("no stats to merge")

// Input is the stats tuple of one package.
type Input struct {
	Name     string
	OneSided bool
	Table    *stats.Table
	Daily    stats.Daily
	Hours    stats.Hours
	// SentHours is the outgoing-only histogram used by KeepOnlyMine.
	SentHours stats.Hours
}

func (in Input) clone() Input {
	out := in
	if in.Table != nil {
		out.Table = in.Table.Clone()
	} else {
		out.Table = stats.NewTable()
	}
	out.Daily = in.Daily.Clone()
	return out
}

// Result is the consolidated tuple.
type Result struct {
	Table *stats.Table
	Daily stats.Daily
	Hours stats.Hours

	// Applied is the strategy actually used. It is KeepAll when inputs do not
	// mix one-sided and two-sided packages, or when Estimate had no incoming
	// messages to derive a ratio from.
	Applied Strategy
	// Ratio is the outgoing/incoming ratio used by Estimate.
	Ratio float64
}

// Merge folds inputs in order, then folds alias groups. Inputs are not
// modified. Merging one input with no groups returns an equal tuple.
func Merge(inputs []Input, groups []Group, strategy Strategy) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, ErrNoInput
	}

	work := make([]Input, len(inputs))
	for i, in := range inputs {
		work[i] = in.clone()
	}

	res := Result{Applied: KeepAll}
	if NeedsStrategy(work) {
		switch strategy {
		case KeepOnlyMine:
			for i := range work {
				work[i] = keepOnlyMine(work[i])
			}
			res.Applied = KeepOnlyMine
		case Estimate:
			if r, ok := estimateRatio(work); ok {
				for i := range work {
					work[i] = estimate(work[i], r)
				}
				res.Applied, res.Ratio = Estimate, r
			}
		}
	}

	res.Table = stats.NewTable()
	res.Daily = stats.Daily{}
	for _, in := range work {
		res.Table = stats.Union(res.Table, in.Table)
		res.Daily = stats.UnionDaily(res.Daily, in.Daily)
		res.Hours = stats.UnionHours(res.Hours, in.Hours)
	}

	for _, g := range groups {
		res.Table, res.Daily = Fold(res.Table, res.Daily, g)
	}
	return res, nil
}

// Fold merges the rows of every contact in g into one row named after the
// canonical name. Counts and durations are summed, delay columns averaged.
// Daily entries of the group are summed under the canonical name. Fewer than
// two matching rows leave both inputs unchanged.
func Fold(t *stats.Table, d stats.Daily, g Group) (*stats.Table, stats.Daily) {
	names := g.set()
	idx := t.Find(names)
	if len(idx) < 2 {
		return t, d
	}

	out := t.Clone()
	merged := out.Row(idx[0])
	for j := range merged {
		cell := &merged[j]
		switch {
		case cell.Category == stats.Contact:
			cell.Value = stats.Text(g.Canonical())
		case cell.Value.Kind == stats.KindText:
			cell.Value = stats.Text("")
		default:
			for _, i := range idx[1:] {
				cell.Value = cell.Value.Add(out.Get(cell.Category, i))
			}
			if stats.IsDelay(cell.Category) {
				cell.Value = cell.Value.Div(len(idx))
			}
		}
	}
	out.RemoveRows(idx)
	out.Append(merged)

	return out, d.Rekey(names, g.Canonical())
}
