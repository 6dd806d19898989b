package merge

import (
	"fmt"

	"socialstats/internal/stats"
)

// Strategy decides how one-sided packages are reconciled with two-sided ones.
type Strategy string

const (
	// KeepAll merges figures as they are. Totals may double count where
	// platforms overlap.
	KeepAll Strategy = "keep-all"
	// KeepOnlyMine discards every incoming figure.
	KeepOnlyMine Strategy = "keep-mine"
	// Estimate fills in incoming counts of one-sided packages from the
	// outgoing/incoming ratio seen on two-sided ones.
	Estimate Strategy = "estimate"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case KeepAll, KeepOnlyMine, Estimate:
		return st, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (want %s, %s or %s)", s, KeepAll, KeepOnlyMine, Estimate)
}

// NeedsStrategy reports whether inputs mix one-sided and two-sided packages.
func NeedsStrategy(inputs []Input) bool {
	var one, two bool
	for _, in := range inputs {
		if in.OneSided {
			one = true
		} else {
			two = true
		}
	}
	return one && two
}

// keepOnlyMine drops the contact's side: Messages becomes the sent count,
// received figures are zeroed and bucket incoming counts are cleared.
func keepOnlyMine(in Input) Input {
	t := in.Table
	if t.Has(stats.MessagesSent) {
		t.Drop(stats.Messages)
		t.Rename(stats.MessagesSent, stats.Messages)
		t.Drop(stats.MessagesReceived)
	}
	for _, cat := range stats.Received {
		if kind, ok := t.Kind(cat); ok {
			for i := 0; i < t.Rows(); i++ {
				t.Set(cat, i, stats.Zero(kind))
			}
		}
	}
	for _, sp := range stats.Splits[1:] {
		if !t.Has(sp.Total) || !t.Has(sp.Sent) {
			continue
		}
		for i := 0; i < t.Rows(); i++ {
			t.Set(sp.Total, i, t.Get(sp.Sent, i))
		}
	}
	in.Daily = in.Daily.WithIncoming(func(int64) int64 { return 0 })
	in.Hours = in.SentHours
	return in
}

// estimateRatio returns total outgoing over total incoming across two-sided
// packages. ok is false when they hold no incoming messages.
func estimateRatio(inputs []Input) (r float64, ok bool) {
	var total stats.Pair
	for _, in := range inputs {
		if !in.OneSided {
			total = total.Add(in.Daily.Totals())
		}
	}
	if total.In == 0 {
		return 0, false
	}
	return float64(total.Out) / float64(total.In), true
}

// estimate sets incoming = round(outgoing * r) on a one-sided package, per
// contact and per day, and recomputes Messages.
func estimate(in Input, r float64) Input {
	if !in.OneSided {
		return in
	}
	t := in.Table
	if t.Has(stats.MessagesSent) {
		t.AddColumn(stats.MessagesReceived, stats.KindNumber)
		t.AddColumn(stats.Messages, stats.KindNumber)
		for i := 0; i < t.Rows(); i++ {
			sent := t.Get(stats.MessagesSent, i).Num
			recv := stats.RoundScale(sent, r)
			t.Set(stats.MessagesReceived, i, stats.Num(recv))
			t.Set(stats.Messages, i, stats.Num(sent+recv))
		}
	}
	in.Daily = in.Daily.WithIncoming(func(out int64) int64 { return stats.RoundScale(out, r) })
	return in
}
