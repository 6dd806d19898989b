package stats

import (
	"time"

	"socialstats/internal/model"
)

// HourPolicy selects which messages feed the hour histogram.
type HourPolicy uint8

const (
	HoursAll HourPolicy = iota
	HoursOutgoing
)

// Options tunes one Aggregator.
type Options struct {
	// Location is where hours and calendar days are read. Defaults to UTC.
	Location *time.Location

	// MinMessages excludes contacts with fewer messages. 0 keeps everyone.
	MinMessages int

	Hours  HourPolicy
	Window *model.TimeFilter

	// Voice adds voice-clip duration columns.
	Voice bool
	// Delays adds average reply delay columns.
	Delays bool
}

// Totals summarizes what one package contributed.
type Totals struct {
	Messages   int64
	Characters int64

	// Excluded counts contacts dropped for being under MinMessages.
	Excluded int
	// OutOfWindow counts events dropped by the time window.
	OutOfWindow int
}

// Result is the stats tuple for one package.
type Result struct {
	Table *Table
	Daily Daily
	Hours Hours
	// SentHours counts outgoing messages only, whatever the hour policy.
	SentHours Hours
	Totals    Totals
}

// Aggregator folds conversations into a Result in a single pass.
// It is not safe for concurrent use.
type Aggregator struct {
	opts   Options
	table  *Table
	daily  Daily
	hours  Hours
	sent   Hours
	totals Totals
}

// NewAggregator returns an empty Aggregator.
func NewAggregator(opts Options) *Aggregator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Aggregator{opts: opts, table: NewTable(), daily: make(Daily)}
}

// sides indexes per-direction accumulators by model.Direction.
type sides[T any] [2]T

type contactAcc struct {
	msgs   sides[int64]
	chars  sides[int64]
	voice  sides[time.Duration]
	delays sides[[]time.Duration]
}

// Add folds one contact's conversation. It returns false when the contact
// is excluded by MinMessages, in which case nothing is recorded.
func (a *Aggregator) Add(conv model.Conversation) bool {
	events := conv.Events
	if a.opts.Window != nil {
		events = make([]model.MessageEvent, 0, len(conv.Events))
		for _, ev := range conv.Events {
			if a.opts.Window.Contains(ev.Timestamp) {
				events = append(events, ev)
			} else {
				a.totals.OutOfWindow++
			}
		}
	}
	if a.opts.MinMessages > 0 && len(events) < a.opts.MinMessages {
		a.totals.Excluded++
		return false
	}

	var acc contactAcc
	var prev *model.MessageEvent
	for i := range events {
		ev := &events[i]
		dir := ev.Direction
		local := ev.Timestamp.In(a.opts.Location)

		if a.opts.Hours == HoursAll || dir == model.Outgoing {
			a.hours[local.Hour()]++
		}
		if dir == model.Outgoing {
			a.sent[local.Hour()]++
		}
		a.daily.Count(DateOf(local), conv.Contact, dir)

		acc.msgs[dir]++
		acc.chars[dir] += int64(ev.Chars)

		if prev != nil && prev.Direction != dir {
			acc.delays[dir] = append(acc.delays[dir], absDuration(ev.Timestamp.Sub(prev.Timestamp)))
		}
		prev = ev

		if ev.Voice != nil {
			acc.voice[dir] += *ev.Voice
		}

		a.totals.Messages++
		a.totals.Characters += int64(ev.Chars)
	}

	a.table.Append(a.row(conv.Contact, &acc))
	return true
}

// Result returns the accumulated tuple. The Aggregator must not be reused.
func (a *Aggregator) Result() Result {
	return Result{Table: a.table, Daily: a.daily, Hours: a.hours, SentHours: a.sent, Totals: a.totals}
}

func (a *Aggregator) row(contact string, acc *contactAcc) Row {
	out, in := model.Outgoing, model.Incoming
	row := Row{
		{Contact, Text(contact)},
		{Messages, Num(acc.msgs[out] + acc.msgs[in])},
		{MessagesSent, Num(acc.msgs[out])},
		{MessagesReceived, Num(acc.msgs[in])},
		{Characters, Num(acc.chars[out] + acc.chars[in])},
		{CharactersSent, Num(acc.chars[out])},
		{CharactersReceived, Num(acc.chars[in])},
	}
	if a.opts.Voice {
		row = append(row,
			Cell{VoiceTime, Dur(acc.voice[out] + acc.voice[in])},
			Cell{VoiceSent, Dur(acc.voice[out])},
			Cell{VoiceReceived, Dur(acc.voice[in])},
		)
	}
	if a.opts.Delays {
		row = append(row,
			Cell{DelaySent, Dur(mean(acc.delays[out]))},
			Cell{DelayReceived, Dur(mean(acc.delays[in]))},
		)
	}
	return row
}

func mean(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	return sum / time.Duration(len(samples))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
