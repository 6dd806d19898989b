package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"socialstats/internal/model"
)

// Date is a calendar day, independent of any time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Pair counts messages per direction.
type Pair struct {
	Out int64
	In  int64
}

// Add sums two pairs component-wise.
func (p Pair) Add(o Pair) Pair { return Pair{Out: p.Out + o.Out, In: p.In + o.In} }

// Total returns Out+In.
func (p Pair) Total() int64 { return p.Out + p.In }

// Daily maps a day to per-contact message counts.
type Daily map[Date]map[string]Pair

// Count increments the counter for one message.
func (d Daily) Count(day Date, contact string, dir model.Direction) {
	p := Pair{Out: 1}
	if dir == model.Incoming {
		p = Pair{In: 1}
	}
	d.Put(day, contact, p)
}

// Put adds p to the entry for (day, contact).
func (d Daily) Put(day Date, contact string, p Pair) {
	m, ok := d[day]
	if !ok {
		m = make(map[string]Pair)
		d[day] = m
	}
	m[contact] = m[contact].Add(p)
}

// Get returns the entry for (day, contact).
func (d Daily) Get(day Date, contact string) Pair {
	return d[day][contact]
}

// Dates returns all days in ascending order.
func (d Daily) Dates() []Date {
	out := make([]Date, 0, len(d))
	for day := range d {
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Contacts returns every contact name present, sorted.
func (d Daily) Contacts() []string {
	set := make(map[string]bool)
	for _, m := range d {
		for c := range m {
			set[c] = true
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Totals sums every entry.
func (d Daily) Totals() Pair {
	var p Pair
	for _, m := range d {
		for _, v := range m {
			p = p.Add(v)
		}
	}
	return p
}

// Clone returns a deep copy.
func (d Daily) Clone() Daily {
	out := make(Daily, len(d))
	for day, m := range d {
		cm := make(map[string]Pair, len(m))
		for c, p := range m {
			cm[c] = p
		}
		out[day] = cm
	}
	return out
}

// Equal reports whether both maps hold the same entries.
func (d Daily) Equal(o Daily) bool {
	if len(d) != len(o) {
		return false
	}
	for day, m := range d {
		om, ok := o[day]
		if !ok || len(om) != len(m) {
			return false
		}
		for c, p := range m {
			op, ok := om[c]
			if !ok || op != p {
				return false
			}
		}
	}
	return true
}

// UnionDaily returns a new map with entries of both; shared (day, contact)
// entries are summed component-wise.
func UnionDaily(a, b Daily) Daily {
	out := a.Clone()
	for day, m := range b {
		for c, p := range m {
			out.Put(day, c, p)
		}
	}
	return out
}

// Rekey returns a copy where every contact in names is summed under canonical.
func (d Daily) Rekey(names map[string]bool, canonical string) Daily {
	out := make(Daily, len(d))
	for day, m := range d {
		for c, p := range m {
			if names[c] {
				c = canonical
			}
			out.Put(day, c, p)
		}
	}
	return out
}

// WithIncoming returns a copy where each entry's In is replaced by f(Out).
func (d Daily) WithIncoming(f func(out int64) int64) Daily {
	out := d.Clone()
	for _, m := range out {
		for c, p := range m {
			m[c] = Pair{Out: p.Out, In: f(p.Out)}
		}
	}
	return out
}

// RoundScale returns round(n * r).
func RoundScale(n int64, r float64) int64 {
	return int64(math.Round(float64(n) * r))
}
