// Package stats holds the per-contact statistics model and the aggregator
// that builds it from message events.
package stats

import (
	"strconv"
	"time"
)

// Kind is the type of a statistic column.
type Kind uint8

const (
	KindNumber Kind = iota
	KindDuration
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindDuration:
		return "duration"
	case KindText:
		return "text"
	default:
		return "number"
	}
}

// Value is a single cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	Num  int64
	Dur  time.Duration
	Text string
}

// Num returns a numeric value.
func Num(n int64) Value { return Value{Kind: KindNumber, Num: n} }

// Dur returns a duration value.
func Dur(d time.Duration) Value { return Value{Kind: KindDuration, Dur: d} }

// Text returns a string value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Zero returns the zero value of a kind.
func Zero(k Kind) Value { return Value{Kind: k} }

// Add sums two values of the same kind. Text values keep the receiver.
func (v Value) Add(o Value) Value {
	switch v.Kind {
	case KindNumber:
		return Num(v.Num + o.Num)
	case KindDuration:
		return Dur(v.Dur + o.Dur)
	default:
		return v
	}
}

// Div divides numeric and duration values by n, rounding numbers to nearest.
func (v Value) Div(n int) Value {
	if n <= 1 {
		return v
	}
	switch v.Kind {
	case KindNumber:
		q := v.Num / int64(n)
		if r := v.Num % int64(n); 2*r >= int64(n) {
			q++
		}
		return Num(q)
	case KindDuration:
		return Dur(v.Dur / time.Duration(n))
	default:
		return v
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatInt(v.Num, 10)
	case KindDuration:
		return v.Dur.String()
	default:
		return v.Text
	}
}
