package stats

// Hours counts messages per hour of day.
type Hours [24]int64

// Total returns the sum of all slots.
func (h Hours) Total() int64 {
	var n int64
	for _, v := range h {
		n += v
	}
	return n
}

// UnionHours adds two histograms slot by slot.
func UnionHours(a, b Hours) Hours {
	var out Hours
	for i := range out {
		out[i] = a[i] + b[i]
	}
	return out
}
