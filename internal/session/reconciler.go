// Package session pairs call start and end events into completed voice sessions.
package session

import (
	"sort"
	"time"

	"socialstats/internal/model"
)

// VoiceSession is a call assembled from its half-events.
type VoiceSession struct {
	ChannelID string
	Start     *time.Time
	End       *time.Time
}

// Complete reports whether both halves were observed.
func (v VoiceSession) Complete() bool {
	return v.Start != nil && v.End != nil
}

// Duration returns End-Start for complete sessions and false otherwise.
func (v VoiceSession) Duration() (time.Duration, bool) {
	if !v.Complete() {
		return 0, false
	}
	return v.End.Sub(*v.Start), true
}

// Summary aggregates completed sessions.
type Summary struct {
	PerContact map[string]time.Duration
	Total      time.Duration
	Longest    time.Duration
	Completed  int
	Orphaned   int
}

// Reconciler accumulates half-events keyed by connection id.
// Halves may arrive in any order; each one only sets its own side.
type Reconciler struct {
	sessions map[string]*VoiceSession
}

// NewReconciler returns an empty Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{sessions: make(map[string]*VoiceSession)}
}

// Observe records one half-event.
func (r *Reconciler) Observe(h model.SessionHalf) {
	s, ok := r.sessions[h.ConnectionID]
	if !ok {
		s = &VoiceSession{}
		r.sessions[h.ConnectionID] = s
	}
	if h.ChannelID != "" {
		s.ChannelID = h.ChannelID
	}
	ts := h.Timestamp
	switch h.Kind {
	case model.Start:
		s.Start = &ts
	case model.End:
		s.End = &ts
	}
}

// Session returns the current state for a connection id.
func (r *Reconciler) Session(connectionID string) (VoiceSession, bool) {
	s, ok := r.sessions[connectionID]
	if !ok {
		return VoiceSession{}, false
	}
	return *s, true
}

// Len returns the number of connection ids seen, complete or not.
func (r *Reconciler) Len() int { return len(r.sessions) }

// Summarize totals completed sessions. Sessions whose channel is absent
// from channelContacts count toward Total and Longest only.
func (r *Reconciler) Summarize(channelContacts map[string]string) Summary {
	sum := Summary{PerContact: make(map[string]time.Duration)}

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		s := r.sessions[id]
		d, ok := s.Duration()
		if !ok {
			sum.Orphaned++
			continue
		}
		sum.Completed++
		sum.Total += d
		if d > sum.Longest {
			sum.Longest = d
		}
		if contact, ok := channelContacts[s.ChannelID]; ok {
			sum.PerContact[contact] += d
		}
	}
	return sum
}

// Reconcile is a convenience that feeds all halves and summarizes them.
func Reconcile(halves []model.SessionHalf, channelContacts map[string]string) Summary {
	r := NewReconciler()
	for _, h := range halves {
		r.Observe(h)
	}
	return r.Summarize(channelContacts)
}
