package analyzer

import (
	"time"

	"github.com/blackwell-systems/cceval/internal/session"
)

// ComputeTiming measures latency to the first response and the total time
// spent in responses.
//
// A response's time is its explicit duration when the record carries one,
// otherwise the gap to the next turn. The final turn has no successor, so it
// contributes nothing unless the session has an explicit end time.
func ComputeTiming(s *session.Session) TimingMetrics {
	var m TimingMetrics

	if p, ok := s.FirstPrompt(); ok {
		if r, ok := s.FirstResponse(); ok {
			m.FirstResponseLatency = nonNegative(s.Turns[r].Timestamp.Sub(s.Turns[p].Timestamp))
			m.LatencyDefined = true
		}
	}

	for i, t := range s.Turns {
		if !s.IsResponse(t) {
			continue
		}
		m.ResponseTurns++
		switch {
		case t.HasDuration:
			m.TotalReasoningTime += t.Duration
		case i+1 < len(s.Turns):
			m.TotalReasoningTime += nonNegative(s.Turns[i+1].Timestamp.Sub(t.Timestamp))
		case !s.EndedAt.IsZero():
			m.TotalReasoningTime += nonNegative(s.EndedAt.Sub(t.Timestamp))
		}
	}
	return m
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
