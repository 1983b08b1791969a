package analyzer

import (
	"fmt"

	"github.com/blackwell-systems/cceval/internal/session"
)

// ClassifyCompletion decides whether the session's first request was
// completed on the first attempt. A non-nil override is returned as the
// verdict without looking at the transcript.
//
// Otherwise every human prompt after the first response is scanned for a
// vocabulary term; the first hit means the user had to ask for a fix. A
// session with no response, or nothing after it, counts as completed.
func ClassifyCompletion(s *session.Session, vocab Vocabulary, override *bool) CompletionVerdict {
	if override != nil {
		return CompletionVerdict{
			FirstCompleted: *override,
			Provenance:     ProvenanceOverride,
			TurnIndex:      -1,
			Detail:         "set by caller",
		}
	}

	v := CompletionVerdict{
		FirstCompleted:    true,
		Provenance:        ProvenanceHeuristic,
		TurnIndex:         -1,
		VocabularyVersion: vocab.Version,
	}

	first, ok := s.FirstResponse()
	if !ok {
		v.Detail = "no response to the first prompt"
		return v
	}

	for _, t := range s.Turns[first+1:] {
		if !session.IsPrompt(t) {
			continue
		}
		if term, hit := vocab.Match(t.Text); hit {
			v.FirstCompleted = false
			v.MatchedTerm = term
			v.TurnIndex = t.Index
			v.Detail = fmt.Sprintf("follow-up at record %d contains %q", t.Index, term)
			return v
		}
	}
	v.Detail = "no correction after the first response"
	return v
}
