package analyzer

import "github.com/blackwell-systems/cceval/internal/session"

// CountInteractions counts human prompts. Sub-agent turns are never
// prompts, whether or not agents are included.
func CountInteractions(s *session.Session) InteractionCount {
	var c InteractionCount
	for _, t := range s.Turns {
		if session.IsPrompt(t) {
			c.Count++
		}
	}
	return c
}
