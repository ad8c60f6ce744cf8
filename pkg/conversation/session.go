package conversation

import "sync"

// session is one user's conversation. mu serializes turns.
type session struct {
	mu sync.Mutex
	// transcript holds the user's messages, oldest first
	transcript []string
	// pendingBase is the question an outstanding clarification refers to
	pendingBase string
}

func (s *session) append(message string, limit int) {
	s.transcript = append(s.transcript, message)

	if limit > 0 && len(s.transcript) > limit {
		s.transcript = append([]string(nil), s.transcript[len(s.transcript)-limit:]...)
	}
}

func (s *session) reset() {
	s.transcript = nil
	s.pendingBase = ""
}

func (s *session) snapshot() []string {
	return append([]string(nil), s.transcript...)
}
