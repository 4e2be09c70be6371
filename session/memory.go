package session

import "sync"

// InMemoryRepository is the fallback Repository used when SESSION_REPO_URL
// is unset, and in tests that check session upsert logic without a real
// BigQuery dataset. Insert on an existing session_id is a no-op, matching
// §4.10's "idempotent under session_id conflict" requirement.
type InMemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]Session)}
}

func (r *InMemoryRepository) Insert(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.SessionID]; exists {
		return nil
	}
	r.sessions[s.SessionID] = s
	return nil
}

func (r *InMemoryRepository) Update(sessionID string, m Mutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, exists := r.sessions[sessionID]
	if !exists {
		// Interim-Update/Stop for a session this process never saw a
		// Start for (e.g. after a restart). Nothing to update against;
		// this returns nil, so the accounting reply is unaffected.
		return nil
	}
	if m.InputOctets != nil {
		s.InputOctets = *m.InputOctets
	}
	if m.OutputOctets != nil {
		s.OutputOctets = *m.OutputOctets
	}
	if m.InputPackets != nil {
		s.InputPackets = *m.InputPackets
	}
	if m.OutputPackets != nil {
		s.OutputPackets = *m.OutputPackets
	}
	if m.SessionTime != nil {
		s.SessionTime = *m.SessionTime
	}
	if m.StopTime != nil {
		s.StopTime = m.StopTime
	}
	if m.TerminationCause != nil {
		s.TerminationCause = m.TerminationCause
	}
	r.sessions[sessionID] = s
	return nil
}

// Get exposes the current state of a session for tests.
func (r *InMemoryRepository) Get(sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}
