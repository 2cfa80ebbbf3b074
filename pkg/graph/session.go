package graph

import "sync"

// Session holds the graph of one editing session. Operations are applied one
// at a time; Snapshot may be taken concurrently with editing and reflects
// every operation applied before it.
type Session struct {
	mu      sync.Mutex
	reducer *Reducer
	graph   Graph
}

// NewSession starts a session on a copy of initial.
func NewSession(initial Graph, ids IDGenerator) *Session {
	return &Session{
		reducer: NewReducer(ids),
		graph:   initial.Clone(),
	}
}

// Apply applies ops in order and returns the resulting graph.
func (s *Session) Apply(ops ...Operation) Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		s.graph = s.reducer.Apply(s.graph, op)
	}

	return s.graph.Clone()
}

// Snapshot returns a deep copy of the current graph.
func (s *Session) Snapshot() Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.graph.Clone()
}

// Replace discards the current graph in favour of g, as after a reload.
func (s *Session) Replace(g Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = g.Clone()
}
