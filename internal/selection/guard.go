package selection

import "sync"

// Ticket identifies the selection a request was issued for.
type Ticket struct {
	generation uint64
}

// Guard discards responses that resolve after the selection moved on.
type Guard struct {
	mu      sync.Mutex
	current uint64
}

// Begin records s as the current selection and returns its ticket.
func (g *Guard) Begin(s State) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s.Generation > g.current {
		g.current = s.Generation
	}
	return Ticket{generation: s.Generation}
}

// Advance records a newer selection without issuing a request.
func (g *Guard) Advance(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s.Generation > g.current {
		g.current = s.Generation
	}
}

// Accept reports whether t still matches the latest selection.
func (g *Guard) Accept(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.generation == g.current
}
