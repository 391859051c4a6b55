package app

import "github.com/dkeye/Pairline/internal/domain"

// Matchmaker owns the single waiting slot for random pairing.
// Not synchronized; the orchestrator serializes every call.
type Matchmaker struct {
	waiting domain.ConnID
}

func NewMatchmaker() *Matchmaker { return &Matchmaker{} }

// Request parks id in the slot, or takes the current waiter out of it.
// matched is false when id was parked (including when it already was).
func (m *Matchmaker) Request(id domain.ConnID) (waiter domain.ConnID, matched bool) {
	if m.waiting == "" || m.waiting == id {
		m.waiting = id
		return "", false
	}
	waiter = m.waiting
	m.waiting = ""
	return waiter, true
}

// Cancel clears the slot if id holds it.
func (m *Matchmaker) Cancel(id domain.ConnID) bool {
	if m.waiting == "" || m.waiting != id {
		return false
	}
	m.waiting = ""
	return true
}

func (m *Matchmaker) Waiting() (domain.ConnID, bool) {
	return m.waiting, m.waiting != ""
}
