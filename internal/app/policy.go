package app

import "fmt"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a recipient whose send queue is full.
type Policy interface {
	OnBackPressure(target *Conn) BackpressureAction
}

// SimplePolicy disconnects slow consumers: a peer that cannot keep up
// with signaling will not complete negotiation either.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(*Conn) BackpressureAction {
	return KickMember
}

type DropPolicy struct{}

func (DropPolicy) OnBackPressure(*Conn) BackpressureAction {
	return DropFrame
}

func NewPolicy(name string) (Policy, error) {
	switch name {
	case "", "kick":
		return SimplePolicy{}, nil
	case "drop":
		return DropPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
