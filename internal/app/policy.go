package app

import "fmt"

type BackpressureAction int

const (
	DropMessage BackpressureAction = iota
	KickConnection
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(conn Connection) BackpressureAction
}

// DropPolicy loses the message; signaling recovers through renegotiation.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(Connection) BackpressureAction { return DropMessage }

// KickPolicy closes the slow connection so its disconnect lifecycle runs.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(Connection) BackpressureAction { return KickConnection }

// PolicyByName maps the slow_consumer config value to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown slow consumer policy %q", name)
}
