package ime

import "slices"

// Owner tells which ledger list held a released key.
type Owner int

const (
	Unknown Owner = iota
	Forwarded
	Consumed
)

func (o Owner) String() string {
	switch o {
	case Forwarded:
		return "forwarded"
	case Consumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Ledger tracks the physical keys currently held down, split by who saw
// the press: the background application (forwarded) or the input method
// (consumed). A key is in at most one list at a time.
type Ledger struct {
	forwarded []Key
	consumed  []Key
}

// RecordForwarded notes that the press of key was sent on to the
// application. It returns false if the key is already tracked.
func (l *Ledger) RecordForwarded(key Key) bool {
	if l.Holds(key) {
		return false
	}
	l.forwarded = append(l.forwarded, key)
	return true
}

// RecordConsumed notes that the press of key was absorbed by the input
// method. It returns false if the key is already tracked.
func (l *Ledger) RecordConsumed(key Key) bool {
	if l.Holds(key) {
		return false
	}
	l.consumed = append(l.consumed, key)
	return true
}

// Holds reports whether key is in either list.
func (l *Ledger) Holds(key Key) bool {
	return slices.Contains(l.forwarded, key) || slices.Contains(l.consumed, key)
}

// Release removes key from whichever list holds it.
func (l *Ledger) Release(key Key) Owner {
	if i := slices.Index(l.forwarded, key); i >= 0 {
		l.forwarded = slices.Delete(l.forwarded, i, i+1)
		return Forwarded
	}
	if i := slices.Index(l.consumed, key); i >= 0 {
		l.consumed = slices.Delete(l.consumed, i, i+1)
		return Consumed
	}
	return Unknown
}

// DrainForwarded empties the forwarded list and returns its keys in press
// order, so the caller can synthesize a release for each.
func (l *Ledger) DrainForwarded() []Key {
	keys := l.forwarded
	l.forwarded = nil
	return keys
}

// DropConsumed forgets every consumed key. No release is owed for them.
func (l *Ledger) DropConsumed() {
	l.consumed = nil
}

// Len returns the number of forwarded and consumed keys.
func (l *Ledger) Len() (forwarded, consumed int) {
	return len(l.forwarded), len(l.consumed)
}
