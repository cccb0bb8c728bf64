package ime

// WindowSize is the number of candidates visible at once. Digit keys 1-9
// and 0 address the entries of this window.
const WindowSize = 10

// Snapshot is the read-only view of a candidate session handed to the
// overlay after every change.
type Snapshot struct {
	Selected int
	Total    int
	// Window holds the candidates starting at Selected, at most
	// WindowSize of them.
	Window []string
}

// CandidateSession is the selection state of an open engine candidate list.
// The total is always read from the engine, never cached.
type CandidateSession struct {
	engine   Engine
	selected int
}

func newCandidateSession(e Engine) *CandidateSession {
	return &CandidateSession{engine: e}
}

// Selected returns the index of the first visible (highlighted) candidate.
func (c *CandidateSession) Selected() int {
	return c.selected
}

// Total returns the engine's current candidate count.
func (c *CandidateSession) Total() int {
	return c.engine.CandidateCount()
}

// MoveBy shifts the selection by delta, clamped to the candidate range.
// It reports whether the selection changed.
func (c *CandidateSession) MoveBy(delta int) bool {
	total := c.Total()
	if total == 0 {
		return false
	}
	next := min(max(c.selected+delta, 0), total-1)
	if next == c.selected {
		return false
	}
	c.selected = next
	return true
}

// Commit chooses the candidate offset entries after the selection and
// closes the engine list. An index past the end is ignored and the session
// stays open; Commit then returns false.
func (c *CandidateSession) Commit(offset int) bool {
	index := c.selected + offset
	if offset < 0 || index >= c.Total() {
		return false
	}
	c.engine.ChooseCandidate(index)
	c.engine.CloseCandidates()
	return true
}

// Cancel closes the engine list without choosing anything.
func (c *CandidateSession) Cancel() {
	c.engine.CloseCandidates()
}

// NextList moves the engine to its next candidate list and selects the
// first entry.
func (c *CandidateSession) NextList() {
	c.engine.NextCandidateList()
	c.selected = 0
}

// Snapshot captures the visible window.
func (c *CandidateSession) Snapshot() Snapshot {
	total := c.Total()
	end := min(c.selected+WindowSize, total)
	window := make([]string, 0, max(end-c.selected, 0))
	for i := c.selected; i < end; i++ {
		window = append(window, c.engine.Candidate(i))
	}
	return Snapshot{Selected: c.selected, Total: total, Window: window}
}
