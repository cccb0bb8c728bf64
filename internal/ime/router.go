package ime

import "fmt"

// Action is the outcome of a key press.
type Action int

const (
	// Forward passes the key to the application through the virtual keyboard.
	Forward Action = iota
	// ArmTimerAndConsume keeps the key and repeats it while held.
	ArmTimerAndConsume
	// Consume keeps the key without repeating it.
	Consume
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case ArmTimerAndConsume:
		return "arm-timer-and-consume"
	case Consume:
		return "consume"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

var editKeys = map[Sym]EditCommand{
	SymBackSpace: EditBackspace,
	SymDelete:    EditDelete,
	SymKPDelete:  EditDelete,
	SymReturn:    EditEnter,
	SymKPEnter:   EditEnter,
	SymLeft:      EditLeft,
	SymKPLeft:    EditLeft,
	SymRight:     EditRight,
	SymKPRight:   EditRight,
	SymUp:        EditUp,
	SymKPUp:      EditUp,
	SymHome:      EditHome,
	SymKPHome:    EditHome,
	SymEnd:       EditEnd,
	SymKPEnd:     EditEnd,
	SymEscape:    EditEscape,
	SymSpace:     EditSpace,
	SymTab:       EditTab,
}

// OnKey routes one physical key transition. Presses are classified and
// recorded in the ledger; releases follow whatever their press did.
func (s *Session) OnKey(time uint32, key Key, pressed bool) (Action, error) {
	if !pressed {
		return Consume, s.release(time, key)
	}
	if s.ledger.Holds(key) {
		// the release was lost, e.g. while the grab was being recreated
		owner := s.ledger.Release(key)
		if owner == Forwarded {
			s.proto.ForwardKey(time, key, false)
		}
		s.log.Debug("press of a held key", "key", key, "owner", owner)
	}

	action := s.decide(s.keyboard.Sym(key))
	switch action {
	case Forward:
		s.proto.ForwardKey(time, key, true)
		s.ledger.RecordForwarded(key)
		s.timeOffset = s.millis() - time
		if err := s.repeat.disarm(); err != nil {
			return action, err
		}
	case Consume:
		s.ledger.RecordConsumed(key)
	case ArmTimerAndConsume:
		s.ledger.RecordConsumed(key)
		if s.keyboard.Repeats(key) {
			if err := s.repeat.arm(key); err != nil {
				return action, err
			}
		}
	}
	return action, nil
}

func (s *Session) release(time uint32, key Key) error {
	var err error
	if s.repeat.releases(key) {
		err = s.repeat.disarm()
	}

	owner := s.ledger.Release(key)
	if s.keyboard.Sym(key).IsShift() && s.mode.ShiftOnly {
		s.mode.ShiftOnly = false
		s.Toggle(!s.mode.Forwarding)
		return err
	}
	switch owner {
	case Forwarded:
		s.proto.ForwardKey(time, key, false)
	case Unknown:
		s.log.Debug("release without press", "key", key)
	}
	return err
}

// decide classifies a press of sym and applies its composition side
// effects. It does no ledger or timer bookkeeping, so repeats re-enter it.
func (s *Session) decide(sym Sym) Action {
	s.mode.ShiftOnly = false

	switch {
	case s.keyboard.Active(ModAlt), s.keyboard.Active(ModLogo):
		return Forward
	case s.keyboard.Active(ModCtrl):
		if sym == s.opts.ToggleKey {
			s.Toggle(!s.mode.Forwarding)
			return ArmTimerAndConsume
		}
		return Forward
	case sym.IsShift():
		s.mode.ShiftOnly = true
		return Consume
	case s.mode.Forwarding:
		return Forward
	case s.cand != nil:
		s.candidateKey(sym)
		return ArmTimerAndConsume
	}
	return s.engineKey(sym)
}

func (s *Session) engineKey(sym Sym) Action {
	switch cmd, isEdit := editKeys[sym]; {
	case isEdit:
		s.engine.Edit(cmd)
	case sym.IsPrintable():
		s.engine.Input(rune(sym))
	case sym == SymDown || sym == SymKPDown:
		return s.openCandidates()
	default:
		if s.engine.Buffer() == "" && s.engine.Bopomofo() == "" {
			return Forward
		}
		return Consume
	}

	if s.engine.Ignored() {
		return Forward
	}
	s.publishComposition()
	return ArmTimerAndConsume
}

func (s *Session) openCandidates() Action {
	s.engine.OpenCandidates()
	if s.engine.CandidateCount() == 0 {
		s.engine.CloseCandidates()
		return Forward
	}
	s.cand = newCandidateSession(s.engine)
	s.overlay.Show(s.cand.Snapshot())
	return ArmTimerAndConsume
}

// candidateKey applies a press while a candidate session is open. Keys
// without a meaning in the session are swallowed.
func (s *Session) candidateKey(sym Sym) {
	c := s.cand
	if offset, ok := sym.Digit(); ok {
		s.commitCandidate(offset)
		return
	}

	var moved bool
	switch sym {
	case SymLeft, SymKPLeft:
		moved = c.MoveBy(-1)
	case SymRight, SymKPRight:
		moved = c.MoveBy(1)
	case SymPageUp, SymKPPageUp:
		moved = c.MoveBy(-WindowSize)
	case SymPageDown, SymKPPageDown, SymSpace:
		moved = c.MoveBy(WindowSize)
	case SymDown, SymKPDown:
		c.NextList()
		moved = true
	case SymUp, SymKPUp, SymEscape:
		s.closeCandidates()
	case SymReturn, SymKPEnter:
		s.commitCandidate(0)
	}
	if moved {
		s.overlay.Show(c.Snapshot())
	}
}

func (s *Session) commitCandidate(offset int) {
	if !s.cand.Commit(offset) {
		s.log.Debug("candidate out of range", "selected", s.cand.Selected(), "offset", offset)
		return
	}
	s.endCandidates()
	s.publishComposition()
}

// closeCandidates cancels the open candidate session, if any.
func (s *Session) closeCandidates() {
	if s.cand == nil {
		return
	}
	s.cand.Cancel()
	s.endCandidates()
}

func (s *Session) endCandidates() {
	s.cand = nil
	s.overlay.Hide()
}
