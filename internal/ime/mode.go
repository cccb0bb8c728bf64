package ime

// Mode is the composition mode of a session.
type Mode struct {
	// Forwarding passes every key through to the application.
	Forwarding bool
	// ShiftOnly is set while a Shift key is down and no other key has been
	// pressed since, so its release is a bare tap.
	ShiftOnly bool
}

// Toggle switches to forwarding or composition mode. Switching to the mode
// already in effect does nothing. Entering forwarding mode commits any
// pending text, so nothing typed is lost.
func (s *Session) Toggle(forwarding bool) {
	if s.mode.Forwarding == forwarding {
		return
	}
	s.mode.Forwarding = forwarding
	if forwarding {
		s.closeCandidates()
		if s.engine.Buffer() != "" {
			s.engine.Edit(EditEnter)
			if s.engine.CommitReady() {
				s.out.commit(s.engine.CommitText())
			}
		}
		s.engine.Reset()
		s.out.setPreedit(preedit{})
		s.flush(true)
	}
	s.indicator.SetForwarding(forwarding)
	s.log.Info("mode changed", "forwarding", forwarding)
}

// outbox collects the protocol requests of one transition so they are sent
// together and applied by a single commit.
type outbox struct {
	commits []string
	preedit *preedit
}

func (o *outbox) commit(text string) {
	if text != "" {
		o.commits = append(o.commits, text)
	}
}

func (o *outbox) setPreedit(p preedit) {
	o.preedit = &p
}

func (o *outbox) empty() bool {
	return len(o.commits) == 0 && o.preedit == nil
}

func (o *outbox) reset() {
	o.commits = nil
	o.preedit = nil
}

// flush sends the queued commit strings, then the preedit, then one commit
// request. The recovery hook runs when the preedit becomes empty or when
// recover is set.
func (s *Session) flush(recover bool) {
	if s.out.empty() && !recover {
		return
	}
	for _, text := range s.out.commits {
		s.proto.CommitString(text)
	}
	if p := s.out.preedit; p != nil {
		s.proto.SetPreedit(p.text, p.begin, p.end)
		if p.text == "" && s.lastPreedit != "" {
			recover = true
		}
		s.lastPreedit = p.text
	}
	s.proto.Commit(s.serial)
	s.out.reset()
	if recover {
		s.proto.Recover()
		s.recovered = true
	}
}

// publishComposition queues the engine's current preedit and any text the
// engine has committed, then flushes.
func (s *Session) publishComposition() {
	if s.engine.CommitReady() {
		s.out.commit(s.engine.CommitText())
	}
	s.out.setPreedit(composeFrom(s.engine))
	s.flush(false)
}
