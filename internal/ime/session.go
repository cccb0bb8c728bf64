package ime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrUnavailable is returned by Run when the compositor withdraws the
	// input method, typically because another one holds the seat.
	ErrUnavailable = errors.New("input method unavailable")

	// ErrGrabRefused is returned by Run when the keyboard grab fails.
	ErrGrabRefused = errors.New("keyboard grab refused")
)

// Options are the user-tunable parts of a session.
type Options struct {
	// ToggleKey switches modes when pressed with Ctrl.
	ToggleKey Sym
	// StartInEnglish starts the session in forwarding mode.
	StartInEnglish bool
	// RepeatRate and RepeatDelay replace the compositor's repeat settings
	// when positive.
	RepeatRate  int32
	RepeatDelay time.Duration
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{ToggleKey: SymSpace}
}

// Config wires a Session to its collaborators. Engine, Keyboard, Protocol
// and Timer are required.
type Config struct {
	Engine    Engine
	Keyboard  Keyboard
	Protocol  Protocol
	Timer     Timer
	Indicator Indicator
	Overlay   Overlay
	Logger    *slog.Logger
	Options   Options
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Session is the input method state for one seat: mode, held keys, the
// candidate session and the pending protocol output. A Session is owned by
// the goroutine running its loop and must not be shared.
type Session struct {
	engine    Engine
	keyboard  Keyboard
	proto     Protocol
	indicator Indicator
	overlay   Overlay
	log       *slog.Logger
	opts      Options

	mode   Mode
	ledger Ledger
	repeat repeater
	cand   *CandidateSession
	out    outbox

	lastPreedit string
	serial      uint32

	pendingActive bool
	active        bool
	// recovered is set once the input method object has been recreated;
	// the grab died with the old object.
	recovered bool

	// compositor repeat settings, before Options overrides
	baseRate  int32
	baseDelay time.Duration

	clock      func() time.Time
	epoch      time.Time
	timeOffset uint32
}

// NewSession validates cfg and returns a session in its initial mode.
func NewSession(cfg Config) (*Session, error) {
	switch {
	case cfg.Engine == nil:
		return nil, errors.New("session: engine is required")
	case cfg.Keyboard == nil:
		return nil, errors.New("session: keyboard is required")
	case cfg.Protocol == nil:
		return nil, errors.New("session: protocol is required")
	case cfg.Timer == nil:
		return nil, errors.New("session: timer is required")
	}
	if cfg.Indicator == nil {
		cfg.Indicator = nopIndicator{}
	}
	if cfg.Overlay == nil {
		cfg.Overlay = nopOverlay{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Options.ToggleKey == SymNone {
		cfg.Options.ToggleKey = SymSpace
	}

	s := &Session{
		engine:    cfg.Engine,
		keyboard:  cfg.Keyboard,
		proto:     cfg.Protocol,
		indicator: cfg.Indicator,
		overlay:   cfg.Overlay,
		log:       cfg.Logger,
		opts:      cfg.Options,
		repeat:    repeater{timer: cfg.Timer},
		clock:     cfg.Clock,
	}
	s.epoch = s.clock()
	s.mode.Forwarding = cfg.Options.StartInEnglish
	s.indicator.SetForwarding(s.mode.Forwarding)
	return s, nil
}

// Forwarding reports whether keys currently bypass composition.
func (s *Session) Forwarding() bool {
	return s.mode.Forwarding
}

// Candidates returns the open candidate session, or nil.
func (s *Session) Candidates() *CandidateSession {
	return s.cand
}

// Serial returns the number of done events seen so far.
func (s *Session) Serial() uint32 {
	return s.serial
}

// Held returns how many forwarded and consumed keys are still down.
func (s *Session) Held() (forwarded, consumed int) {
	return s.ledger.Len()
}

// deferrer is implemented by protocols that postpone object re-creation
// requested outside a compositor event.
type deferrer interface {
	RunDeferred()
}

// Run handles events one at a time until ctx is done, events is closed, or
// a fatal error occurs.
func (s *Session) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Handle(ev); err != nil {
				return err
			}
		}
	}
}

// Handle applies one event to completion, including any protocol output.
func (s *Session) Handle(ev Event) error {
	switch ev := ev.(type) {
	case Dispatched:
		defer close(ev.Done)
		if d, ok := s.proto.(deferrer); ok {
			d.RunDeferred()
		}
		return s.Handle(ev.Event)
	case KeyEvent:
		_, err := s.OnKey(ev.Time, ev.Key, ev.Pressed)
		return err
	case ModifiersEvent:
		s.keyboard.UpdateMask(ev.Depressed, ev.Latched, ev.Locked, ev.Group)
		s.proto.ForwardModifiers(ev.Depressed, ev.Latched, ev.Locked, ev.Group)
		return nil
	case KeymapEvent:
		return s.onKeymap(ev)
	case RepeatInfoEvent:
		s.baseRate = ev.Rate
		s.baseDelay = time.Duration(ev.Delay) * time.Millisecond
		return s.applyRepeat()
	case ActivateEvent:
		s.pendingActive = true
		return nil
	case DeactivateEvent:
		s.pendingActive = false
		return nil
	case DoneEvent:
		return s.onDone()
	case UnavailableEvent:
		return ErrUnavailable
	case RepeatEvent:
		return s.onRepeat(ev.Generation)
	case ToggleEvent:
		s.Toggle(!s.mode.Forwarding)
		return nil
	case OptionsEvent:
		s.opts = ev.Options
		if s.opts.ToggleKey == SymNone {
			s.opts.ToggleKey = SymSpace
		}
		return s.applyRepeat()
	default:
		return fmt.Errorf("session: unhandled event %T", ev)
	}
}

func (s *Session) onKeymap(ev KeymapEvent) error {
	if err := s.repeat.disarm(); err != nil {
		return err
	}
	changed, err := s.keyboard.SetKeymap(ev.Format, ev.Fd, ev.Size)
	if err != nil {
		s.log.Error("keymap rejected, keeping previous keymap", "error", err)
		return nil
	}
	if changed {
		s.proto.ForwardKeymap(ev.Format, ev.Fd, ev.Size)
		s.log.Debug("keymap updated", "size", ev.Size)
	}
	return nil
}

func (s *Session) applyRepeat() error {
	rate, delay := s.baseRate, s.baseDelay
	if s.opts.RepeatRate > 0 {
		rate = s.opts.RepeatRate
	}
	if s.opts.RepeatDelay > 0 {
		delay = s.opts.RepeatDelay
	}
	return s.repeat.setInfo(rate, delay)
}

func (s *Session) onDone() error {
	s.serial++
	switch {
	case s.pendingActive && (!s.active || s.recovered):
		if err := s.proto.GrabKeyboard(); err != nil {
			return fmt.Errorf("%w: %v", ErrGrabRefused, err)
		}
		if s.recovered {
			// releases that happened without a grab were never seen
			s.releaseHeld()
			s.recovered = false
		}
		s.log.Debug("activated", "serial", s.serial)
	case !s.pendingActive && s.active:
		if err := s.deactivate(); err != nil {
			return err
		}
		s.log.Debug("deactivated", "serial", s.serial)
	}
	s.active = s.pendingActive
	return nil
}

// deactivate drops the grab and everything tied to the focused client.
// Every key forwarded without its release gets a synthesized release so the
// application does not see it held forever.
func (s *Session) deactivate() error {
	s.proto.ReleaseKeyboard()
	s.recovered = false
	s.closeCandidates()
	s.engine.Reset()
	s.lastPreedit = ""
	s.out.reset()
	err := s.repeat.disarm()
	s.releaseHeld()
	return err
}

// releaseHeld empties the ledger, forwarding one release per forwarded key
// stamped relative to the last forwarded press.
func (s *Session) releaseHeld() {
	now := s.millis()
	for _, key := range s.ledger.DrainForwarded() {
		s.proto.ForwardKey(now-s.timeOffset, key, false)
	}
	s.ledger.DropConsumed()
	s.mode.ShiftOnly = false
}

func (s *Session) onRepeat(generation uint64) error {
	key, ok := s.repeat.current(generation)
	if !ok {
		return nil
	}
	if s.decide(s.keyboard.Sym(key)) != ArmTimerAndConsume {
		return s.repeat.disarm()
	}
	return nil
}

// millis is the session clock in milliseconds, wrapping like protocol
// timestamps.
func (s *Session) millis() uint32 {
	return uint32(s.clock().Sub(s.epoch) / time.Millisecond)
}
