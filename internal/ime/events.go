package ime

// Event is one input to the session loop. The set of variants is closed;
// Session.Run switches over all of them.
type Event interface {
	event()
}

// KeyEvent is a physical key transition from the keyboard grab.
type KeyEvent struct {
	Time    uint32
	Key     Key
	Pressed bool
}

// ModifiersEvent carries the compositor's modifier masks.
type ModifiersEvent struct {
	Depressed, Latched, Locked, Group uint32
}

// KeymapEvent hands over a keymap file descriptor. The sender keeps
// ownership of Fd and closes it after the event is handled.
type KeymapEvent struct {
	Format uint32
	Fd     int
	Size   uint32
}

// RepeatInfoEvent carries the compositor's key repeat settings.
type RepeatInfoEvent struct {
	Rate  int32 // per second
	Delay int32 // milliseconds
}

// ActivateEvent and DeactivateEvent are applied on the next DoneEvent.
type ActivateEvent struct{}

type DeactivateEvent struct{}

// DoneEvent ends a batch of input-method state and bumps the serial.
type DoneEvent struct{}

// UnavailableEvent means another input method took the seat.
type UnavailableEvent struct{}

// RepeatEvent is a repeat timer expiry for the given arming generation.
type RepeatEvent struct {
	Generation uint64
}

// ToggleEvent asks for a mode switch from outside the keyboard, e.g. a
// click on the tray icon.
type ToggleEvent struct{}

// OptionsEvent replaces the session options after a configuration reload.
type OptionsEvent struct {
	Options Options
}

// Dispatched wraps an event read from the compositor connection. The loop
// closes Done after handling Event; the reader waits for it, so protocol
// objects are only created or destroyed while the reader is parked.
type Dispatched struct {
	Event Event
	Done  chan<- struct{}
}

func (KeyEvent) event()         {}
func (ModifiersEvent) event()   {}
func (KeymapEvent) event()      {}
func (RepeatInfoEvent) event()  {}
func (ActivateEvent) event()    {}
func (DeactivateEvent) event()  {}
func (DoneEvent) event()        {}
func (UnavailableEvent) event() {}
func (RepeatEvent) event()      {}
func (ToggleEvent) event()      {}
func (OptionsEvent) event()     {}
func (Dispatched) event()       {}
