package ime

import "time"

// EditCommand is an editing key fed to the phonetic engine.
type EditCommand int

const (
	EditBackspace EditCommand = iota
	EditDelete
	EditEnter
	EditLeft
	EditRight
	EditUp
	EditHome
	EditEnd
	EditEscape
	EditSpace
	EditTab
)

// Engine is the phonetic conversion engine. All calls are synchronous and
// local; the engine owns its buffer, bopomofo and candidate state.
type Engine interface {
	// Edit feeds an editing command.
	Edit(cmd EditCommand)
	// Input feeds a printable ASCII keystroke as phonetic input.
	Input(r rune)
	// Ignored reports whether the last keystroke was not used by the engine.
	Ignored() bool

	// Buffer is the converted but uncommitted text.
	Buffer() string
	// Bopomofo is the phonetic spelling being typed.
	Bopomofo() string
	// Cursor is the cursor position in Buffer, counted in code points.
	Cursor() int

	// CommitReady reports whether CommitText holds text to commit.
	CommitReady() bool
	CommitText() string

	OpenCandidates()
	CloseCandidates()
	CandidateCount() int
	Candidate(index int) string
	ChooseCandidate(index int)
	// NextCandidateList switches to the next candidate list (different
	// phrase length), wrapping to the first one.
	NextCandidateList()

	Reset()
}

// Keyboard resolves physical keys against the compositor keymap and tracks
// modifier state.
type Keyboard interface {
	Sym(key Key) Sym
	Active(mod Modifier) bool
	Repeats(key Key) bool
	UpdateMask(depressed, latched, locked, group uint32)
	// SetKeymap loads the keymap shared through fd. It reports whether the
	// keymap differs from the one already loaded. The caller keeps
	// ownership of fd.
	SetKeymap(format uint32, fd int, size uint32) (changed bool, err error)
}

// Protocol is the input-method side of the compositor connection. Requests
// are fire-and-forget; the transport reports failures on its own.
type Protocol interface {
	SetPreedit(text string, begin, end int)
	CommitString(text string)
	Commit(serial uint32)

	ForwardKey(time uint32, key Key, pressed bool)
	ForwardModifiers(depressed, latched, locked, group uint32)
	ForwardKeymap(format uint32, fd int, size uint32)

	GrabKeyboard() error
	ReleaseKeyboard()

	// Recover recreates the input method object so clients that ignore an
	// empty preedit redraw it.
	Recover()
}

// Timer drives key repeat. Each expiry is delivered to the event loop as a
// RepeatEvent carrying the generation passed to Arm.
type Timer interface {
	Arm(generation uint64, delay, interval time.Duration) error
	Disarm() error
}

// Indicator shows the current mode outside the focused application.
type Indicator interface {
	SetForwarding(forwarding bool)
}

// Overlay displays the candidate session. It may read the snapshot between
// transitions but never mutates session state.
type Overlay interface {
	Show(snap Snapshot)
	Hide()
}

type nopIndicator struct{}

func (nopIndicator) SetForwarding(bool) {}

type nopOverlay struct{}

func (nopOverlay) Show(Snapshot) {}
func (nopOverlay) Hide()         {}
