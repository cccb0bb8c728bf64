package ime

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Evdev codes used throughout the tests.
const (
	keyEsc       Key = 1
	key1         Key = 2
	key2         Key = 3
	key0         Key = 11
	keyBackspace Key = 14
	keyTab       Key = 15
	keyEnter     Key = 28
	keyA         Key = 30
	keyS         Key = 31
	keyD         Key = 32
	keyShiftL    Key = 42
	keyC         Key = 46
	keySpace     Key = 57
	keyF1        Key = 59
	keyUp        Key = 103
	keyLeft      Key = 105
	keyRight     Key = 106
	keyDown      Key = 108
	keyPageDown  Key = 109
)

const symF1 Sym = 0xffbe

func testKeymap() map[Key]Sym {
	return map[Key]Sym{
		keyEsc:       SymEscape,
		key1:         SymDigit1,
		key2:         SymDigit1 + 1,
		key0:         SymDigit0,
		keyBackspace: SymBackSpace,
		keyTab:       SymTab,
		keyEnter:     SymReturn,
		keyA:         'a',
		keyS:         's',
		keyD:         'd',
		keyShiftL:    SymShiftL,
		keyC:         'c',
		keySpace:     SymSpace,
		keyF1:        symF1,
		keyUp:        SymUp,
		keyLeft:      SymLeft,
		keyRight:     SymRight,
		keyDown:      SymDown,
		keyPageDown:  SymPageDown,
	}
}

// fakeEngine converts nothing: printable input lands in the buffer as is.
// Tests set buffer and bopomofo directly when they need real text.
type fakeEngine struct {
	buffer   []rune
	bopomofo string
	cursor   int
	ignored  bool

	commitReady bool
	commitText  string

	lists   [][]string
	listIdx int
	open    bool
	chosen  []int

	edits  []EditCommand
	resets int
}

func (e *fakeEngine) setBuffer(s string) {
	e.buffer = []rune(s)
	e.cursor = len(e.buffer)
}

func (e *fakeEngine) keystroke() {
	e.ignored = false
	e.commitReady = false
	e.commitText = ""
}

func (e *fakeEngine) Edit(cmd EditCommand) {
	e.keystroke()
	e.edits = append(e.edits, cmd)
	empty := len(e.buffer) == 0 && e.bopomofo == ""
	switch cmd {
	case EditEnter:
		if empty {
			e.ignored = true
			return
		}
		e.commitReady = true
		e.commitText = string(e.buffer)
		e.buffer, e.cursor = nil, 0
	case EditBackspace:
		switch {
		case e.bopomofo != "":
			r := []rune(e.bopomofo)
			e.bopomofo = string(r[:len(r)-1])
		case e.cursor > 0:
			e.buffer = append(e.buffer[:e.cursor-1], e.buffer[e.cursor:]...)
			e.cursor--
		default:
			e.ignored = true
		}
	case EditLeft:
		if e.cursor == 0 {
			e.ignored = true
			return
		}
		e.cursor--
	default:
		e.ignored = empty
	}
}

func (e *fakeEngine) Input(r rune) {
	e.keystroke()
	e.buffer = append(e.buffer[:e.cursor], append([]rune{r}, e.buffer[e.cursor:]...)...)
	e.cursor++
}

func (e *fakeEngine) Ignored() bool      { return e.ignored }
func (e *fakeEngine) Buffer() string     { return string(e.buffer) }
func (e *fakeEngine) Bopomofo() string   { return e.bopomofo }
func (e *fakeEngine) Cursor() int        { return e.cursor }
func (e *fakeEngine) CommitReady() bool  { return e.commitReady }
func (e *fakeEngine) CommitText() string { return e.commitText }

func (e *fakeEngine) OpenCandidates() {
	e.open = true
	e.listIdx = 0
}

func (e *fakeEngine) CloseCandidates() { e.open = false }

func (e *fakeEngine) CandidateCount() int {
	if !e.open || len(e.lists) == 0 {
		return 0
	}
	return len(e.lists[e.listIdx])
}

func (e *fakeEngine) Candidate(i int) string {
	return e.lists[e.listIdx][i]
}

func (e *fakeEngine) ChooseCandidate(i int) {
	e.chosen = append(e.chosen, i)
	e.setBuffer(e.lists[e.listIdx][i])
}

func (e *fakeEngine) NextCandidateList() {
	if len(e.lists) > 0 {
		e.listIdx = (e.listIdx + 1) % len(e.lists)
	}
}

func (e *fakeEngine) Reset() {
	e.resets++
	e.buffer, e.cursor, e.bopomofo = nil, 0, ""
	e.open = false
}

type fakeKeyboard struct {
	syms      map[Key]Sym
	mods      map[Modifier]bool
	noRepeat  map[Key]bool
	masks     [4]uint32
	changed   bool
	keymapErr error
}

func (k *fakeKeyboard) Sym(key Key) Sym           { return k.syms[key] }
func (k *fakeKeyboard) Active(mod Modifier) bool  { return k.mods[mod] }
func (k *fakeKeyboard) Repeats(key Key) bool      { return !k.noRepeat[key] }
func (k *fakeKeyboard) UpdateMask(d, l, lo, g uint32) {
	k.masks = [4]uint32{d, l, lo, g}
}

func (k *fakeKeyboard) SetKeymap(format uint32, fd int, size uint32) (bool, error) {
	return k.changed, k.keymapErr
}

// fakeProtocol records every request as a short string.
type fakeProtocol struct {
	ops      []string
	keys     []forwardedKey
	grabErr  error
	grabs    int
	deferred int
}

type forwardedKey struct {
	time    uint32
	key     Key
	pressed bool
}

func (p *fakeProtocol) record(format string, args ...any) {
	p.ops = append(p.ops, fmt.Sprintf(format, args...))
}

func (p *fakeProtocol) SetPreedit(text string, begin, end int) {
	p.record("preedit %q %d %d", text, begin, end)
}

func (p *fakeProtocol) CommitString(text string) { p.record("commit-string %q", text) }
func (p *fakeProtocol) Commit(serial uint32)     { p.record("commit %d", serial) }

func (p *fakeProtocol) ForwardKey(time uint32, key Key, pressed bool) {
	p.keys = append(p.keys, forwardedKey{time, key, pressed})
	p.record("key %d %t", key, pressed)
}

func (p *fakeProtocol) ForwardModifiers(d, l, lo, g uint32) {
	p.record("modifiers %d %d %d %d", d, l, lo, g)
}

func (p *fakeProtocol) ForwardKeymap(format uint32, fd int, size uint32) {
	p.record("keymap %d", size)
}

func (p *fakeProtocol) GrabKeyboard() error {
	p.grabs++
	p.record("grab")
	return p.grabErr
}

func (p *fakeProtocol) ReleaseKeyboard() { p.record("release-grab") }
func (p *fakeProtocol) Recover()         { p.record("recover") }
func (p *fakeProtocol) RunDeferred()     { p.deferred++ }

// count returns how many recorded requests start with prefix.
func (p *fakeProtocol) count(prefix string) int {
	n := 0
	for _, op := range p.ops {
		if len(op) >= len(prefix) && op[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type timerCall struct {
	generation      uint64
	delay, interval time.Duration
}

type fakeTimer struct {
	arms    []timerCall
	disarms int
	armErr  error
}

func (t *fakeTimer) Arm(generation uint64, delay, interval time.Duration) error {
	t.arms = append(t.arms, timerCall{generation, delay, interval})
	return t.armErr
}

func (t *fakeTimer) Disarm() error {
	t.disarms++
	return nil
}

type fakeIndicator struct {
	states []bool
}

func (i *fakeIndicator) SetForwarding(forwarding bool) {
	i.states = append(i.states, forwarding)
}

type fakeOverlay struct {
	shown []Snapshot
	hides int
}

func (o *fakeOverlay) Show(snap Snapshot) { o.shown = append(o.shown, snap) }
func (o *fakeOverlay) Hide()              { o.hides++ }

type harness struct {
	*Session
	engine    *fakeEngine
	keyboard  *fakeKeyboard
	proto     *fakeProtocol
	timer     *fakeTimer
	indicator *fakeIndicator
	overlay   *fakeOverlay
	now       time.Time
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		engine:    &fakeEngine{},
		keyboard:  &fakeKeyboard{syms: testKeymap(), mods: map[Modifier]bool{}, noRepeat: map[Key]bool{}},
		proto:     &fakeProtocol{},
		timer:     &fakeTimer{},
		indicator: &fakeIndicator{},
		overlay:   &fakeOverlay{},
		now:       time.Unix(1700000000, 0),
	}
	s, err := NewSession(Config{
		Engine:    h.engine,
		Keyboard:  h.keyboard,
		Protocol:  h.proto,
		Timer:     h.timer,
		Indicator: h.indicator,
		Overlay:   h.overlay,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Options:   opts,
		Clock:     func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.Session = s
	return h
}

// activate runs the activate/done handshake that grabs the keyboard.
func (h *harness) activate(t *testing.T) {
	t.Helper()
	require.NoError(t, h.Handle(ActivateEvent{}))
	require.NoError(t, h.Handle(DoneEvent{}))
}

func (h *harness) press(t *testing.T, key Key) Action {
	t.Helper()
	action, err := h.OnKey(h.stamp(), key, true)
	require.NoError(t, err)
	return action
}

func (h *harness) releaseKey(t *testing.T, key Key) {
	t.Helper()
	_, err := h.OnKey(h.stamp(), key, false)
	require.NoError(t, err)
}

func (h *harness) tap(t *testing.T, key Key) Action {
	t.Helper()
	action := h.press(t, key)
	h.releaseKey(t, key)
	return action
}

func (h *harness) stamp() uint32 {
	h.now = h.now.Add(10 * time.Millisecond)
	return uint32(h.now.UnixMilli())
}

var errTest = errors.New("test failure")
