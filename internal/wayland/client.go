// Package wayland speaks input-method-unstable-v2 and
// virtual-keyboard-unstable-v1 to the compositor over go-wayland.
//
// Events are read on the goroutine running Client.Run and handed to the
// session loop as ime.Dispatched values. The reader waits until the loop
// has handled each one, so protocol objects are created and destroyed only
// while no message is being read.
package wayland

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"wlchewing/internal/ime"
)

// ErrMissingGlobal is returned when the compositor lacks a required protocol.
var ErrMissingGlobal = errors.New("wayland: required global not advertised")

// Client implements ime.Protocol.
type Client struct {
	conn      conn
	closeConn func() error
	events    chan<- ime.Event
	log       *slog.Logger

	seat      client.Proxy
	imManager *object
	vkManager *object
	im        *inputMethod
	grab      *keyboardGrab
	vk        *object

	// retired holds destroyed objects until the compositor acknowledges
	// their ids with wl_display.delete_id. Events already in flight for
	// them are dropped instead of failing the dispatch.
	retiredMu sync.Mutex
	retired   map[uint32]client.Proxy

	// parked is set while the reader waits for the loop to handle an event.
	parked         atomic.Bool
	recoverPending bool
	writeFailed    bool

	stop     chan struct{}
	stopOnce sync.Once
	dispatch func() error
}

var _ ime.Protocol = (*Client)(nil)

func newClient(c conn, events chan<- ime.Event, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		conn:   c,
		events: events,
		log:     log,
		retired: make(map[uint32]client.Proxy),
		stop:    make(chan struct{}),
	}
}

// Connect binds the seat and both protocol managers on the default display
// and creates the input method and virtual keyboard. Events go to events
// once Run is called.
func Connect(events chan<- ime.Event, log *slog.Logger) (*Client, error) {
	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	ctx := display.Context()
	c := newClient(ctx, events, log)
	c.closeConn = ctx.Close
	c.dispatch = ctx.Dispatch

	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		c.log.Error("protocol error", "code", e.Code, "message", e.Message)
	})
	display.SetDeleteIdHandler(func(e client.DisplayDeleteIdEvent) {
		c.onDeleteID(e.Id)
	})

	if err := c.bindGlobals(display); err != nil {
		ctx.Close()
		return nil, err
	}
	if err := c.createObjects(); err != nil {
		ctx.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) bindGlobals(display *client.Display) error {
	registry, err := display.GetRegistry()
	if err != nil {
		return fmt.Errorf("failed to get registry: %w", err)
	}
	globals := make(map[string]client.RegistryGlobalEvent)
	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case seatInterface, inputMethodManagerInterface, virtualKeyboardManagerInterface:
			// first seat wins
			if _, ok := globals[e.Interface]; !ok {
				globals[e.Interface] = e
			}
		}
	})
	if err := roundtrip(display); err != nil {
		return err
	}

	for _, name := range []string{seatInterface, inputMethodManagerInterface, virtualKeyboardManagerInterface} {
		if _, ok := globals[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingGlobal, name)
		}
	}

	seat := client.NewSeat(display.Context())
	c.imManager = &object{}
	c.conn.Register(c.imManager)
	c.vkManager = &object{}
	c.conn.Register(c.vkManager)

	for _, b := range []struct {
		iface string
		proxy client.Proxy
	}{
		{seatInterface, seat},
		{inputMethodManagerInterface, c.imManager},
		{virtualKeyboardManagerInterface, c.vkManager},
	} {
		g := globals[b.iface]
		if err := registry.Bind(g.Name, g.Interface, 1, b.proxy); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b.iface, err)
		}
	}
	c.seat = seat
	return roundtrip(display)
}

// roundtrip dispatches until the compositor has processed every request
// sent so far.
func roundtrip(display *client.Display) error {
	cb, err := display.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync display: %w", err)
	}
	defer cb.Destroy()

	done := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })
	for !done {
		if err := display.Context().Dispatch(); err != nil {
			return fmt.Errorf("failed to dispatch: %w", err)
		}
	}
	return nil
}

func (c *Client) createObjects() error {
	c.im = &inputMethod{c: c}
	c.conn.Register(c.im)
	if err := c.write(newRequest(c.imManager.ID(), imManagerGetInputMethod).
		putUint32(c.seat.ID()).putUint32(c.im.ID()), nil); err != nil {
		return fmt.Errorf("failed to create input method: %w", err)
	}

	c.vk = &object{}
	c.conn.Register(c.vk)
	if err := c.write(newRequest(c.vkManager.ID(), vkManagerCreate).
		putUint32(c.seat.ID()).putUint32(c.vk.ID()), nil); err != nil {
		return fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	return nil
}

// Run reads compositor events until the connection fails or Close is
// called.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.stop:
		}
	}()
	for {
		if err := c.dispatch(); err != nil {
			select {
			case <-c.stop:
				return nil
			default:
			}
			return fmt.Errorf("wayland dispatch: %w", err)
		}
	}
}

// post hands ev to the loop and waits until it has been handled.
func (c *Client) post(ev ime.Event) {
	done := make(chan struct{})
	c.parked.Store(true)
	defer c.parked.Store(false)

	select {
	case c.events <- ime.Dispatched{Event: ev, Done: done}:
	case <-c.stop:
		return
	}
	select {
	case <-done:
	case <-c.stop:
	}
}

func (c *Client) onInputMethod(im *inputMethod, opcode uint32, data []byte) {
	if im != c.im {
		return
	}
	switch opcode {
	case imEventActivate:
		c.post(ime.ActivateEvent{})
	case imEventDeactivate:
		c.post(ime.DeactivateEvent{})
	case imEventDone:
		c.post(ime.DoneEvent{})
	case imEventUnavailable:
		c.post(ime.UnavailableEvent{})
	}
}

func (c *Client) onGrab(g *keyboardGrab, opcode uint32, fd int, data []byte) {
	if opcode == grabEventKeymap {
		defer unix.Close(fd)
	}
	if g != c.grab {
		return
	}

	d := decoder{data: data}
	var ev ime.Event
	switch opcode {
	case grabEventKeymap:
		format := d.uint32()
		size := d.uint32()
		ev = ime.KeymapEvent{Format: format, Fd: fd, Size: size}
	case grabEventKey:
		d.uint32() // serial
		time := d.uint32()
		key := d.uint32()
		state := d.uint32()
		ev = ime.KeyEvent{Time: time, Key: ime.Key(key), Pressed: state == keyStatePressed}
	case grabEventModifiers:
		d.uint32() // serial
		ev = ime.ModifiersEvent{Depressed: d.uint32(), Latched: d.uint32(), Locked: d.uint32(), Group: d.uint32()}
	case grabEventRepeatInfo:
		ev = ime.RepeatInfoEvent{Rate: d.int32(), Delay: d.int32()}
	default:
		return
	}
	if d.err != nil {
		c.log.Error("malformed keyboard grab event", "opcode", opcode, "error", d.err)
		return
	}
	c.post(ev)
}

// write sends one request. Failures are logged once; the reader sees the
// broken connection and ends Run.
func (c *Client) write(r *request, oob []byte) error {
	err := c.conn.WriteMsg(r.bytes(), oob)
	if err != nil && !c.writeFailed {
		c.writeFailed = true
		c.log.Error("request failed", "error", err)
	}
	return err
}

func (c *Client) SetPreedit(text string, begin, end int) {
	c.write(newRequest(c.im.ID(), imSetPreeditString).
		putString(text).putInt32(int32(begin)).putInt32(int32(end)), nil)
}

func (c *Client) CommitString(text string) {
	c.write(newRequest(c.im.ID(), imCommitString).putString(text), nil)
}

func (c *Client) Commit(serial uint32) {
	c.write(newRequest(c.im.ID(), imCommit).putUint32(serial), nil)
}

func (c *Client) ForwardKey(time uint32, key ime.Key, pressed bool) {
	state := keyStateReleased
	if pressed {
		state = keyStatePressed
	}
	c.write(newRequest(c.vk.ID(), vkKey).putUint32(time).putUint32(uint32(key)).putUint32(state), nil)
}

func (c *Client) ForwardModifiers(depressed, latched, locked, group uint32) {
	c.write(newRequest(c.vk.ID(), vkModifiers).
		putUint32(depressed).putUint32(latched).putUint32(locked).putUint32(group), nil)
}

// ForwardKeymap shares fd with the virtual keyboard. fd stays open.
func (c *Client) ForwardKeymap(format uint32, fd int, size uint32) {
	c.write(newRequest(c.vk.ID(), vkKeymap).putUint32(format).putUint32(size), unix.UnixRights(fd))
}

func (c *Client) GrabKeyboard() error {
	g := &keyboardGrab{c: c}
	c.conn.Register(g)
	if err := c.write(newRequest(c.im.ID(), imGrabKeyboard).putUint32(g.ID()), nil); err != nil {
		c.conn.Unregister(g)
		return err
	}
	c.grab = g
	return nil
}

func (c *Client) ReleaseKeyboard() {
	if c.grab == nil {
		return
	}
	c.write(newRequest(c.grab.ID(), grabRelease), nil)
	c.retire(c.grab)
	c.grab = nil
}

// Recover destroys the input method and creates a new one. Outside of a
// compositor event it is postponed to RunDeferred.
func (c *Client) Recover() {
	if !c.parked.Load() {
		c.recoverPending = true
		return
	}
	c.recreate()
}

// RunDeferred performs a postponed Recover. The loop calls it before
// handling each compositor event.
func (c *Client) RunDeferred() {
	if !c.recoverPending {
		return
	}
	c.recoverPending = false
	c.recreate()
}

func (c *Client) recreate() {
	c.ReleaseKeyboard()
	c.write(newRequest(c.im.ID(), imDestroy), nil)
	c.retire(c.im)

	c.im = &inputMethod{c: c}
	c.conn.Register(c.im)
	c.write(newRequest(c.imManager.ID(), imManagerGetInputMethod).
		putUint32(c.seat.ID()).putUint32(c.im.ID()), nil)
	c.log.Debug("input method recreated", "id", c.im.ID())
}

// retire keeps a destroyed object registered so that events the
// compositor sent before seeing the destructor still find a receiver.
func (c *Client) retire(p client.Proxy) {
	c.retiredMu.Lock()
	defer c.retiredMu.Unlock()
	c.retired[p.ID()] = p
}

// onDeleteID forgets a retired object once the compositor has released
// its id.
func (c *Client) onDeleteID(id uint32) {
	c.retiredMu.Lock()
	p, ok := c.retired[id]
	delete(c.retired, id)
	c.retiredMu.Unlock()
	if ok {
		c.conn.Unregister(p)
		c.log.Debug("object id released", "id", id)
	}
}

// Close stops Run and closes the connection. A reader waiting on the loop
// is released.
func (c *Client) Close() error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.closeConn != nil {
			err = c.closeConn()
		}
	})
	return err
}
