package wayland

import (
	"errors"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Globals bound from the registry.
const (
	seatInterface                   = "wl_seat"
	inputMethodManagerInterface     = "zwp_input_method_manager_v2"
	virtualKeyboardManagerInterface = "zwp_virtual_keyboard_manager_v1"
)

// zwp_input_method_manager_v2 requests
const (
	imManagerGetInputMethod uint32 = 0
)

// zwp_input_method_v2 requests
const (
	imCommitString     uint32 = 0
	imSetPreeditString uint32 = 1
	imCommit           uint32 = 3
	imGrabKeyboard     uint32 = 5
	imDestroy          uint32 = 6
)

// zwp_input_method_v2 events
const (
	imEventActivate    uint32 = 0
	imEventDeactivate  uint32 = 1
	imEventDone        uint32 = 5
	imEventUnavailable uint32 = 6
)

// zwp_input_method_keyboard_grab_v2
const (
	grabRelease uint32 = 0

	grabEventKeymap     uint32 = 0
	grabEventKey        uint32 = 1
	grabEventModifiers  uint32 = 2
	grabEventRepeatInfo uint32 = 3
)

// zwp_virtual_keyboard_manager_v1 and zwp_virtual_keyboard_v1 requests
const (
	vkManagerCreate uint32 = 0

	vkKeymap    uint32 = 0
	vkKey       uint32 = 1
	vkModifiers uint32 = 2
)

const (
	keyStateReleased uint32 = 0
	keyStatePressed  uint32 = 1
)

// headerSize is the sender id word plus the size/opcode word.
const headerSize = 8

var errShortMessage = errors.New("wayland: short message")

// request builds one request message with go-wayland's marshalling
// helpers, the way its generated request methods do.
type request struct {
	opcode uint32
	buf    []byte
}

func newRequest(sender, opcode uint32) *request {
	r := &request{opcode: opcode, buf: make([]byte, headerSize, 64)}
	client.PutUint32(r.buf[0:4], sender)
	return r
}

// grow extends the message by n zeroed bytes and returns the offset of
// the new space.
func (r *request) grow(n int) int {
	l := len(r.buf)
	r.buf = append(r.buf, make([]byte, n)...)
	return l
}

func (r *request) putUint32(v uint32) *request {
	l := r.grow(4)
	client.PutUint32(r.buf[l:l+4], v)
	return r
}

func (r *request) putInt32(v int32) *request {
	return r.putUint32(uint32(v))
}

// putString appends a NUL terminated string padded to a word boundary.
func (r *request) putString(s string) *request {
	n := client.PaddedLen(len(s) + 1)
	l := r.grow(4 + n)
	client.PutString(r.buf[l:l+4+n], s, len(s)+1)
	return r
}

// bytes stamps the message size into the header.
func (r *request) bytes() []byte {
	client.PutUint32(r.buf[4:8], uint32(len(r.buf))<<16|r.opcode&0x0000ffff)
	return r.buf
}

// decoder reads event arguments. The first short read sets err and every
// later read returns zero.
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) uint32() uint32 {
	if d.err != nil {
		return 0
	}
	if len(d.data) < 4 {
		d.err = errShortMessage
		return 0
	}
	v := client.Uint32(d.data[:4])
	d.data = d.data[4:]
	return v
}

func (d *decoder) int32() int32 {
	return int32(d.uint32())
}
