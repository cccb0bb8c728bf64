package wayland

import "github.com/rajveermalviya/go-wayland/wayland/client"

// conn is the part of the go-wayland context the protocol objects use.
type conn interface {
	Register(p client.Proxy)
	Unregister(p client.Proxy)
	WriteMsg(b []byte, oob []byte) error
}

// object is a protocol object without events.
type object struct {
	client.BaseProxy
}

// inputMethod is a zwp_input_method_v2.
type inputMethod struct {
	client.BaseProxy
	c *Client
}

func (im *inputMethod) Dispatch(opcode uint32, fd int, data []byte) {
	im.c.onInputMethod(im, opcode, data)
}

// keyboardGrab is a zwp_input_method_keyboard_grab_v2.
type keyboardGrab struct {
	client.BaseProxy
	c *Client
}

func (g *keyboardGrab) Dispatch(opcode uint32, fd int, data []byte) {
	g.c.onGrab(g, opcode, fd, data)
}

var (
	_ client.Dispatcher = (*inputMethod)(nil)
	_ client.Dispatcher = (*keyboardGrab)(nil)
)
