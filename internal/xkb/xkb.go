// Package xkb resolves physical keys to keysyms with libxkbcommon, using the
// keymap the compositor hands to the keyboard grab.
package xkb

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"wlchewing/internal/ime"
)

/*
#cgo LDFLAGS: -lxkbcommon

#include <stdlib.h>
#include <xkbcommon/xkbcommon.h>
*/
import "C"

var modNames = map[ime.Modifier][]byte{
	ime.ModShift: []byte("Shift\x00"),
	ime.ModCtrl:  []byte("Control\x00"),
	ime.ModAlt:   []byte("Mod1\x00"),
	ime.ModLogo:  []byte("Mod4\x00"),
}

// evdevOffset converts evdev codes to xkb keycodes.
const evdevOffset = 8

// Keyboard implements ime.Keyboard. It is used only from the session
// goroutine.
type Keyboard struct {
	ctx    *C.struct_xkb_context
	keymap *C.struct_xkb_keymap
	state  *C.struct_xkb_state
	last   digest
	log    *slog.Logger
}

// New creates a keyboard without a keymap. Every key resolves to no
// symbol until SetKeymap succeeds.
func New(log *slog.Logger) (*Keyboard, error) {
	if log == nil {
		log = slog.Default()
	}
	ctx := C.xkb_context_new(C.XKB_CONTEXT_NO_FLAGS)
	if ctx == nil {
		return nil, errors.New("xkb: xkb_context_new failed")
	}
	return &Keyboard{ctx: ctx, log: log}, nil
}

// SetKeymap compiles the keymap in fd unless it is the one already loaded.
// On failure the previous keymap stays in use.
func (k *Keyboard) SetKeymap(format uint32, fd int, size uint32) (bool, error) {
	if format != FormatTextV1 {
		return false, fmt.Errorf("xkb: unsupported keymap format %d", format)
	}
	data, unmap, err := mapKeymap(fd, size)
	if err != nil {
		return false, err
	}
	defer unmap()

	text := keymapText(data)
	if len(text) == 0 {
		return false, errEmptyKeymap
	}
	if !k.last.changed(text) {
		return false, nil
	}

	keymap := C.xkb_keymap_new_from_buffer(k.ctx, (*C.char)(unsafe.Pointer(&text[0])), C.size_t(len(text)),
		C.XKB_KEYMAP_FORMAT_TEXT_V1, C.XKB_KEYMAP_COMPILE_NO_FLAGS)
	if keymap == nil {
		k.last = digest{}
		return false, errors.New("xkb: xkb_keymap_new_from_buffer failed")
	}
	state := C.xkb_state_new(keymap)
	if state == nil {
		C.xkb_keymap_unref(keymap)
		k.last = digest{}
		return false, errors.New("xkb: xkb_state_new failed")
	}

	k.release()
	k.keymap, k.state = keymap, state
	k.log.Debug("keymap compiled", "bytes", len(text))
	return true, nil
}

// Sym returns the keysym of key under the current modifier state.
func (k *Keyboard) Sym(key ime.Key) ime.Sym {
	if k.state == nil {
		return ime.SymNone
	}
	return ime.Sym(C.xkb_state_key_get_one_sym(k.state, C.xkb_keycode_t(uint32(key)+evdevOffset)))
}

// Active reports whether mod is effective.
func (k *Keyboard) Active(mod ime.Modifier) bool {
	name, ok := modNames[mod]
	if k.state == nil || !ok {
		return false
	}
	return C.xkb_state_mod_name_is_active(k.state, (*C.char)(unsafe.Pointer(&name[0])), C.XKB_STATE_MODS_EFFECTIVE) == 1
}

// Repeats reports whether the keymap marks key as repeating.
func (k *Keyboard) Repeats(key ime.Key) bool {
	if k.keymap == nil {
		return false
	}
	return C.xkb_keymap_key_repeats(k.keymap, C.xkb_keycode_t(uint32(key)+evdevOffset)) == 1
}

// UpdateMask applies the compositor's modifier masks.
func (k *Keyboard) UpdateMask(depressed, latched, locked, group uint32) {
	if k.state == nil {
		return
	}
	C.xkb_state_update_mask(k.state, C.xkb_mod_mask_t(depressed), C.xkb_mod_mask_t(latched), C.xkb_mod_mask_t(locked),
		0, 0, C.xkb_layout_index_t(group))
}

func (k *Keyboard) release() {
	if k.state != nil {
		C.xkb_state_unref(k.state)
		k.state = nil
	}
	if k.keymap != nil {
		C.xkb_keymap_unref(k.keymap)
		k.keymap = nil
	}
}

// Close frees the keymap and the xkb context.
func (k *Keyboard) Close() {
	k.release()
	if k.ctx != nil {
		C.xkb_context_unref(k.ctx)
		k.ctx = nil
	}
}
