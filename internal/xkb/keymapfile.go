package xkb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"
)

// FormatTextV1 is the only keymap format compositors send.
const FormatTextV1 = 1

var errEmptyKeymap = errors.New("xkb: empty keymap")

// mapKeymap maps a keymap shared by the compositor. The compositor may
// send the same fd to every client, so it is mapped private and read only.
// The returned slice is valid until unmap is called.
func mapKeymap(fd int, size uint32) (data []byte, unmap func(), err error) {
	if size == 0 {
		return nil, nil, errEmptyKeymap
	}
	data, err = unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("xkb: mmap keymap: %w", err)
	}
	return data, func() { unix.Munmap(data) }, nil
}

// keymapText strips the terminating NUL the protocol includes in size.
func keymapText(data []byte) []byte {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return data[:i]
	}
	return data
}

// digest remembers the hash of the last keymap text so identical keymaps,
// which compositors resend on every activation, are not recompiled.
type digest struct {
	sum uint64
	set bool
}

func (d *digest) changed(text []byte) bool {
	sum := xxhash.Sum64(text)
	if d.set && d.sum == sum {
		return false
	}
	d.sum, d.set = sum, true
	return true
}
