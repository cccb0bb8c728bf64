package ime

import (
	"fmt"
	"strings"
)

// Key is a physical key code as delivered by the compositor (evdev code,
// without the xkb offset of 8). Two events refer to the same key when their
// codes are equal, whatever symbol the keymap resolves them to.
type Key uint32

// Sym is an X keysym resolved from a Key under the current keymap state.
type Sym uint32

// Keysyms the router distinguishes. Values follow xkbcommon-keysyms.h.
const (
	SymNone       Sym = 0x0000
	SymSpace      Sym = 0x0020
	SymDigit0     Sym = 0x0030
	SymDigit1     Sym = 0x0031
	SymDigit9     Sym = 0x0039
	SymBackSpace  Sym = 0xff08
	SymTab        Sym = 0xff09
	SymReturn     Sym = 0xff0d
	SymEscape     Sym = 0xff1b
	SymHome       Sym = 0xff50
	SymLeft       Sym = 0xff51
	SymUp         Sym = 0xff52
	SymRight      Sym = 0xff53
	SymDown       Sym = 0xff54
	SymPageUp     Sym = 0xff55
	SymPageDown   Sym = 0xff56
	SymEnd        Sym = 0xff57
	SymKPEnter    Sym = 0xff8d
	SymKPHome     Sym = 0xff95
	SymKPLeft     Sym = 0xff96
	SymKPUp       Sym = 0xff97
	SymKPRight    Sym = 0xff98
	SymKPDown     Sym = 0xff99
	SymKPPageUp   Sym = 0xff9a
	SymKPPageDown Sym = 0xff9b
	SymKPEnd      Sym = 0xff9c
	SymKPDelete   Sym = 0xff9f
	SymShiftL     Sym = 0xffe1
	SymShiftR     Sym = 0xffe2
	SymDelete     Sym = 0xffff
)

// Modifier names an xkb modifier whose effective state the router queries.
type Modifier int

const (
	ModShift Modifier = iota
	ModCtrl
	ModAlt
	ModLogo
)

func (m Modifier) String() string {
	switch m {
	case ModShift:
		return "Shift"
	case ModCtrl:
		return "Control"
	case ModAlt:
		return "Mod1"
	case ModLogo:
		return "Mod4"
	default:
		return fmt.Sprintf("Modifier(%d)", int(m))
	}
}

// IsShift reports whether s is one of the two Shift keysyms.
func (s Sym) IsShift() bool {
	return s == SymShiftL || s == SymShiftR
}

// IsPrintable reports whether s is a printable, non-space ASCII keysym.
// Latin-1 keysyms coincide with their code points in this range.
func (s Sym) IsPrintable() bool {
	return s > SymSpace && s < 0x7f
}

// Digit returns the candidate offset selected by a digit keysym: 1-9 map to
// 0-8 and 0 maps to 9.
func (s Sym) Digit() (int, bool) {
	switch {
	case s == SymDigit0:
		return 9, true
	case s >= SymDigit1 && s <= SymDigit9:
		return int(s - SymDigit1), true
	default:
		return 0, false
	}
}

var symNames = map[string]Sym{
	"space":     SymSpace,
	"tab":       SymTab,
	"return":    SymReturn,
	"escape":    SymEscape,
	"backspace": SymBackSpace,
	"shift_l":   SymShiftL,
	"shift_r":   SymShiftR,
	"grave":     0x0060,
	"period":    0x002e,
	"comma":     0x002c,
	"semicolon": 0x003b,
}

// ParseSym resolves a keysym name as written in the configuration file.
// Single printable ASCII characters stand for themselves.
func ParseSym(name string) (Sym, error) {
	if len(name) == 1 && Sym(name[0]).IsPrintable() {
		return Sym(name[0]), nil
	}
	if sym, ok := symNames[strings.ToLower(name)]; ok {
		return sym, nil
	}
	return SymNone, fmt.Errorf("unknown key name %q", name)
}
