// Package chewing adapts libchewing to ime.Engine.
package chewing

/*
#cgo LDFLAGS: -lchewing

#include <stdlib.h>
#include <chewing/chewing.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"wlchewing/internal/ime"
)

// Options tune the libchewing context.
type Options struct {
	// Layout is a libchewing keyboard name such as KB_DEFAULT or KB_HSU.
	Layout string
	// CandidatesPerPage is the libchewing page size; the candidate window
	// shown by the session is capped separately.
	CandidatesPerPage int
}

// DefaultOptions matches a freshly created libchewing context.
func DefaultOptions() Options {
	return Options{Layout: "KB_DEFAULT", CandidatesPerPage: ime.WindowSize}
}

// ErrNoDictionary is returned when libchewing cannot load its data files.
var ErrNoDictionary = errors.New("chewing: cannot create context, dictionary not found")

// Engine implements ime.Engine over one libchewing context. Like the rest
// of the session it must only be used from the loop goroutine.
type Engine struct {
	ctx *C.ChewingContext
	log *slog.Logger
}

var _ ime.Engine = (*Engine)(nil)

// New creates a context configured with opts.
func New(opts Options, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	ctx := C.chewing_new()
	if ctx == nil {
		return nil, ErrNoDictionary
	}
	e := &Engine{ctx: ctx, log: log}
	if err := e.configure(opts); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) configure(opts Options) error {
	if opts.Layout != "" {
		name := C.CString(opts.Layout)
		defer C.free(unsafe.Pointer(name))
		kb := C.chewing_KBStr2Num(name)
		// unknown names map to the default layout
		if (kb == 0 && opts.Layout != "KB_DEFAULT") || C.chewing_set_KBType(e.ctx, kb) != 0 {
			return fmt.Errorf("chewing: unknown keyboard layout %q", opts.Layout)
		}
	}
	if opts.CandidatesPerPage > 0 {
		C.chewing_set_candPerPage(e.ctx, C.int(opts.CandidatesPerPage))
	}
	e.log.Debug("chewing context ready", "layout", opts.Layout, "cand_per_page", opts.CandidatesPerPage)
	return nil
}

func (e *Engine) Edit(cmd ime.EditCommand) {
	switch cmd {
	case ime.EditBackspace:
		C.chewing_handle_Backspace(e.ctx)
	case ime.EditDelete:
		C.chewing_handle_Del(e.ctx)
	case ime.EditEnter:
		C.chewing_handle_Enter(e.ctx)
	case ime.EditLeft:
		C.chewing_handle_Left(e.ctx)
	case ime.EditRight:
		C.chewing_handle_Right(e.ctx)
	case ime.EditUp:
		C.chewing_handle_Up(e.ctx)
	case ime.EditHome:
		C.chewing_handle_Home(e.ctx)
	case ime.EditEnd:
		C.chewing_handle_End(e.ctx)
	case ime.EditEscape:
		C.chewing_handle_Esc(e.ctx)
	case ime.EditSpace:
		C.chewing_handle_Space(e.ctx)
	case ime.EditTab:
		C.chewing_handle_Tab(e.ctx)
	default:
		e.log.Warn("unknown edit command", "command", int(cmd))
	}
}

// Input feeds one printable ASCII character.
func (e *Engine) Input(r rune) {
	C.chewing_handle_Default(e.ctx, C.int(r))
}

func (e *Engine) Ignored() bool {
	return C.chewing_keystroke_CheckIgnore(e.ctx) != 0
}

func (e *Engine) Buffer() string {
	return C.GoString(C.chewing_buffer_String_static(e.ctx))
}

func (e *Engine) Bopomofo() string {
	return C.GoString(C.chewing_bopomofo_String_static(e.ctx))
}

func (e *Engine) Cursor() int {
	return int(C.chewing_cursor_Current(e.ctx))
}

func (e *Engine) CommitReady() bool {
	return C.chewing_commit_Check(e.ctx) != 0
}

func (e *Engine) CommitText() string {
	return C.GoString(C.chewing_commit_String_static(e.ctx))
}

func (e *Engine) OpenCandidates()  { C.chewing_cand_open(e.ctx) }
func (e *Engine) CloseCandidates() { C.chewing_cand_close(e.ctx) }

func (e *Engine) CandidateCount() int {
	return int(C.chewing_cand_TotalChoice(e.ctx))
}

func (e *Engine) Candidate(index int) string {
	return C.GoString(C.chewing_cand_string_by_index_static(e.ctx, C.int(index)))
}

func (e *Engine) ChooseCandidate(index int) {
	if C.chewing_cand_choose_by_index(e.ctx, C.int(index)) != 0 {
		e.log.Debug("candidate rejected", "index", index)
	}
}

// NextCandidateList moves to the list of the next phrase length, wrapping
// to the first one after the last.
func (e *Engine) NextCandidateList() {
	if C.chewing_cand_list_has_next(e.ctx) != 0 {
		C.chewing_cand_list_next(e.ctx)
		return
	}
	C.chewing_cand_list_first(e.ctx)
}

func (e *Engine) Reset() {
	C.chewing_Reset(e.ctx)
}

// Close frees the context. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e.ctx != nil {
		C.chewing_delete(e.ctx)
		e.ctx = nil
	}
}
