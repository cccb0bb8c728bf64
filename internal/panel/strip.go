// Package panel lays out the candidate window as a single strip of cells
// and publishes it while a candidate session is open.
package panel

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"wlchewing/internal/ime"
)

// DefaultMaxColumns is the strip width used when none is configured.
const DefaultMaxColumns = 80

// hints are the digit keys addressing the visible window, in order.
var hints = [ime.WindowSize]string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0"}

// Cell is one laid out candidate.
type Cell struct {
	Hint     string
	Text     string
	Selected bool
	// Width is the display width of the cell including its separator.
	Width int
}

// Strip lays out snapshots within a column budget.
type Strip struct {
	KeyHints   bool
	MaxColumns int
}

// NewStrip returns a strip with key hints, falling back to
// DefaultMaxColumns when maxColumns is not positive.
func NewStrip(keyHints bool, maxColumns int) Strip {
	if maxColumns <= 0 {
		maxColumns = DefaultMaxColumns
	}
	return Strip{KeyHints: keyHints, MaxColumns: maxColumns}
}

// Layout returns the cells that fit the budget. The first cell is always
// kept, truncated if it alone is too wide.
func (s Strip) Layout(snap ime.Snapshot) []Cell {
	budget := s.MaxColumns
	if budget <= 0 {
		budget = DefaultMaxColumns
	}

	cells := make([]Cell, 0, len(snap.Window))
	used := 0
	for i, text := range snap.Window {
		c := Cell{Text: text, Selected: i == 0}
		if s.KeyHints && i < len(hints) {
			c.Hint = hints[i]
		}
		c.Width = runewidth.StringWidth(c.label()) + 1
		if used+c.Width > budget {
			if i > 0 {
				break
			}
			c.Text = runewidth.Truncate(c.Text, budget-1-runewidth.StringWidth(c.Hint), "…")
			c.Width = runewidth.StringWidth(c.label()) + 1
		}
		used += c.Width
		cells = append(cells, c)
	}
	return cells
}

func (c Cell) label() string {
	if c.Hint == "" {
		return c.Text
	}
	return c.Hint + "." + c.Text
}

// Render formats the strip as one line, marking the selected candidate and
// the position in the whole list.
func (s Strip) Render(snap ime.Snapshot) string {
	var b strings.Builder
	for i, c := range s.Layout(snap) {
		if i > 0 {
			b.WriteByte(' ')
		}
		if c.Selected {
			b.WriteString("[" + c.label() + "]")
			continue
		}
		b.WriteString(c.label())
	}
	if snap.Total > 0 {
		fmt.Fprintf(&b, " (%d/%d)", snap.Selected+1, snap.Total)
	}
	return b.String()
}
