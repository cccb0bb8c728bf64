package panel

import (
	"log/slog"

	"wlchewing/internal/ime"
)

// LogOverlay is an ime.Overlay that publishes the strip through the log.
type LogOverlay struct {
	strip   Strip
	log     *slog.Logger
	visible bool
	last    string
}

var _ ime.Overlay = (*LogOverlay)(nil)

func NewLogOverlay(strip Strip, log *slog.Logger) *LogOverlay {
	if log == nil {
		log = slog.Default()
	}
	return &LogOverlay{strip: strip, log: log}
}

func (o *LogOverlay) Show(snap ime.Snapshot) {
	o.visible = true
	o.last = o.strip.Render(snap)
	o.log.Info("candidates", "strip", o.last, "selected", snap.Selected, "total", snap.Total)
}

func (o *LogOverlay) Hide() {
	if !o.visible {
		return
	}
	o.visible = false
	o.last = ""
	o.log.Debug("candidates closed")
}

// Visible reports whether a strip is currently shown.
func (o *LogOverlay) Visible() bool { return o.visible }

// Last returns the strip most recently shown, or "" when hidden.
func (o *LogOverlay) Last() string { return o.last }
