package panel

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wlchewing/internal/ime"
)

func snapshot(selected, total int, window ...string) ime.Snapshot {
	return ime.Snapshot{Selected: selected, Total: total, Window: window}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		strip Strip
		snap  ime.Snapshot
		want  string
	}{
		{
			name:  "hints",
			strip: NewStrip(true, 80),
			snap:  snapshot(0, 3, "你", "妳", "尼"),
			want:  "[1.你] 2.妳 3.尼 (1/3)",
		},
		{
			name:  "no hints",
			strip: NewStrip(false, 80),
			snap:  snapshot(4, 6, "e", "f"),
			want:  "[e] f (5/6)",
		},
		{
			name:  "truncated by width",
			strip: NewStrip(true, 10),
			snap:  snapshot(0, 3, "你好", "妳好", "擬好"),
			want:  "[1.你好] (1/3)",
		},
		{
			name:  "empty",
			strip: NewStrip(true, 80),
			snap:  ime.Snapshot{},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strip.Render(tt.snap))
		})
	}
}

func TestLayoutCountsWideRunes(t *testing.T) {
	cells := NewStrip(true, 80).Layout(snapshot(0, 2, "你好", "ab"))
	require.Len(t, cells, 2)
	assert.Equal(t, 7, cells[0].Width)
	assert.Equal(t, 5, cells[1].Width)
	assert.True(t, cells[0].Selected)
	assert.False(t, cells[1].Selected)
}

func TestLayoutKeepsOversizedFirstCell(t *testing.T) {
	cells := NewStrip(false, 6).Layout(snapshot(0, 1, "一二三四五六"))
	require.Len(t, cells, 1)
	assert.LessOrEqual(t, cells[0].Width, 6)
	assert.Contains(t, cells[0].Text, "…")
}

func TestHintsFollowWindowPosition(t *testing.T) {
	window := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	cells := NewStrip(true, 200).Layout(ime.Snapshot{Total: 10, Window: window})
	require.Len(t, cells, 10)
	assert.Equal(t, "1", cells[0].Hint)
	assert.Equal(t, "0", cells[9].Hint)
}

func TestNewStripDefaults(t *testing.T) {
	assert.Equal(t, DefaultMaxColumns, NewStrip(true, 0).MaxColumns)
}

func TestLogOverlay(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := NewLogOverlay(NewStrip(true, 80), log)

	o.Hide()
	assert.Empty(t, buf.String(), "hiding a hidden overlay logs nothing")

	o.Show(snapshot(0, 2, "你", "妳"))
	assert.True(t, o.Visible())
	assert.Equal(t, "[1.你] 2.妳 (1/2)", o.Last())
	assert.Contains(t, buf.String(), `strip="[1.你] 2.妳 (1/2)"`)
	assert.Contains(t, buf.String(), "total=2")

	o.Hide()
	assert.False(t, o.Visible())
	assert.Empty(t, o.Last())
	assert.Contains(t, buf.String(), "candidates closed")
}
