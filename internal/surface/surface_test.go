package surface

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/nvpick/internal/host"
	"github.com/runger/nvpick/internal/host/memhost"
	"github.com/runger/nvpick/internal/layout"
)

func TestCreate_ReadOnlyAfterPopulation(t *testing.T) {
	h := memhost.New(80, 24)
	s, err := Create(h, RoleList, []string{"a", "b"}, false, nil)
	require.NoError(t, err)

	snap, ok := h.Snapshot(s.Handle())
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, snap.Lines)
	assert.False(t, snap.Modifiable)

	// SetContent toggles writability around the write.
	s.SetContent([]string{"c"})
	snap, _ = h.Snapshot(s.Handle())
	assert.Equal(t, []string{"c"}, snap.Lines)
	assert.False(t, snap.Modifiable)
}

func TestCreate_EditableStaysWritable(t *testing.T) {
	h := memhost.New(80, 24)
	s, err := Create(h, RoleInput, nil, true, nil)
	require.NoError(t, err)

	snap, _ := h.Snapshot(s.Handle())
	assert.True(t, snap.Modifiable)
	assert.Equal(t, []string{""}, snap.Lines)
}

func TestCreate_AllocationFailure(t *testing.T) {
	h := memhost.New(80, 24)
	h.FailCreateAt(1)

	_, err := Create(h, RoleTitle, nil, false, nil)
	assert.ErrorIs(t, err, ErrAllocationFailed)
	assert.Contains(t, err.Error(), "title")
}

func TestRender(t *testing.T) {
	h := memhost.New(80, 24)
	s, err := Create(h, RoleList, []string{"a"}, false, nil)
	require.NoError(t, err)

	geom := layout.Geometry{Row: 3, Col: 4, Width: 10, Height: 1, Border: layout.BorderRounded}
	require.NoError(t, s.Render(geom, true))
	assert.Equal(t, geom, s.Geometry())
	assert.Equal(t, s.Handle(), h.Focused())

	h.FailPlaceAt(1)
	err = s.Render(geom, false)
	assert.ErrorIs(t, err, ErrAllocationFailed)
}

func TestDestroy_Idempotent(t *testing.T) {
	h := memhost.New(80, 24)
	s, err := Create(h, RoleList, []string{"a"}, false, nil)
	require.NoError(t, err)

	s.Destroy()
	s.Destroy()
	assert.True(t, s.Destroyed())
	assert.Empty(t, h.Open())

	// Operations after destroy are silent no-ops.
	s.SetContent([]string{"x"})
	assert.Nil(t, s.Lines())
	_, ok := s.Cursor()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Render(layout.Geometry{}, false), ErrAllocationFailed)
}

func TestLine(t *testing.T) {
	h := memhost.New(80, 24)
	s, _ := Create(h, RoleList, []string{"a", "b"}, false, nil)

	line, ok := s.Line(2)
	assert.True(t, ok)
	assert.Equal(t, "b", line)

	_, ok = s.Line(3)
	assert.False(t, ok)
	_, ok = s.Line(0)
	assert.False(t, ok)
	assert.Equal(t, 2, s.LineCount())
}

func TestBestEffortFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := memhost.New(80, 24)
	s, err := Create(h, RoleList, []string{"a"}, false, logger)
	require.NoError(t, err)

	h.FailCursor(true)
	s.SetCursor(1)
	_, ok := s.Cursor()
	assert.False(t, ok)

	assert.Contains(t, buf.String(), "host call failed")
	assert.Contains(t, buf.String(), "op=\"set cursor\"")
}

func TestOptionalCapabilities(t *testing.T) {
	h := memhost.New(80, 24)
	s, _ := Create(h, RoleTitle, []string{"Pick one"}, false, nil)

	s.Highlight(0, 0, 4, "Question")
	s.Decorate(true, 2)

	var got []host.TextEdit
	assert.True(t, s.BindText(func(e host.TextEdit) { got = append(got, e) }))

	snap, _ := h.Snapshot(s.Handle())
	assert.Equal(t, []memhost.Highlight{{Row: 0, StartCol: 0, EndCol: 4, Group: "Question"}}, snap.Highlights)
	assert.True(t, snap.CursorLine)
	assert.Equal(t, 2, snap.Padding)
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "title", RoleTitle.String())
	assert.Equal(t, "input", RoleInput.String())
	assert.Equal(t, "list", RoleList.String())
	assert.Equal(t, "role(9)", Role(9).String())
}
