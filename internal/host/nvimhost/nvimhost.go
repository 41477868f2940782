// Package nvimhost implements host.Host on a Neovim instance reached over
// msgpack-RPC. Surfaces are scratch buffers shown in floating windows; key
// bindings are buffer-local mappings that call into this process and wait
// while it runs the bound function.
package nvimhost

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/neovim/go-client/nvim"

	"github.com/runger/nvpick/internal/host"
	"github.com/runger/nvpick/internal/layout"
)

// keyRequest is the RPC method bound keys call.
const keyRequest = "nvpick_key"

var errUnknownSurface = errors.New("unknown surface")

type surface struct {
	buf    nvim.Buffer
	win    nvim.Window
	placed bool
}

// Host drives pickers inside Neovim.
type Host struct {
	v      *nvim.Nvim
	logger *slog.Logger

	// dispatch serializes picker code: key notifications and work passed
	// to Do never run concurrently.
	dispatch sync.Mutex

	mu          sync.Mutex
	next        host.Handle
	surfaces    map[host.Handle]*surface
	nextBinding int
	bindings    map[int]binding
	ns          int
}

type bufOption struct {
	name  string
	value any
}

type binding struct {
	handle host.Handle
	fn     func()
}

var (
	_ host.Host          = (*Host)(nil)
	_ host.Highlighter   = (*Host)(nil)
	_ host.WindowOptions = (*Host)(nil)
)

// New attaches to v and registers the key request handler. v must be
// served (nvim.Nvim.Serve) for bound keys to arrive.
func New(v *nvim.Nvim, logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Host{
		v:        v,
		logger:   logger,
		next:     1,
		surfaces: make(map[host.Handle]*surface),
		bindings: make(map[int]binding),
	}

	ns, err := v.CreateNamespace("nvpick")
	if err != nil {
		return nil, fmt.Errorf("failed to create namespace: %w", err)
	}
	h.ns = ns

	// Bound keys block the editor until the transition returns, so keys
	// typed meanwhile queue up behind it. Requests run on their own
	// goroutine, which keeps the client free to answer the API calls the
	// transition makes.
	if err := v.RegisterHandler(keyRequest, func(id int) (bool, error) { return h.fire(id), nil }); err != nil {
		return nil, fmt.Errorf("failed to register key handler: %w", err)
	}
	return h, nil
}

// Do runs fn on the dispatch lock, the same one key bindings run under.
// RPC handlers that open pickers must go through it. fn must not call Do.
func (h *Host) Do(fn func()) {
	h.dispatch.Lock()
	defer h.dispatch.Unlock()
	fn()
}

// fire runs binding id and reports whether it was still bound.
func (h *Host) fire(id int) bool {
	h.mu.Lock()
	b, ok := h.bindings[id]
	h.mu.Unlock()
	if !ok {
		h.logger.Debug("key for closed surface", "binding", id)
		return false
	}
	h.Do(b.fn)
	return true
}

func (h *Host) lookup(handle host.Handle) (*surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.surfaces[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errUnknownSurface, handle)
	}
	return s, nil
}

// ScreenSize reports the editor size minus the command line.
func (h *Host) ScreenSize() (layout.Size, error) {
	var cols, lines, cmdheight int
	if err := h.v.Option("columns", &cols); err != nil {
		return layout.Size{}, fmt.Errorf("failed to read columns: %w", err)
	}
	if err := h.v.Option("lines", &lines); err != nil {
		return layout.Size{}, fmt.Errorf("failed to read lines: %w", err)
	}
	if err := h.v.Option("cmdheight", &cmdheight); err != nil {
		cmdheight = 1
	}
	return layout.Size{Width: cols, Height: max(1, lines-cmdheight)}, nil
}

func (h *Host) CreateSurface(editable bool) (host.Handle, error) {
	buf, err := h.v.CreateBuffer(false, true)
	if err != nil {
		return host.InvalidHandle, fmt.Errorf("failed to create buffer: %w", err)
	}
	opts := []bufOption{
		{"buftype", "nofile"},
		{"bufhidden", "wipe"},
		{"swapfile", false},
	}
	if editable {
		opts = append(opts, bufOption{"filetype", "nvpick_input"})
	}
	for _, o := range opts {
		if err := h.v.SetBufferOption(buf, o.name, o.value); err != nil {
			h.logger.Debug("buffer option failed", "option", o.name, "error", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	handle := h.next
	h.next++
	h.surfaces[handle] = &surface{buf: buf}
	return handle, nil
}

func (h *Host) SetLines(handle host.Handle, lines []string) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}
	return h.v.SetBufferLines(s.buf, 0, -1, false, toBytes(lines))
}

func (h *Host) Lines(handle host.Handle) ([]string, error) {
	s, err := h.lookup(handle)
	if err != nil {
		return nil, err
	}
	raw, err := h.v.BufferLines(s.buf, 0, -1, false)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return lines, nil
}

func (h *Host) SetModifiable(handle host.Handle, modifiable bool) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}
	return h.v.SetBufferOption(s.buf, "modifiable", modifiable)
}

// openWinLua opens or reconfigures a floating window. Borders are passed
// as an eight-glyph array so each surface of a stack can omit edges.
const openWinLua = `
local buf, win, enter, cfg = ...
if win > 0 and vim.api.nvim_win_is_valid(win) then
  vim.api.nvim_win_set_config(win, cfg)
  if enter then vim.api.nvim_set_current_win(win) end
  return win
end
return vim.api.nvim_open_win(buf, enter, cfg)
`

func (h *Host) PlaceWindow(handle host.Handle, geom layout.Geometry, focus bool) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}

	var win int
	if err := h.v.ExecLua(openWinLua, &win, int(s.buf), int(s.win), focus, windowConfig(geom)); err != nil {
		return fmt.Errorf("failed to open window: %w", err)
	}

	h.mu.Lock()
	s.win = nvim.Window(win)
	s.placed = true
	h.mu.Unlock()
	return nil
}

// windowConfig builds the nvim_open_win config for geom. Neovim positions
// a floating window by its outer corner and sizes it without the border.
func windowConfig(geom layout.Geometry) map[string]any {
	cfg := map[string]any{
		"relative": "editor",
		"row":      geom.Row,
		"col":      geom.Col,
		"width":    max(1, geom.Width),
		"height":   max(1, geom.Height),
		"style":    "minimal",
	}
	if geom.Border.IsNone() {
		cfg["border"] = "none"
	} else {
		cfg["border"] = geom.Border.Edges[:]
		if geom.Title != "" && geom.Border.HasTop() {
			cfg["title"] = " " + geom.Title + " "
		}
	}
	return cfg
}

func (h *Host) Cursor(handle host.Handle) (int, error) {
	s, err := h.lookup(handle)
	if err != nil {
		return 0, err
	}
	if !s.placed {
		return 0, fmt.Errorf("surface %d has no window", handle)
	}
	pos, err := h.v.WindowCursor(s.win)
	if err != nil {
		return 0, err
	}
	return pos[0], nil
}

func (h *Host) SetCursor(handle host.Handle, row int) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}
	if !s.placed {
		return fmt.Errorf("surface %d has no window", handle)
	}
	return h.v.SetWindowCursor(s.win, [2]int{row, 0})
}

func (h *Host) SetInsertMode(on bool) error {
	if on {
		return h.v.Command("startinsert!")
	}
	return h.v.Command("stopinsert")
}

// Close closes the window; the buffer goes with it (bufhidden=wipe).
// Bindings of the surface are forgotten first so late key requests are
// dropped.
func (h *Host) Close(handle host.Handle) error {
	h.mu.Lock()
	s, ok := h.surfaces[handle]
	if !ok {
		h.mu.Unlock()
		return nil
	}
	delete(h.surfaces, handle)
	for id, b := range h.bindings {
		if b.handle == handle {
			delete(h.bindings, id)
		}
	}
	h.mu.Unlock()

	if s.placed {
		if err := h.v.CloseWindow(s.win, true); err != nil {
			return fmt.Errorf("failed to close window: %w", err)
		}
		return nil
	}
	return h.v.Command("silent! bwipeout! " + strconv.Itoa(int(s.buf)))
}

func (h *Host) BindKey(handle host.Handle, mode host.Mode, key string, fn func()) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.nextBinding++
	id := h.nextBinding
	h.bindings[id] = binding{handle: handle, fn: fn}
	h.mu.Unlock()

	rhs := keyRHS(h.v.ChannelID(), id)
	opts := map[string]bool{"noremap": true, "silent": true, "nowait": true}
	if err := h.v.SetBufferKeyMap(s.buf, string(mode), key, rhs, opts); err != nil {
		h.mu.Lock()
		delete(h.bindings, id)
		h.mu.Unlock()
		return fmt.Errorf("failed to map %s: %w", key, err)
	}
	return nil
}

// keyRHS is the mapping body for a binding. <Cmd> keeps the current mode,
// so insert-mode bindings do not leave insert mode.
func keyRHS(channel, id int) string {
	return fmt.Sprintf("<Cmd>call rpcrequest(%d, '%s', %d)<CR>", channel, keyRequest, id)
}

// Highlight implements host.Highlighter with an extmark.
func (h *Host) Highlight(handle host.Handle, row, startCol, endCol int, group string) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}
	_, err = h.v.SetBufferExtmark(s.buf, h.ns, row, startCol, map[string]any{
		"end_col":  endCol,
		"hl_group": group,
	})
	return err
}

// SetCursorLine implements host.WindowOptions.
func (h *Host) SetCursorLine(handle host.Handle, on bool) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}
	return h.v.SetWindowOption(s.win, "cursorline", on)
}

// SetLeftPadding implements host.WindowOptions using the fold column,
// which Neovim caps at 9.
func (h *Host) SetLeftPadding(handle host.Handle, cols int) error {
	s, err := h.lookup(handle)
	if err != nil {
		return err
	}
	return h.v.SetWindowOption(s.win, "foldcolumn", strconv.Itoa(min(cols, 9)))
}

// showScratchLua finds the scratch buffer tagged with name, creating it
// the first time, replaces its lines and shows it in a bottom split
// unless a window already shows it. Returns the buffer number.
const showScratchLua = `
local name, lines = ...
local buf
for _, b in ipairs(vim.api.nvim_list_bufs()) do
  if vim.api.nvim_buf_is_valid(b) and vim.b[b].nvpick_scratch == name then
    buf = b
    break
  end
end
if not buf then
  buf = vim.api.nvim_create_buf(true, true)
  vim.b[buf].nvpick_scratch = name
  pcall(vim.api.nvim_buf_set_name, buf, name)
end
vim.bo[buf].modifiable = true
vim.api.nvim_buf_set_lines(buf, 0, -1, false, lines)
vim.bo[buf].modifiable = false
if vim.fn.bufwinid(buf) == -1 then
  vim.cmd('botright sbuffer ' .. buf)
end
return buf
`

// ShowScratch shows lines in the scratch buffer called name, for output
// the user reads after a picker closes. Later calls with the same name
// reuse the buffer and its split.
func (h *Host) ShowScratch(name string, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	var buf int
	if err := h.v.ExecLua(showScratchLua, &buf, name, lines); err != nil {
		return fmt.Errorf("failed to show %s: %w", name, err)
	}
	return nil
}

// Notify echoes an error message in the editor.
func (h *Host) Notify(msg string) {
	if err := h.v.WritelnErr("nvpick: " + msg); err != nil {
		h.logger.Debug("notify failed", "error", err)
	}
}

func toBytes(lines []string) [][]byte {
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = []byte(l)
	}
	return out
}
