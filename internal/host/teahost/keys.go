package teahost

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap holds the keys the terminal host handles itself, before or after
// the surface bindings get a chance.
type keyMap struct {
	Interrupt key.Binding
	Backspace key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Interrupt: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "abort")),
		Backspace: key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("backspace", "delete left")),
	}
}

// namedKeys maps Bubble Tea key names to Vim key notation.
var namedKeys = map[string]string{
	"enter":     "<CR>",
	"esc":       "<Esc>",
	"tab":       "<Tab>",
	"shift+tab": "<S-Tab>",
	"backspace": "<BS>",
	"delete":    "<Del>",
	"up":        "<Up>",
	"down":      "<Down>",
	"left":      "<Left>",
	"right":     "<Right>",
	"home":      "<Home>",
	"end":       "<End>",
	"pgup":      "<PageUp>",
	"pgdown":    "<PageDown>",
	" ":         "<Space>",
}

// vimKey converts a key press to the notation surface bindings use, e.g.
// "ctrl+j" becomes "<C-j>". It returns "" for input that has no single-key
// spelling, such as pasted text.
func vimKey(msg tea.KeyMsg) string {
	if msg.Paste {
		return ""
	}
	name := msg.String()
	if v, ok := namedKeys[name]; ok {
		return v
	}

	if rest, ok := strings.CutPrefix(name, "ctrl+"); ok {
		if v, ok := namedKeys[rest]; ok {
			return "<C-" + strings.Trim(v, "<>") + ">"
		}
		return "<C-" + rest + ">"
	}

	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return ""
	}
	r := string(msg.Runes)
	switch {
	case msg.Alt:
		return "<M-" + r + ">"
	case r == "<":
		return "<lt>"
	}
	return r
}
