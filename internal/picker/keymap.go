package picker

import "slices"

// Keymap lists the keys, in Vim notation, bound to each picker event.
type Keymap struct {
	Down   []string
	Up     []string
	Commit []string
	Cancel []string
}

// DefaultKeymap returns the stock bindings.
func DefaultKeymap() Keymap {
	return Keymap{
		Down:   []string{"<C-j>", "<Down>"},
		Up:     []string{"<C-k>", "<Up>"},
		Commit: []string{"<CR>"},
		Cancel: []string{"<C-e>"},
	}
}

// readOnly adds the keys a list without text entry can also use.
func (k Keymap) readOnly() Keymap {
	return Keymap{
		Down:   appendMissing(k.Down, "j"),
		Up:     appendMissing(k.Up, "k"),
		Commit: slices.Clone(k.Commit),
		Cancel: appendMissing(k.Cancel, "q", "<Esc>"),
	}
}

// bindings flattens the keymap into key/event pairs.
func (k Keymap) bindings() []keyBinding {
	var out []keyBinding
	add := func(keys []string, kind EventKind) {
		for _, key := range keys {
			out = append(out, keyBinding{key: key, kind: kind})
		}
	}
	add(k.Down, EventDown)
	add(k.Up, EventUp)
	add(k.Commit, EventCommit)
	add(k.Cancel, EventCancel)
	return out
}

type keyBinding struct {
	key  string
	kind EventKind
}

func appendMissing(keys []string, extra ...string) []string {
	out := slices.Clone(keys)
	for _, e := range extra {
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}
