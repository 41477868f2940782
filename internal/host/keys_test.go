package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<C-j>", "<c-j>"},
		{"<C-J>", "<c-j>"},
		{"<CR>", "<cr>"},
		{"<Esc>", "<esc>"},
		{"j", "j"},
		{"J", "J"},
		{"<", "<"},
		{"<>", "<>"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.in))
		})
	}
}

func TestTextEditApply(t *testing.T) {
	assert.Equal(t, "ab", TextEdit{Text: "b"}.Apply("a"))
	assert.Equal(t, "日", TextEdit{Backspace: true}.Apply("日本"))
	assert.Equal(t, "", TextEdit{Backspace: true}.Apply(""))
}
