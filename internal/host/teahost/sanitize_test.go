package teahost

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "hello world", "hello world"},
		{"bold", "\x1b[1mhello\x1b[0m", "hello"},
		{"multiple SGR", "\x1b[1;31;42mfancy\x1b[0m", "fancy"},
		{"OSC with BEL", "\x1b]0;title\x07text", "text"},
		{"OSC with ST", "\x1b]0;title\x1b\\text", "text"},
		{"cursor hide", "\x1b[?25lx", "x"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(tt.input))
		})
	}
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unchanged", "make build", "make build"},
		{"tab", "a\tb", "a    b"},
		{"carriage return", "progress\r", "progress"},
		{"invalid utf8", "a\xffb", "a�b"},
		{"color", "\x1b[32mok\x1b[0m", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanLine(tt.input))
		})
	}
}

func TestMiddleTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "short", 10, "short"},
		{"exact", "12345", 5, "12345"},
		{"middle", "abcdefghij", 7, "abc…hij"},
		{"even split", "abcdefghij", 6, "abc…ij"},
		{"tiny", "abcdef", 2, "ab"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, middleTruncate(tt.input, tt.width))
		})
	}
}

func TestMiddleTruncate_WideRunes(t *testing.T) {
	got := middleTruncate("日本語のテキストです", 9)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 9)
	assert.Contains(t, got, "…")
}
