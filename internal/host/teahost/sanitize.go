package teahost

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

// ansiRE matches ANSI escape sequences:
//   - CSI sequences: ESC [ ... final_byte  (covers SGR like \x1b[31m)
//   - OSC sequences: ESC ] ... (ST | BEL)
//   - Charset and other two-byte escapes
var ansiRE = regexp.MustCompile(`\x1b(?:` +
	`\[[0-9;?]*[A-Za-z]` +
	`|` +
	`\].*?(?:\x1b\\|\x07)` +
	`|` +
	`[#()*+\-./][A-Za-z0-9]` +
	`)`)

// stripANSI removes ANSI escape sequences from s.
func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// cleanLine makes a buffer line safe to place on the cell grid: escape
// sequences are removed, invalid UTF-8 is replaced, tabs become spaces and
// remaining control characters are dropped. Command output shown in a
// picker often carries color codes.
func cleanLine(s string) string {
	s = strings.ToValidUTF8(stripANSI(s), "�")
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t':
			b.WriteString("    ")
		case isControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// middleTruncate shortens s to maxWidth display columns by cutting out its
// middle, so both the command name and its last argument stay visible.
// Below 3 columns it truncates from the right.
func middleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}

	const ellipsis = "…"
	remaining := maxWidth - 1
	head := runewidth.Truncate(s, (remaining+1)/2, "")
	tail := truncateLeft(s, remaining/2)
	return head + ellipsis + tail
}

// truncateLeft returns the longest suffix of s no wider than maxWidth.
func truncateLeft(s string, maxWidth int) string {
	runes := []rune(s)
	w := 0
	start := len(runes)
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > maxWidth {
			break
		}
		w += rw
		start = i
	}
	return string(runes[start:])
}
