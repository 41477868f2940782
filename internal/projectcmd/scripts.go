package projectcmd

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DiscoverScripts lists the files in dir whose extension is ext, as
// "./name" commands sorted by name. Subdirectories are not searched.
func DiscoverScripts(dir, ext string) ([]string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext == "" || filepath.Ext(name) != ext {
			continue
		}
		scripts = append(scripts, "./"+name)
	}
	slices.Sort(scripts)
	return scripts, nil
}

// displayOrder returns commands with the default first and the rest in
// stored order. Copies of the default further down are left out.
func displayOrder(commands []string, defaultIndex int) []string {
	if defaultIndex < 0 || defaultIndex >= len(commands) {
		return slices.Clone(commands)
	}
	top := commands[defaultIndex]
	out := make([]string, 0, len(commands))
	out = append(out, top)
	for _, cmd := range commands {
		if cmd != top {
			out = append(out, cmd)
		}
	}
	return out
}

// quotedSpan returns the byte range inside the first pair of single
// quotes in s.
func quotedSpan(s string) (start, end int, ok bool) {
	open := strings.IndexByte(s, '\'')
	if open < 0 {
		return 0, 0, false
	}
	n := strings.IndexByte(s[open+1:], '\'')
	if n <= 0 {
		return 0, 0, false
	}
	return open + 1, open + 1 + n, true
}
