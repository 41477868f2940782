package host

import "strings"

// NormalizeKey canonicalizes Vim key notation so "<C-J>", "<c-j>" and
// "<C-j>" compare equal. Plain keys such as "j" or "J" are returned as is.
func NormalizeKey(key string) string {
	if len(key) > 2 && strings.HasPrefix(key, "<") && strings.HasSuffix(key, ">") {
		return "<" + strings.ToLower(key[1:len(key)-1]) + ">"
	}
	return key
}
