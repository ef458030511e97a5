package fsutil

import "strings"

// maxNameLen bounds names produced by SafeName.
const maxNameLen = 128

// SafeName turns an arbitrary label into a file name component. Runs of
// characters other than ASCII letters, digits, dot, dash and underscore
// become a single underscore; leading and trailing dots and underscores are
// trimmed. An empty result is "unnamed".
func SafeName(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unnamed"
	}
	return out
}
