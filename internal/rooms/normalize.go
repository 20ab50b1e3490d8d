package rooms

import "strings"

// Normalize maps a free-form room name onto [a-z0-9_-]. Runs of anything
// else, or of separators, collapse to one separator; a run made only of
// underscores stays "_", any other run becomes "-". Separators never lead or
// trail the result.
func Normalize(raw string) string {
	var b strings.Builder
	var sep rune
	for _, r := range strings.ToLower(raw) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if sep != 0 && b.Len() > 0 {
				b.WriteRune(sep)
			}
			sep = 0
			b.WriteRune(r)
		case r == '_':
			if sep == 0 {
				sep = '_'
			}
		default:
			sep = '-'
		}
	}
	return b.String()
}
