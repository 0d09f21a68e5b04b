package textutil

import (
	"strings"
	"unicode"
)

// FileToken turns a name such as a mediatype into a lowercase token safe to
// use in file names. Runs of anything other than letters, digits, '-' and
// '_' collapse into one underscore. Blank input yields "unknown".
func FileToken(value string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pending = true
		}
	}
	if out := strings.Trim(b.String(), "_-"); out != "" {
		return out
	}
	return "unknown"
}
