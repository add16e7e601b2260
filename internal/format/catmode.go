package format

import (
	"regexp"
	"strings"
)

// replaceWord substitutes whole-word occurrences of old with new, so that
// e.g. "force" inside "force-pushing" isn't mangled by cat_mode relabeling
// of the standalone permission level word "force".
func replaceWord(s, old, new string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringIndex(s, -1) {
		if (m[0] > 0 && s[m[0]-1] == '-') || (m[1] < len(s) && s[m[1]] == '-') {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(new)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
