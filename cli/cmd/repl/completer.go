package repl

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/strata/subst"
)

// candidates collects every dotted key path reachable in the
// namespace, in insertion order.
func candidates(ns *subst.Namespace) []string {
	var paths []string

	var walk func(ns *subst.Namespace, prefix string)

	walk = func(ns *subst.Namespace, prefix string) {
		for _, key := range ns.Keys() {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}

			paths = append(paths, path)

			if v, ok := ns.Value(key); ok {
				if sub, ok := v.(*subst.Namespace); ok {
					walk(sub, path)
				}
			}
		}
	}

	walk(ns, "")

	return paths
}

// currentWord locates the identifier-like word containing the cursor,
// returning its byte offsets. Words are dotted key paths.
func currentWord(text string, cursor int) (start, end int) {
	isWord := func(b byte) bool {
		return b == '.' || b == '_' || b == '-' ||
			('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') ||
			('0' <= b && b <= '9')
	}

	start, end = cursor, cursor
	for start > 0 && isWord(text[start-1]) {
		start--
	}

	for end < len(text) && isWord(text[end]) {
		end++
	}

	return start, end
}

// complete returns fuzzy matches for the word at the cursor.
func complete(pool []string, text string, cursor int) (fuzzy.Matches, int, int) {
	start, end := currentWord(text, cursor)
	word := strings.TrimSpace(text[start:end])

	if word == "" {
		return nil, start, end
	}

	return fuzzy.Find(word, pool), start, end
}
