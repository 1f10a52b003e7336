// Package canvas talks to the remote scene graph: typed command wrappers,
// Unicode-aware name matching, and the tiered anchor resolver.
package canvas

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// zero-width code points that designers paste into layer names without
// noticing; stripped so visually identical names compare equal.
func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}

// NormalizeName canonically composes a node name (NFC) and strips whitespace
// and zero-width marks. Idempotent; applied before every name comparison.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFC.String(s) {
		if unicode.IsSpace(r) || isZeroWidth(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SameName reports whether two names are equal after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// NormalizeKey reduces a property key or semantic target name to its
// comparable form: lowercase alphanumerics only. Property keys carry an
// opaque per-component suffix ("showTitle#123:4"), so matching happens on
// these normalized tokens instead of raw equality.
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(norm.NFC.String(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchKey finds the property key matching a semantic target name: an exact
// normalized match wins, substring containment is the fallback. Pure
// function, independent of the network layer.
func MatchKey(target string, keys []string) (string, bool) {
	want := NormalizeKey(target)
	if want == "" {
		return "", false
	}
	for _, k := range keys {
		if NormalizeKey(k) == want {
			return k, true
		}
	}
	for _, k := range keys {
		if strings.Contains(NormalizeKey(k), want) {
			return k, true
		}
	}
	return "", false
}
