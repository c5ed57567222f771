package membersync

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// German letters get their conventional digraphs before the generic
// diacritic fold turns ä into a.
var umlauts = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
	"ß", "ss",
)

// deaccent decomposes characters and strips combining marks (é -> e).
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func transliterate(s string) string {
	s = umlauts.Replace(s)
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		return s
	}
	return out
}

func allowedUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '-' || r == '_':
		return true
	}
	return false
}

// sanitizeUsername keeps letters, digits and the allowed punctuation,
// substitutes an underscore for each space and drops everything else.
func sanitizeUsername(username string) string {
	var b strings.Builder
	for _, r := range transliterate(username) {
		switch {
		case allowedUsernameRune(r):
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// usernameBase derives the base username candidate from an e-mail address:
// the local part, transliterated, filtered and lowercased.
func usernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(sanitizeUsername(local))
}

// findFreeUsername probes taken for the base candidate, then base1, base2,
// and so on, returning the first untaken name. The probing is strictly
// sequential: the identity store may race between probe and create, so
// short-circuiting on the first free name is the only safe strategy.
func findFreeUsername(ctx context.Context, base string, taken func(context.Context, string) (bool, error)) (string, error) {
	for idx := 0; ; idx++ {
		candidate := base
		if idx > 0 {
			candidate = fmt.Sprintf("%s%d", base, idx)
		}
		inUse, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !inUse {
			return candidate, nil
		}
	}
}
