package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var tokenSplitRE = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Normalize folds compatibility forms (NFKC), lowercases and collapses
// whitespace. It is the canonical text used for signatures and tokens.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokens returns the set of word tokens of s. When s normalizes to text with
// no letters or digits (emoji only, punctuation only) the whitespace-separated
// fields are used instead, so the set is empty only for blank input.
func Tokens(s string) map[string]struct{} {
	normalized := Normalize(s)
	set := make(map[string]struct{})
	for _, tok := range tokenSplitRE.Split(normalized, -1) {
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	if len(set) == 0 {
		for _, f := range strings.Fields(normalized) {
			set[f] = struct{}{}
		}
	}
	return set
}

// Signature is the hex SHA-256 of the normalized text.
func Signature(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])
}

// contentLength counts non-space runes of the normalized text.
func contentLength(s string) int {
	n := 0
	for _, r := range Normalize(s) {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
