package services

import "strings"

// wordMatch reports whether a keyword phrase appears in a food name on word
// boundaries. Both inputs are tokenized on whitespace; a multi-word keyword
// must match a contiguous run of name tokens. Single tokens also match
// across a trailing "s"/"es" difference, so "egg" matches "Eggs" without
// matching "Eggplant".
func wordMatch(name, keyword string) bool {
	nameTokens := strings.Fields(strings.ToLower(name))
	keywordTokens := strings.Fields(strings.ToLower(keyword))
	if len(keywordTokens) == 0 || len(nameTokens) < len(keywordTokens) {
		return false
	}

	if len(keywordTokens) == 1 {
		for _, t := range nameTokens {
			if tokenEquals(t, keywordTokens[0]) {
				return true
			}
		}
		return false
	}

	for start := 0; start+len(keywordTokens) <= len(nameTokens); start++ {
		matched := true
		for i, kw := range keywordTokens {
			if !tokenEquals(nameTokens[start+i], kw) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// tokenEquals compares two tokens with naive singular/plural normalization:
// equal, or differing only by a trailing "s" or "es"
func tokenEquals(a, b string) bool {
	if a == b {
		return true
	}
	return a == b+"s" || a == b+"es" || b == a+"s" || b == a+"es"
}
