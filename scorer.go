package cssync

import "strings"

// ExactMatchScore is the score assigned on raw selector equality. It beats
// anything the additive criteria can reach in practice.
const ExactMatchScore = 100

// Score computes the confidence that a parsed rule selector corresponds to
// one candidate selector, given the element's class list.
//
// Raw equality short-circuits at 100. Otherwise the score accumulates:
// ClassWeight per class name present as ".class" in the rule selector,
// TokenWeight per candidate token found among the rule's tokens, minus
// ShortPenalty for near-empty selectors like "*" or "a", clamped at zero.
// Matching is case-sensitive throughout.
func Score(ruleSelector, candidate string, classList []string, cfg MatcherConfig) int {
	if ruleSelector == candidate {
		return ExactMatchScore
	}

	s := normalizeSelector(ruleSelector)
	t := normalizeSelector(candidate)

	score := 0
	for _, class := range classList {
		if strings.Contains(s, "."+class) {
			score += cfg.ClassWeight
		}
	}

	sTokens := selectorTokens(s)
	for _, token := range selectorTokens(t) {
		for _, st := range sTokens {
			if st == token {
				score += cfg.TokenWeight
				break
			}
		}
	}

	if len(s) < 3 {
		score -= cfg.ShortPenalty
	}
	if score < 0 {
		score = 0
	}
	return score
}

// FindBestMatch scans every rule of every file in the search space against
// every variation and returns the single highest-scoring triple, provided it
// exceeds the acceptance threshold. Ties keep the first-found candidate, so
// the scan order (file insertion order, then rule order, then variation
// order) is part of the contract.
//
// A miss is not an error: it is the expected trigger for creating a new rule.
func FindBestMatch(variations []SelectorVariation, classList []string, space []*StylesheetFile, cfg MatcherConfig) (MatchResult, bool) {
	var best MatchResult
	found := false

	for _, file := range space {
		for _, rule := range file.Rules {
			for _, variation := range variations {
				score := Score(rule.Selector, variation.Selector, classList, cfg)
				if !found || score > best.Score {
					best = MatchResult{
						Path:      file.Path,
						Rule:      rule,
						Variation: variation.Selector,
						Score:     score,
					}
					found = true
				}
			}
		}
	}

	if !found || best.Score <= cfg.Threshold {
		return MatchResult{}, false
	}
	return best, true
}

// normalizeSelector collapses whitespace runs to single spaces and trims.
// Case is preserved.
func normalizeSelector(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// selectorTokens splits a normalized selector on whitespace and the CSS
// combinators, dropping empty tokens.
func selectorTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '>', '+', '~':
			return true
		}
		return false
	})
}
