package cssync

import (
	"sort"
	"strings"
)

// GenerateVariations expands a change event into the candidate selectors to
// search the index for, highest priority first.
//
// The original selector is ranked lowest: it is usually an auto-generated
// DOM path ("div > div:nth-child(3) > span") and the least trustworthy thing
// to look for in hand-written stylesheets. Class-derived selectors rank
// higher, earlier classes above later ones.
//
// Priority only seeds the search order. The scorer re-ranks every candidate
// by actual match quality, so a lower-priority variation can still win.
func GenerateVariations(ev ChangeEvent) []SelectorVariation {
	var vars []SelectorVariation

	if ev.Selector != "" {
		vars = append(vars, SelectorVariation{
			Selector: ev.Selector,
			Priority: 1,
			Kind:     VariationOriginal,
		})
	}

	for i, class := range ev.ClassList {
		vars = append(vars, SelectorVariation{
			Selector: "." + class,
			Priority: 10 - i,
			Kind:     VariationIndividualClass,
		})
	}

	if len(ev.ClassList) > 1 {
		vars = append(vars, SelectorVariation{
			Selector: "." + strings.Join(ev.ClassList, "."),
			Priority: 5,
			Kind:     VariationCombinedClasses,
		})
	}

	if tag := leadingTag(ev.Selector); tag != "" {
		for i, class := range ev.ClassList {
			vars = append(vars, SelectorVariation{
				Selector: tag + "." + class,
				Priority: 8 - i,
				Kind:     VariationElementClass,
			})
		}
	}

	// Stable sort: equal priorities keep generation order.
	sort.SliceStable(vars, func(i, j int) bool {
		return vars[i].Priority > vars[j].Priority
	})
	return dedupeVariations(vars)
}

// dedupeVariations keeps the first (highest priority) occurrence of each
// selector string.
func dedupeVariations(vars []SelectorVariation) []SelectorVariation {
	seen := make(map[string]bool, len(vars))
	out := vars[:0]
	for _, v := range vars {
		if seen[v.Selector] {
			continue
		}
		seen[v.Selector] = true
		out = append(out, v)
	}
	return out
}

// leadingTag returns the bare element name a selector starts with ("div" in
// "div > .content"), or "" when the selector starts with anything else.
func leadingTag(selector string) string {
	fields := strings.Fields(selector)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	for i, r := range first {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return ""
		}
	}
	return first
}
