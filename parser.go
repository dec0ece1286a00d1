package cssync

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Parse extracts every "selector { declarations }" block from content,
// recording the byte offsets of each whole block so the patcher can splice
// replacement text verbatim.
//
// Brace matching does not recurse: an at-rule block such as @media or
// @keyframes is skipped (its selector contains '@') and its first inner
// closing brace terminates the scan of that block, so nested rules are
// dropped or mis-tokenized. This mirrors the flat structure the patcher
// can actually rewrite and is a documented limitation, not a bug to fix.
//
// Rules with zero declarations are kept; indexing needs them so a later
// change can fill an empty rule in place.
func Parse(content string) []Rule {
	return parseRules(content, false)
}

// ParseLenient is the diff-side variant: identical to Parse except that
// rules with no declarations are dropped. Use it only when comparing two
// stylesheets, never for indexing.
func ParseLenient(content string) []Rule {
	return parseRules(content, true)
}

func parseRules(content string, dropEmpty bool) []Rule {
	input := parse.NewInputString(content)
	lexer := css.NewLexer(input)

	var rules []Rule
	var sel strings.Builder
	selStart := -1

	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			// EOF or unrecoverable input; either way we are done.
			break
		}
		end := input.Offset()
		start := end - len(data)

		switch tt {
		case css.CommentToken:
			// Comments never begin a selector and never contribute to one.
			continue
		case css.WhitespaceToken:
			if selStart >= 0 {
				sel.Write(data)
			}
		case css.LeftBraceToken:
			blockEnd, decls := scanBlock(lexer, input)
			selector := strings.TrimSpace(sel.String())
			ruleStart := selStart
			sel.Reset()
			selStart = -1

			if ruleStart < 0 || selector == "" {
				continue
			}
			if strings.Contains(selector, "@") {
				// At-rule: the block was consumed (non-recursively) above.
				continue
			}
			if dropEmpty && len(decls) == 0 {
				continue
			}
			rules = append(rules, Rule{
				Selector:     selector,
				Declarations: decls,
				SourceStart:  ruleStart,
				SourceEnd:    blockEnd,
			})
		case css.RightBraceToken:
			// Stray close brace, typically the tail of an at-rule whose
			// inner block already terminated the non-recursive scan.
			sel.Reset()
			selStart = -1
		default:
			if selStart < 0 {
				selStart = start
			}
			sel.Write(data)
		}
	}
	return rules
}

// scanBlock consumes tokens up to the first closing brace (no nesting) and
// returns the offset just past it together with the parsed declarations.
func scanBlock(lexer *css.Lexer, input *parse.Input) (int, Declarations) {
	var raw strings.Builder
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken || tt == css.RightBraceToken {
			return input.Offset(), parseDeclarations(raw.String())
		}
		if tt == css.CommentToken {
			continue
		}
		raw.Write(data)
	}
}

// parseDeclarations splits a raw declaration body on ';', then each entry on
// its first ':'. Entries with an empty property or value are discarded.
// Order is preserved: re-serialization must keep unaffected properties
// exactly where the author wrote them.
func parseDeclarations(raw string) Declarations {
	var decls Declarations
	for _, entry := range strings.Split(raw, ";") {
		property, value, found := strings.Cut(entry, ":")
		if !found {
			continue
		}
		property = strings.TrimSpace(property)
		value = strings.TrimSpace(value)
		if property == "" || value == "" {
			continue
		}
		decls = decls.Set(property, value)
	}
	return decls
}

// SerializeRule renders a rule block in the canonical output form: selector,
// opening brace, one 2-space-indented declaration per line, closing brace.
func SerializeRule(selector string, decls Declarations) string {
	if len(decls) == 0 {
		return selector + " {\n}"
	}
	var b strings.Builder
	b.WriteString(selector)
	b.WriteString(" {\n")
	for i, decl := range decls {
		b.WriteString("  ")
		b.WriteString(decl.Property)
		b.WriteString(": ")
		b.WriteString(decl.Value)
		if i < len(decls)-1 {
			b.WriteString(";\n")
		}
	}
	b.WriteString(";\n}")
	return b.String()
}
