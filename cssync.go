// Package cssync writes live CSS edits made in a browser inspector back
// into the original source files on disk.
//
// The engine matches a changed DOM element (tag, class list, property
// deltas) against the rules of an indexed stylesheet tree, rewrites exactly
// one rule block in place, and preserves every other byte of the file. When
// no rule matches with enough confidence, a new rule is appended instead.
//
// # Usage
//
//	svc := cssync.New(logger)
//	err := svc.Configure(cssync.Config{RootPath: "web/styles"})
//	result := svc.ApplyChange(cssync.ChangeEvent{
//		Selector:  ".btn",
//		ClassList: []string{"btn"},
//		Changes:   map[string]cssync.PropertyChange{"color": cssync.FromTo("red", "blue")},
//	})
//
// The browser extension talks to the engine through the HTTP agent in
// internal/agent; the cssync CLI in cmd/cssync wires both together.
//
// The parser is deliberately not a full CSS parser: at-rules and nested
// rules are skipped, and no cascade specificity is computed. The matching
// is a fuzzy scorer over selector text, tuned for hand-written component
// stylesheets.
package cssync
