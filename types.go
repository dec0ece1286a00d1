package cssync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DeletedValue is the sentinel the browser extension sends as the "to" value
// of a change when a property was removed in the inspector. The patcher
// treats it as "remove this declaration", never as a literal CSS value.
const DeletedValue = "(deleted)"

// Declaration is a single "property: value" pair inside a rule block.
type Declaration struct {
	Property string
	Value    string
}

// Declarations preserves source order so that re-serializing a rule keeps
// unaffected properties exactly where they were.
type Declarations []Declaration

// Get returns the value for a property and whether it is present.
func (d Declarations) Get(property string) (string, bool) {
	for _, decl := range d {
		if decl.Property == property {
			return decl.Value, true
		}
	}
	return "", false
}

// Set overwrites an existing declaration in place or appends a new one.
func (d Declarations) Set(property, value string) Declarations {
	for i, decl := range d {
		if decl.Property == property {
			d[i].Value = value
			return d
		}
	}
	return append(d, Declaration{Property: property, Value: value})
}

// Remove drops a declaration, keeping the order of the rest.
func (d Declarations) Remove(property string) Declarations {
	for i, decl := range d {
		if decl.Property == property {
			return append(d[:i:i], d[i+1:]...)
		}
	}
	return d
}

// Clone returns an independent copy.
func (d Declarations) Clone() Declarations {
	out := make(Declarations, len(d))
	copy(out, d)
	return out
}

// Rule is one parsed "selector { declarations }" block.
//
// SourceStart and SourceEnd are byte offsets of the entire block (selector
// and braces included) into the exact content string the rule was parsed
// from. They are only valid against that content; any external edit
// invalidates them, which is why rules are always re-derived from a full
// re-parse after a write.
type Rule struct {
	Selector     string
	Declarations Declarations
	SourceStart  int
	SourceEnd    int
}

// StylesheetFile is a parsed CSS file held by the index. Rules is a derived
// view of RawContent and the two are only ever replaced together.
type StylesheetFile struct {
	Path       string
	RawContent string
	Rules      []Rule
	LastLoaded time.Time
}

// PropertyChange is one entry of a change event. The extension sends either
// a bare string (create/overwrite) or a {"from": ..., "to": ...} pair
// (modify, or delete when To is the deletion sentinel).
type PropertyChange struct {
	From  string
	To    string
	HasTo bool
}

// NewValue builds a bare-value change.
func NewValue(v string) PropertyChange {
	return PropertyChange{To: v, HasTo: true}
}

// FromTo builds a modify change.
func FromTo(from, to string) PropertyChange {
	return PropertyChange{From: from, To: to, HasTo: true}
}

// IsDeletion reports whether this change removes the property.
func (c PropertyChange) IsDeletion() bool {
	return c.HasTo && c.To == DeletedValue
}

// UnmarshalJSON accepts both wire shapes: "blue" and {"from":"red","to":"blue"}.
func (c *PropertyChange) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*c = PropertyChange{To: v, HasTo: true}
		return nil
	}
	var pair struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.Unmarshal(trimmed, &pair); err != nil {
		return fmt.Errorf("property change must be a string or a from/to object: %w", err)
	}
	*c = PropertyChange{From: pair.From, To: pair.To, HasTo: true}
	return nil
}

// MarshalJSON emits the from/to shape when a From side exists, else the bare value.
func (c PropertyChange) MarshalJSON() ([]byte, error) {
	if c.From == "" {
		return json.Marshal(c.To)
	}
	return json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{From: c.From, To: c.To})
}

// ChangeEvent is one observed inspector edit, produced by the browser
// extension. It is immutable input: the engine never mutates it.
type ChangeEvent struct {
	Selector   string                    `json:"selector"`
	ClassList  []string                  `json:"classList"`
	Changes    map[string]PropertyChange `json:"changes"`
	Domain     string                    `json:"domain,omitempty"`
	TargetPath string                    `json:"targetPath,omitempty"`
}

// VariationKind classifies how a candidate selector was derived.
type VariationKind string

const (
	VariationOriginal        VariationKind = "original"
	VariationIndividualClass VariationKind = "individual_class"
	VariationCombinedClasses VariationKind = "combined_classes"
	VariationElementClass    VariationKind = "element_class"
)

// SelectorVariation is a candidate selector to search the index for.
// Priority only seeds generation order; the scorer re-ranks by match quality.
type SelectorVariation struct {
	Selector string
	Priority int
	Kind     VariationKind
}

// MatchResult identifies the best (file, rule) pair for a change event.
type MatchResult struct {
	Path      string
	Rule      Rule
	Variation string
	Score     int
}

// PatchResult is the outcome of applying one change event. Failures are
// value-returned here, never raised past the service boundary.
type PatchResult struct {
	Success           bool     `json:"success"`
	File              string   `json:"file,omitempty"`
	Selector          string   `json:"selector,omitempty"`
	ChangedProperties []string `json:"changedProperties,omitempty"`
	Created           bool     `json:"created,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Status is the read-only view exposed to the extension popup.
type Status struct {
	RootPath       string            `json:"rootPath"`
	FilesIndexed   int               `json:"filesIndexed"`
	DomainMappings map[string]string `json:"domainMappings,omitempty"`
}

// MatcherConfig holds the scoring constants. The defaults are deliberate:
// they reproduce the historical behavior and have no derivation beyond
// having worked well in practice.
type MatcherConfig struct {
	ClassWeight  int // per class name found as ".class" in the rule selector
	TokenWeight  int // per variation token present in the rule selector
	ShortPenalty int // subtracted when the rule selector is shorter than 3 chars
	Threshold    int // scores must exceed this to count as a match
}

// DefaultMatcherConfig returns the historical scoring constants.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		ClassWeight:  30,
		TokenWeight:  20,
		ShortPenalty: 10,
		Threshold:    50,
	}
}

// Config is the service configuration supplied by the CLI or the agent.
type Config struct {
	// RootPath is the directory CSS files are discovered under.
	RootPath string
	// DomainMappings optionally routes events from a domain to a different root.
	DomainMappings map[string]string
	// Matcher holds the scoring constants; zero value means defaults.
	Matcher MatcherConfig
	// QueueDelay throttles the apply queue between items. Throttling only;
	// correctness never depends on it.
	QueueDelay time.Duration
}
