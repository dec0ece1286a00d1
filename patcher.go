package cssync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const newFileHeader = "/* Created by cssync. New rules land here when no existing rule matches. */\n"

// PatchedRule describes one successful write-back.
type PatchedRule struct {
	FilePath          string
	Selector          string
	ChangedProperties []string
	Created           bool
}

// RulePatcher rewrites exactly one rule block per call, leaving every other
// byte of the file untouched, and keeps the index consistent afterwards.
// Writes are not transactional: a crash mid-write leaves the file partially
// written. Accepted risk for a local development aid.
type RulePatcher struct {
	index  *FileIndex
	logger *slog.Logger
}

// NewRulePatcher wires a patcher to the index it must keep consistent.
func NewRulePatcher(index *FileIndex, logger *slog.Logger) *RulePatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RulePatcher{index: index, logger: logger}
}

// UpdateRule merges changes into an existing rule and splices the
// re-serialized block into the file at the rule's recorded offsets.
// Nothing outside [SourceStart, SourceEnd) is touched.
//
// On a write failure the cache keeps its pre-write state so a retry is
// safe. On success the file is fully re-parsed so offsets realign.
func (p *RulePatcher) UpdateRule(path string, rule Rule, changes map[string]PropertyChange) (PatchedRule, error) {
	file, ok := p.index.Get(path)
	if !ok {
		return PatchedRule{}, fmt.Errorf("%w: %s", ErrStaleIndex, path)
	}
	content := file.RawContent
	if rule.SourceStart < 0 || rule.SourceStart >= rule.SourceEnd || rule.SourceEnd > len(content) {
		return PatchedRule{}, fmt.Errorf("%w: offsets out of range for %s", ErrStaleIndex, path)
	}

	decls := rule.Declarations.Clone()
	for _, property := range sortedProperties(changes) {
		change := changes[property]
		if change.IsDeletion() {
			decls = decls.Remove(property)
			continue
		}
		decls = decls.Set(property, change.To)
	}

	newBlock := SerializeRule(rule.Selector, decls)
	newContent := content[:rule.SourceStart] + newBlock + content[rule.SourceEnd:]

	if err := os.WriteFile(file.Path, []byte(newContent), 0o644); err != nil {
		return PatchedRule{}, &WriteFailure{Path: file.Path, Err: err}
	}
	if err := p.index.Invalidate(file.Path); err != nil {
		// The write landed; a reload failure only degrades the next match.
		p.logger.Warn("re-index after write failed", "path", file.Path, "error", err)
	}

	p.logger.Info("rule updated", "path", file.Path, "selector", rule.Selector)
	return PatchedRule{
		FilePath:          file.Path,
		Selector:          rule.Selector,
		ChangedProperties: sortedProperties(changes),
	}, nil
}

// CreateRule appends a new rule block when no existing rule matched. The
// target is the largest indexed stylesheet under targetPath; when none is
// indexed a fresh main.css is synthesized there first.
func (p *RulePatcher) CreateRule(selector string, changes map[string]PropertyChange, targetPath string) (PatchedRule, error) {
	file, ok := p.index.LargestUnder(targetPath)
	if !ok {
		synthesized, err := p.synthesize(targetPath)
		if err != nil {
			return PatchedRule{}, err
		}
		file = synthesized
	}

	var decls Declarations
	for _, property := range sortedProperties(changes) {
		change := changes[property]
		if change.IsDeletion() {
			// Deleting from a rule that does not exist yet is a no-op.
			continue
		}
		decls = decls.Set(property, change.To)
	}

	newContent := file.RawContent + "\n\n" + SerializeRule(selector, decls)
	if err := os.WriteFile(file.Path, []byte(newContent), 0o644); err != nil {
		return PatchedRule{}, &WriteFailure{Path: file.Path, Err: err}
	}
	if err := p.index.Invalidate(file.Path); err != nil {
		p.logger.Warn("re-index after write failed", "path", file.Path, "error", err)
	}

	p.logger.Info("rule created", "path", file.Path, "selector", selector)
	return PatchedRule{
		FilePath:          file.Path,
		Selector:          selector,
		ChangedProperties: sortedProperties(changes),
		Created:           true,
	}, nil
}

// synthesize creates and indexes <targetPath>/main.css.
func (p *RulePatcher) synthesize(targetPath string) (*StylesheetFile, error) {
	abs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &WriteFailure{Path: abs, Err: err}
	}
	path := filepath.Join(abs, "main.css")
	if err := os.WriteFile(path, []byte(newFileHeader), 0o644); err != nil {
		return nil, &WriteFailure{Path: path, Err: err}
	}
	if err := p.index.Invalidate(path); err != nil {
		return nil, err
	}
	file, ok := p.index.Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStaleIndex, path)
	}
	return file, nil
}

// sortedProperties returns the change keys in a deterministic order.
func sortedProperties(changes map[string]PropertyChange) []string {
	properties := make([]string, 0, len(changes))
	for property := range changes {
		properties = append(properties, property)
	}
	sort.Strings(properties)
	return properties
}
