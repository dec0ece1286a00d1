package cssync

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Directories never descended into during discovery. Build artifacts and
// VCS metadata can contain generated .css we must not write back to.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".vscode":      true,
	".idea":        true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"vendor":       true,
	"coverage":     true,
}

// FileIndex is the in-memory stylesheet cache the scorer and patcher operate
// over. It is an explicit value owned by the Service (no ambient state), so
// independent indices can coexist, e.g. in tests.
//
// Entries are replaced whole: a file is always fully re-read and re-parsed
// after a write so rule offsets stay consistent with raw content. There is
// no eviction; CSS trees are small and the process is a short-lived local
// development aid.
type FileIndex struct {
	files  map[string]*StylesheetFile
	order  []string // insertion order, the stable scan order for matching
	logger *slog.Logger
}

// NewFileIndex returns an empty index. A nil logger falls back to slog.Default.
func NewFileIndex(logger *slog.Logger) *FileIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileIndex{
		files:  make(map[string]*StylesheetFile),
		logger: logger,
	}
}

// LoadRoot discovers every .css file under root and parses it into the
// index, returning how many files were indexed in this pass. A single
// unreadable or unparsable file is logged and skipped; one bad file must
// not abort indexing the rest of the tree.
func (ix *FileIndex) LoadRoot(root string) (int, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return 0, &ConfigurationError{Path: root, Reason: err.Error()}
	}
	if !info.IsDir() {
		return 0, &ConfigurationError{Path: root, Reason: "not a directory"}
	}

	// Layer 2 filtering: respect the project's .gitignore when present.
	// Gracefully degrades when the root has none.
	gi, _ := ignore.CompileIgnoreFile(filepath.Join(absRoot, ".gitignore"))

	matches, err := doublestar.FilepathGlob(filepath.Join(absRoot, "**", "*.css"))
	if err != nil {
		return 0, fmt.Errorf("glob %s: %w", absRoot, err)
	}
	sort.Strings(matches)

	count := 0
	seen := make(map[string]bool)
	for _, match := range matches {
		if seen[match] {
			continue
		}
		seen[match] = true

		rel, err := filepath.Rel(absRoot, match)
		if err != nil || shouldSkipPath(rel) {
			continue
		}
		if gi != nil && gi.MatchesPath(rel) {
			continue
		}
		if err := ix.loadFile(match); err != nil {
			ix.logger.Warn("skipping stylesheet", "path", match, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// EnsureLoaded is idempotent: a no-op when any cached entry already lives
// under root, otherwise it triggers a full LoadRoot.
func (ix *FileIndex) EnsureLoaded(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", root, err)
	}
	prefix := withSeparator(absRoot)
	for _, path := range ix.order {
		if strings.HasPrefix(path, prefix) {
			return nil
		}
	}
	_, err = ix.LoadRoot(absRoot)
	return err
}

// Invalidate forces a single file to be re-read and re-parsed. Called after
// every successful write so offsets realign with the new content. A file
// that disappeared is dropped from the index and reported.
func (ix *FileIndex) Invalidate(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := ix.loadFile(abs); err != nil {
		if os.IsNotExist(err) {
			ix.Remove(abs)
		}
		return err
	}
	return nil
}

// Remove drops a file from the index, e.g. after it was deleted externally.
func (ix *FileIndex) Remove(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	if _, ok := ix.files[abs]; !ok {
		return
	}
	delete(ix.files, abs)
	for i, p := range ix.order {
		if p == abs {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
}

// Get returns the cached entry for an absolute path.
func (ix *FileIndex) Get(path string) (*StylesheetFile, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	f, ok := ix.files[abs]
	return f, ok
}

// Len reports the number of indexed files.
func (ix *FileIndex) Len() int { return len(ix.files) }

// FilesUnder returns the indexed files whose path lives under prefix, in
// insertion order. Insertion order is the stable scan order the scorer
// relies on for tie-breaking.
func (ix *FileIndex) FilesUnder(prefix string) []*StylesheetFile {
	absPrefix, err := filepath.Abs(prefix)
	if err != nil {
		return nil
	}
	withSep := withSeparator(absPrefix)
	var out []*StylesheetFile
	for _, path := range ix.order {
		if path == absPrefix || strings.HasPrefix(path, withSep) {
			out = append(out, ix.files[path])
		}
	}
	return out
}

// LargestUnder returns the biggest (by content length) indexed file under
// prefix; the preferred target when a new rule has to be created.
func (ix *FileIndex) LargestUnder(prefix string) (*StylesheetFile, bool) {
	var best *StylesheetFile
	for _, f := range ix.FilesUnder(prefix) {
		if best == nil || len(f.RawContent) > len(best.RawContent) {
			best = f
		}
	}
	return best, best != nil
}

// loadFile reads and parses one stylesheet, replacing any previous entry.
func (ix *FileIndex) loadFile(abs string) error {
	// #nosec G304 - path comes from the configured root walk
	content, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	raw := string(content)
	_, existed := ix.files[abs]
	ix.files[abs] = &StylesheetFile{
		Path:       abs,
		RawContent: raw,
		Rules:      Parse(raw),
		LastLoaded: time.Now(),
	}
	if !existed {
		ix.order = append(ix.order, abs)
	}
	return nil
}

// shouldSkipPath reports whether any segment of a relative path is on the
// discovery deny-list.
func shouldSkipPath(rel string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if skipDirs[segment] {
			return true
		}
	}
	return false
}

func withSeparator(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return path
	}
	return path + string(filepath.Separator)
}
