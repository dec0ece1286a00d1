package cssync

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// Service wires the parser, index, variation generator, scorer and patcher
// behind two operations: Configure and ApplyChange. It owns the FileIndex
// and serializes all apply work through a single FIFO queue, which is the
// mechanism that prevents interleaved read-modify-write cycles on a file.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	index   *FileIndex
	patcher *RulePatcher
	logger  *slog.Logger

	queue chan applyTask
	stop  chan struct{}
	once  sync.Once
}

type applyTask struct {
	event ChangeEvent
	done  chan PatchResult
}

// New returns a Service with an empty index and a running queue worker.
// A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		index:  NewFileIndex(logger),
		logger: logger,
		queue:  make(chan applyTask, 64),
		stop:   make(chan struct{}),
	}
	s.patcher = NewRulePatcher(s.index, logger)
	go s.worker()
	return s
}

// Configure resets the active root and domain mappings and triggers an
// initial index load. A bad root is fatal to the call and surfaced
// directly; no retry.
func (s *Service) Configure(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.RootPath == "" {
		return &ConfigurationError{Path: "", Reason: "root path is required"}
	}
	abs, err := filepath.Abs(cfg.RootPath)
	if err != nil {
		return &ConfigurationError{Path: cfg.RootPath, Reason: err.Error()}
	}
	cfg.RootPath = abs
	if cfg.Matcher == (MatcherConfig{}) {
		cfg.Matcher = DefaultMatcherConfig()
	}

	index := NewFileIndex(s.logger)
	count, err := index.LoadRoot(abs)
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.index = index
	s.patcher = NewRulePatcher(index, s.logger)
	s.logger.Info("configured", "root", abs, "files", count, "domains", len(cfg.DomainMappings))
	return nil
}

// ApplyChange resolves, matches and patches one change event synchronously.
// Every failure is value-returned as an unsuccessful PatchResult; nothing
// escapes as a panic or error past this boundary.
func (s *Service) ApplyChange(ev ChangeEvent) PatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ev)
}

// Enqueue places an event on the serial apply queue and returns a channel
// the single result will be delivered on. The queue drains one event at a
// time; any delay between items is throttling, not synchronization.
func (s *Service) Enqueue(ev ChangeEvent) <-chan PatchResult {
	done := make(chan PatchResult, 1)
	select {
	case <-s.stop:
		done <- failure(fmt.Errorf("service closed"))
		return done
	default:
	}
	select {
	case s.queue <- applyTask{event: ev, done: done}:
	case <-s.stop:
		done <- failure(fmt.Errorf("service closed"))
	}
	return done
}

// Status reports the read-only view consumed by the extension popup.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		RootPath:       s.cfg.RootPath,
		FilesIndexed:   s.index.Len(),
		DomainMappings: s.cfg.DomainMappings,
	}
}

// Index exposes the service's file index to collaborators that only read
// it, such as the watcher and the scan reporter.
func (s *Service) Index() *FileIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// InvalidateFile forces one file to be re-read and re-parsed, serialized
// against the apply queue. Used by the watcher on external edits.
func (s *Service) InvalidateFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Invalidate(path)
}

// RemoveFile drops one file from the index, serialized against the apply
// queue. Used by the watcher on external deletes.
func (s *Service) RemoveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Remove(path)
}

// Close stops the queue worker. In-flight work finishes; queued events that
// were not yet picked up are dropped.
func (s *Service) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Service) worker() {
	for {
		select {
		case <-s.stop:
			// Fail whatever was queued but never picked up so no caller
			// blocks on a result that will not come.
			for {
				select {
				case task := <-s.queue:
					task.done <- failure(fmt.Errorf("service closed"))
				default:
					return
				}
			}
		case task := <-s.queue:
			s.mu.Lock()
			delay := s.cfg.QueueDelay
			task.done <- s.apply(task.event)
			s.mu.Unlock()
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}
}

// apply is the single code path every change event funnels through.
// Callers must hold s.mu.
func (s *Service) apply(ev ChangeEvent) PatchResult {
	if err := validateEvent(ev); err != nil {
		return failure(err)
	}

	root, err := s.resolveRoot(ev)
	if err != nil {
		return failure(err)
	}
	if err := s.index.EnsureLoaded(root); err != nil {
		return failure(err)
	}

	variations := GenerateVariations(ev)
	space := s.index.FilesUnder(root)

	matcher := s.cfg.Matcher
	if matcher == (MatcherConfig{}) {
		// Reachable when an event carries its own target path before any
		// Configure call.
		matcher = DefaultMatcherConfig()
	}

	var patched PatchedRule
	if match, ok := FindBestMatch(variations, ev.ClassList, space, matcher); ok {
		s.logger.Debug("matched rule",
			"file", match.Path, "selector", match.Rule.Selector,
			"variation", match.Variation, "score", match.Score)
		patched, err = s.patcher.UpdateRule(match.Path, match.Rule, ev.Changes)
	} else {
		// No confident match: create a rule under the best candidate
		// selector (the highest-priority variation).
		patched, err = s.patcher.CreateRule(variations[0].Selector, ev.Changes, root)
	}
	if err != nil {
		return failure(err)
	}

	rel, relErr := filepath.Rel(root, patched.FilePath)
	if relErr != nil {
		rel = patched.FilePath
	}
	return PatchResult{
		Success:           true,
		File:              rel,
		Selector:          patched.Selector,
		ChangedProperties: patched.ChangedProperties,
		Created:           patched.Created,
	}
}

// resolveRoot picks the root directory for an event: an explicit target
// path wins, then the domain mapping, then the configured root.
func (s *Service) resolveRoot(ev ChangeEvent) (string, error) {
	root := s.cfg.RootPath
	if ev.Domain != "" {
		if mapped, ok := s.cfg.DomainMappings[ev.Domain]; ok {
			root = mapped
		}
	}
	if ev.TargetPath != "" {
		if filepath.IsAbs(ev.TargetPath) {
			root = ev.TargetPath
		} else if root != "" {
			root = filepath.Join(root, ev.TargetPath)
		} else {
			root = ev.TargetPath
		}
	}
	if root == "" {
		return "", ErrNotConfigured
	}
	return filepath.Abs(root)
}

func validateEvent(ev ChangeEvent) error {
	if ev.Selector == "" && len(ev.ClassList) == 0 {
		return fmt.Errorf("%w: no selector or class list", ErrInvalidEvent)
	}
	if len(ev.Changes) == 0 {
		return fmt.Errorf("%w: no property changes", ErrInvalidEvent)
	}
	return nil
}

func failure(err error) PatchResult {
	return PatchResult{Success: false, Error: err.Error()}
}
