// Package filter holds the set of disallowed terms and answers whether a
// normalized message contains any of them.
package filter

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	apperrors "tanyabot/errors"

	"go.uber.org/zap"
)

// DefaultWords seed the set when no durable list exists yet.
var DefaultWords = []string{"kontol", "memek"}

// Persister loads and rewrites the durable word list.
// LoadWords returns an error matching errors.ErrNotFound when nothing has been stored yet.
type Persister interface {
	LoadWords(ctx context.Context) ([]string, error)
	SaveWords(ctx context.Context, words []string) error
}

// Filter is safe for concurrent use. Reads work on an immutable snapshot;
// writes are serialized and only published after the persister accepted them.
type Filter struct {
	mu        sync.Mutex
	words     atomic.Pointer[[]string]
	persister Persister
	logger    *zap.Logger
}

// New loads the word list from persister, falling back to defaults when none is stored.
func New(ctx context.Context, persister Persister, logger *zap.Logger, defaults ...string) (*Filter, error) {
	f := &Filter{persister: persister, logger: logger}

	words, err := persister.LoadWords(ctx)
	switch {
	case apperrors.IsNotFound(err):
		words = defaults
		logger.Info("No filter word list stored, using defaults", zap.Int("words", len(defaults)))
	case err != nil:
		return nil, apperrors.WrapError(err, "load filter words")
	}

	f.publish(normalizeAll(words))
	return f, nil
}

// ContainsFiltered reports whether any filter word occurs anywhere in text.
// Callers pass the lower-cased message; no word-boundary check is made.
func (f *Filter) ContainsFiltered(text string) bool {
	for _, w := range *f.words.Load() {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Add appends word if absent and persists the new list. Adding an existing word is a no-op.
func (f *Filter) Add(ctx context.Context, word string) error {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "empty filter word")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	current := *f.words.Load()
	if slices.Contains(current, word) {
		return nil
	}

	next := append(slices.Clone(current), word)
	if err := f.persister.SaveWords(ctx, next); err != nil {
		f.logger.Error("Failed to persist filter words", zap.String("word", word), zap.Error(err))
		return apperrors.WrapError(apperrors.ErrPersistence, err.Error())
	}

	f.publish(next)
	f.logger.Info("Filter word added", zap.Int("total_words", len(next)))
	return nil
}

// Reload replaces the in-memory set with the persisted list. On error the current set is kept.
func (f *Filter) Reload(ctx context.Context) error {
	words, err := f.persister.LoadWords(ctx)
	if err != nil {
		return apperrors.WrapError(err, "reload filter words")
	}

	f.mu.Lock()
	f.publish(normalizeAll(words))
	f.mu.Unlock()
	return nil
}

// Words returns a copy of the current list in insertion order.
func (f *Filter) Words() []string {
	return slices.Clone(*f.words.Load())
}

func (f *Filter) publish(words []string) {
	f.words.Store(&words)
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || slices.Contains(out, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}
