// Package qa is the bot's learned knowledge: a question to answers map that
// persists on every write, plus fuzzy retrieval of the closest stored question.
package qa

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	apperrors "tanyabot/errors"
	"tanyabot/utils"

	"go.uber.org/zap"
)

// DefaultThreshold is the minimum Score a stored question needs to answer a query.
const DefaultThreshold = 70

// Entry is one learned question with every answer taught for it, oldest first.
type Entry struct {
	Question string
	Answers  []string
}

// Persister loads and rewrites the whole store. Entries are in insertion order.
type Persister interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Chooser picks one of n candidate answers.
type Chooser interface {
	Choose(n int) int
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(n int) int

func (f ChooserFunc) Choose(n int) int { return f(n) }

type randomChooser struct{}

func (randomChooser) Choose(n int) int { return rand.IntN(n) }

// NewRandomChooser returns the default uniform Chooser.
func NewRandomChooser() Chooser { return randomChooser{} }

type snapshot struct {
	entries []Entry
	index   map[string]int
}

func newSnapshot(entries []Entry) *snapshot {
	s := &snapshot{entries: entries, index: make(map[string]int, len(entries))}
	for i, e := range entries {
		s.index[e.Question] = i
	}
	return s
}

// Store is safe for concurrent use. Readers see an immutable snapshot and never
// wait on a write; a write is only published once the persister accepted it.
type Store struct {
	mu        sync.Mutex
	snap      atomic.Pointer[snapshot]
	persister Persister
	chooser   Chooser
	threshold int
	logger    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithChooser replaces the random answer picker.
func WithChooser(c Chooser) Option {
	return func(s *Store) { s.chooser = c }
}

// WithThreshold sets the minimum match score.
func WithThreshold(threshold int) Option {
	return func(s *Store) { s.threshold = threshold }
}

// NewStore loads all entries from persister.
func NewStore(ctx context.Context, persister Persister, logger *zap.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		persister: persister,
		chooser:   randomChooser{},
		threshold: DefaultThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	entries, err := persister.Load(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, "load qa store")
	}
	s.snap.Store(newSnapshot(mergeDuplicates(entries)))
	logger.Info("QA store loaded", zap.Int("questions", s.Len()))
	return s, nil
}

// Learn records answer under the normalized question, creating the entry when
// needed. Repeated answers are kept. If persisting fails the store is unchanged
// and the error matches errors.ErrPersistence.
func (s *Store) Learn(ctx context.Context, question, answer string) error {
	key := utils.NormalizeQuery(question)
	answer = strings.TrimSpace(answer)
	if key == "" || answer == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "question and answer must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load()
	next := make([]Entry, len(current.entries), len(current.entries)+1)
	copy(next, current.entries)
	if i, ok := current.index[key]; ok {
		e := next[i]
		next[i] = Entry{Question: e.Question, Answers: append(slices.Clone(e.Answers), answer)}
	} else {
		next = append(next, Entry{Question: key, Answers: []string{answer}})
	}

	if err := s.persister.Save(ctx, next); err != nil {
		s.logger.Error("Failed to persist qa store", zap.String("question", key), zap.Error(err))
		return apperrors.WrapError(apperrors.ErrPersistence, err.Error())
	}

	s.snap.Store(newSnapshot(next))
	s.logger.Debug("Learned answer", zap.String("question", key), zap.Int("questions", len(next)))
	return nil
}

// BestMatch scores query against every stored question and returns the
// highest scoring one with one of its answers. Among equal scores the earliest
// learned question wins. ok is false when nothing reaches the threshold.
func (s *Store) BestMatch(query string) (question, answer string, ok bool) {
	snap := s.snap.Load()
	best, bestScore := -1, -1
	for i, e := range snap.entries {
		if score := Score(query, e.Question); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < s.threshold {
		return "", "", false
	}

	e := snap.entries[best]
	if len(e.Answers) == 0 {
		return "", "", false
	}
	return e.Question, e.Answers[s.pick(len(e.Answers))], true
}

func (s *Store) pick(n int) int {
	i := s.chooser.Choose(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

// Answers returns a copy of the answers stored for question.
func (s *Store) Answers(question string) []string {
	snap := s.snap.Load()
	i, ok := snap.index[utils.NormalizeQuery(question)]
	if !ok {
		return nil
	}
	return slices.Clone(snap.entries[i].Answers)
}

// Keys returns the stored questions in insertion order.
func (s *Store) Keys() []string {
	snap := s.snap.Load()
	keys := make([]string, len(snap.entries))
	for i, e := range snap.entries {
		keys[i] = e.Question
	}
	return keys
}

// Len returns the number of stored questions.
func (s *Store) Len() int {
	return len(s.snap.Load().entries)
}

// mergeDuplicates folds entries that share a question, keeping the first position.
func mergeDuplicates(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := seen[e.Question]; ok {
			out[i].Answers = append(out[i].Answers, e.Answers...)
			continue
		}
		seen[e.Question] = len(out)
		out = append(out, Entry{Question: e.Question, Answers: slices.Clone(e.Answers)})
	}
	return out
}
