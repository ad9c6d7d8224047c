package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	apperrors "tanyabot/errors"
	"tanyabot/utils"

	"go.uber.org/zap"
)

// Record is one answer the bot obtained from an external source.
type Record struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// RecordPersister loads and rewrites the training log.
type RecordPersister interface {
	LoadRecords(ctx context.Context) ([]Record, error)
	SaveRecords(ctx context.Context, records []Record) error
}

// TrainingLog is an append-only list of looked-up answers. It backs the
// topics command and the nearest-record fallback.
type TrainingLog struct {
	mu        sync.Mutex
	records   atomic.Pointer[[]Record]
	persister RecordPersister
	logger    *zap.Logger
}

func NewTrainingLog(ctx context.Context, persister RecordPersister, logger *zap.Logger) (*TrainingLog, error) {
	records, err := persister.LoadRecords(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, "load training log")
	}
	l := &TrainingLog{persister: persister, logger: logger}
	l.records.Store(&records)
	return l, nil
}

// Append records a query and the answer found for it.
func (l *TrainingLog) Append(ctx context.Context, query, response string) error {
	query = utils.NormalizeQuery(query)
	if query == "" || strings.TrimSpace(response) == "" {
		return apperrors.WrapError(apperrors.ErrInvalidInput, "empty training record")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := append(slices.Clone(*l.records.Load()), Record{Query: query, Response: response})
	if err := l.persister.SaveRecords(ctx, next); err != nil {
		l.logger.Error("Failed to persist training log", zap.String("query", query), zap.Error(err))
		return apperrors.WrapError(apperrors.ErrPersistence, err.Error())
	}
	l.records.Store(&next)
	return nil
}

// Topics lists distinct recorded queries in the order they were first seen.
func (l *TrainingLog) Topics() []string {
	var topics []string
	seen := make(map[string]bool)
	for _, r := range *l.records.Load() {
		if seen[r.Query] {
			continue
		}
		seen[r.Query] = true
		topics = append(topics, r.Query)
	}
	return topics
}

// Len returns the number of records.
func (l *TrainingLog) Len() int {
	return len(*l.records.Load())
}

// Nearest returns the most recent record whose query scores highest against
// query, provided the score reaches threshold.
func (l *TrainingLog) Nearest(query string, threshold int) (Record, bool) {
	records := *l.records.Load()
	best, bestScore := -1, -1
	for i := len(records) - 1; i >= 0; i-- {
		if score := Score(query, records[i].Query); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < threshold {
		return Record{}, false
	}
	return records[best], true
}

// FileRecordStore keeps the training log as a JSON array of {"query","response"}.
type FileRecordStore struct {
	path string
}

func NewFileRecordStore(path string) *FileRecordStore {
	return &FileRecordStore{path: path}
}

func (s *FileRecordStore) LoadRecords(_ context.Context) ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read training data: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode training data %s: %w", s.path, err)
	}
	return records, nil
}

func (s *FileRecordStore) SaveRecords(_ context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := utils.MarshalIndentNoEscape(records)
	if err != nil {
		return fmt.Errorf("encode training data: %w", err)
	}
	return utils.WriteFileAtomic(s.path, data)
}
