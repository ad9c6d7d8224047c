package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	apperrors "tanyabot/errors"
	"tanyabot/utils"
)

// FileStore keeps the word list as a JSON array of strings.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location, used by the watcher.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) LoadWords(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, apperrors.WrapErrorf(apperrors.ErrNotFound, "filter words file %s", s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read filter words file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return []string{}, nil
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("decode filter words file %s: %w", s.path, err)
	}
	return words, nil
}

func (s *FileStore) SaveWords(_ context.Context, words []string) error {
	if words == nil {
		words = []string{}
	}
	data, err := utils.MarshalIndentNoEscape(words)
	if err != nil {
		return fmt.Errorf("encode filter words: %w", err)
	}
	return utils.WriteFileAtomic(s.path, data)
}
