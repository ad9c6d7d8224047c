package filter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "tanyabot/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type failingStore struct {
	words []string
}

func (s *failingStore) LoadWords(context.Context) ([]string, error) { return s.words, nil }
func (s *failingStore) SaveWords(context.Context, []string) error   { return errors.New("disk full") }

func newFileFilter(t *testing.T) (*Filter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filtered_words.json")
	f, err := New(context.Background(), NewFileStore(path), zap.NewNop(), DefaultWords...)
	require.NoError(t, err)
	return f, path
}

func TestNewUsesDefaultsWhenFileMissing(t *testing.T) {
	f, path := newFileFilter(t)

	assert.Equal(t, DefaultWords, f.Words())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "defaults are not written until a mutation")
}

func TestContainsFiltered(t *testing.T) {
	f, _ := newFileFilter(t)
	require.NoError(t, f.Add(context.Background(), "Judi"))

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exact", "judi", true},
		{"inside_word", "perjudian online", true},
		{"default_word", "dasar memek", true},
		{"clean", "apa itu bot", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ContainsFiltered(tt.text))
		})
	}
}

func TestAddPersistsAndIsIdempotent(t *testing.T) {
	f, path := newFileFilter(t)
	ctx := context.Background()

	require.NoError(t, f.Add(ctx, "  Togel "))
	require.NoError(t, f.Add(ctx, "togel"))

	assert.Equal(t, []string{"kontol", "memek", "togel"}, f.Words())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["kontol","memek","togel"]`, string(data))

	reloaded, err := New(ctx, NewFileStore(path), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, f.Words(), reloaded.Words())
}

func TestAddRejectsEmptyWord(t *testing.T) {
	f, _ := newFileFilter(t)
	err := f.Add(context.Background(), "   ")
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestAddPersistenceFailureKeepsSet(t *testing.T) {
	f, err := New(context.Background(), &failingStore{words: []string{"kasar"}}, zap.NewNop())
	require.NoError(t, err)

	err = f.Add(context.Background(), "baru")
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))
	assert.Equal(t, []string{"kasar"}, f.Words())
	assert.False(t, f.ContainsFiltered("kata baru"))
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filtered_words.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(context.Background(), NewFileStore(path), zap.NewNop())
	assert.Error(t, err)
}

func TestWatcherReloadsOnExternalEdit(t *testing.T) {
	defer goleak.VerifyNone(t)

	f, path := newFileFilter(t)
	ctx, cancel := context.WithCancel(context.Background())

	w, err := NewWatcher(f, path, zap.NewNop())
	require.NoError(t, err)
	w.debounceDur = 10 * time.Millisecond
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte(`["spam"]`), 0o644))

	assert.Eventually(t, func() bool {
		return f.ContainsFiltered("ini spam") && w.Reloads() > 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.False(t, f.ContainsFiltered("kontol"))

	cancel()
	<-w.Done()
	time.Sleep(20 * time.Millisecond)
}
