package lookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "tanyabot/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	name    string
	answer  string
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Search(ctx context.Context, _ string) (string, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.answer, s.err
}

func newResolver(t *testing.T, opts Options, sources ...Source) *Resolver {
	t.Helper()
	r, err := NewResolver(sources, opts, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "Ibu kota <b>Indonesia</b> adalah Jakarta", "Ibu kota Indonesia adalah Jakarta"},
		{"searchmatch_and_entity", `<span class="searchmatch">Bot</span> &amp; AI`, "Bot & AI"},
		{"whitespace", "  plain \n\t text ", "plain text"},
		{"script_dropped", "<script>alert(1)</script>halo", "halo"},
		{"quote_entity", "&quot;kutipan&quot;", `"kutipan"`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestBingSourceRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rahasia", r.Header.Get("Ocp-Apim-Subscription-Key"))
		q := r.URL.Query()
		assert.Equal(t, "ibu kota indonesia", q.Get("q"))
		assert.Equal(t, "true", q.Get("textDecorations"))
		assert.Equal(t, "HTML", q.Get("textFormat"))
		assert.Equal(t, "id", q.Get("setLang"))
		json.NewEncoder(w).Encode(map[string]any{
			"webPages": map[string]any{
				"value": []map[string]string{{"snippet": "Ibu kota <b>Indonesia</b> adalah Jakarta."}},
			},
		})
	}))
	defer srv.Close()

	got, err := NewBingSource(srv.URL, "rahasia", srv.Client()).Search(context.Background(), "ibu kota indonesia")
	require.NoError(t, err)
	assert.Equal(t, "Ibu kota <b>Indonesia</b> adalah Jakarta.", got)
}

func TestWikipediaSourceRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "borobudur", q.Get("srsearch"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("srlimit"))
		w.Write([]byte(`{"query":{"search":[{"title":"Borobudur","snippet":"<span class=\"searchmatch\">Borobudur</span> adalah candi"}]}}`))
	}))
	defer srv.Close()

	got, err := NewWikipediaSource(srv.URL, srv.Client()).Search(context.Background(), "borobudur")
	require.NoError(t, err)
	assert.Equal(t, `<span class="searchmatch">Borobudur</span> adalah candi`, got)
}

func TestSourceErrorsMatchLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("srsearch") == "rusak" {
			w.Write([]byte(`{not json`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewWikipediaSource(srv.URL, srv.Client())
	_, err := src.Search(context.Background(), "apa saja")
	assert.True(t, apperrors.IsLookup(err))

	_, err = src.Search(context.Background(), "rusak")
	assert.True(t, apperrors.IsLookup(err))
}

func TestResolverPriorityOrder(t *testing.T) {
	first := &fakeSource{name: "first", answer: "<b>pertama</b>"}
	second := &fakeSource{name: "second", answer: "kedua"}
	r := newResolver(t, Options{CacheEnabled: true}, first, second)

	got, ok := r.Resolve(context.Background(), "Apa Itu")
	require.True(t, ok)
	assert.Equal(t, "pertama", got)
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestResolverFallsThroughFailures(t *testing.T) {
	failing := &fakeSource{name: "failing", err: apperrors.ErrLookup}
	empty := &fakeSource{name: "empty", answer: "  "}
	good := &fakeSource{name: "good", answer: "jawaban"}
	r := newResolver(t, Options{}, failing, empty, good)

	got, ok := r.Resolve(context.Background(), "sesuatu")
	require.True(t, ok)
	assert.Equal(t, "jawaban", got)
}

func TestResolverPerSourceTimeout(t *testing.T) {
	slow := &fakeSource{name: "slow", answer: "terlambat", release: make(chan struct{})}
	fast := &fakeSource{name: "fast", answer: "cepat"}
	r := newResolver(t, Options{Timeout: 30 * time.Millisecond}, slow, fast)

	start := time.Now()
	got, ok := r.Resolve(context.Background(), "sesuatu")
	require.True(t, ok)
	assert.Equal(t, "cepat", got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolverCachesOutcomes(t *testing.T) {
	src := &fakeSource{name: "src", answer: "jawaban"}
	r := newResolver(t, Options{CacheEnabled: true}, src)
	ctx := context.Background()

	a1, ok1 := r.Resolve(ctx, "halo")
	a2, ok2 := r.Resolve(ctx, "  HALO ")
	assert.Equal(t, a1, a2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, r.CacheLen())
}

func TestResolverCachesNothingFound(t *testing.T) {
	src := &fakeSource{name: "src"}
	r := newResolver(t, Options{CacheEnabled: true}, src)
	ctx := context.Background()

	_, ok := r.Resolve(ctx, "tidak ada")
	assert.False(t, ok)
	_, ok = r.Resolve(ctx, "tidak ada")
	assert.False(t, ok)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestResolverAlwaysFetchWhenCacheDisabled(t *testing.T) {
	src := &fakeSource{name: "src", answer: "jawaban"}
	r := newResolver(t, Options{CacheEnabled: false}, src)
	ctx := context.Background()

	r.Resolve(ctx, "halo")
	r.Resolve(ctx, "halo")
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Zero(t, r.CacheLen())
}

func TestResolverSharesConcurrentMisses(t *testing.T) {
	src := &fakeSource{name: "src", answer: "jawaban", release: make(chan struct{})}
	r := newResolver(t, Options{CacheEnabled: true, Timeout: 5 * time.Second}, src)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Resolve(context.Background(), "halo")
		}(i)
	}

	assert.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, got := range results {
		assert.Equal(t, "jawaban", got)
	}
}

func TestResolverEmptyQuery(t *testing.T) {
	src := &fakeSource{name: "src", answer: "jawaban"}
	r := newResolver(t, Options{CacheEnabled: true}, src)

	_, ok := r.Resolve(context.Background(), "   ")
	assert.False(t, ok)
	assert.Zero(t, src.calls.Load())
}

func TestLRUCacheEvicts(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)
	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestSourcesFromConfig(t *testing.T) {
	withoutKey := SourcesFromConfig("", "", "", nil)
	require.Len(t, withoutKey, 1)
	assert.Equal(t, "wikipedia", withoutKey[0].Name())

	withKey := SourcesFromConfig("key", "", "", nil)
	require.Len(t, withKey, 2)
	assert.Equal(t, "bing", withKey[0].Name())
}
