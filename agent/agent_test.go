package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"tanyabot/config"
	"tanyabot/filter"
	"tanyabot/intent"
	"tanyabot/lookup"
	"tanyabot/metrics"
	"tanyabot/qa"
	"tanyabot/throttle"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryQA struct {
	mu      sync.Mutex
	entries []qa.Entry
	fail    bool
}

func (p *memoryQA) Load(context.Context) ([]qa.Entry, error) {
	return p.entries, nil
}

func (p *memoryQA) Save(_ context.Context, entries []qa.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("disk full")
	}
	p.entries = entries
	return nil
}

type memoryWords struct{ words []string }

func (p *memoryWords) LoadWords(context.Context) ([]string, error) { return p.words, nil }

func (p *memoryWords) SaveWords(_ context.Context, words []string) error {
	p.words = words
	return nil
}

type memoryRecords struct{ records []qa.Record }

func (p *memoryRecords) LoadRecords(context.Context) ([]qa.Record, error) { return p.records, nil }

func (p *memoryRecords) SaveRecords(_ context.Context, records []qa.Record) error {
	p.records = records
	return nil
}

// stubSource answers from a fixed table and counts calls.
type stubSource struct {
	answers map[string]string
	calls   atomic.Int32
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Search(_ context.Context, query string) (string, error) {
	s.calls.Add(1)
	return s.answers[query], nil
}

type recordingTransport struct {
	mu     sync.Mutex
	texts  []string
	voices []string
	err    error
}

func (t *recordingTransport) SendText(_ context.Context, _, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.texts = append(t.texts, text)
	return t.err
}

func (t *recordingTransport) SendVoice(_ context.Context, _, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voices = append(t.voices, text)
	return t.err
}

type fixture struct {
	agent     *Agent
	store     *qa.Store
	qaFile    *memoryQA
	training  *qa.TrainingLog
	throttle  *throttle.Throttle
	source    *stubSource
	resolves  atomic.Int32
	metrics   *metrics.Metrics
	transport *recordingTransport
}

type fixtureSetup struct {
	cfg     *config.Config
	qaFile  *memoryQA
	records *memoryRecords
	source  *stubSource
	intents Resolver
}

type fixtureOption func(s *fixtureSetup)

func withConfig(fn func(cfg *config.Config)) fixtureOption {
	return func(s *fixtureSetup) { fn(s.cfg) }
}

func withQA(question string, answers ...string) fixtureOption {
	return func(s *fixtureSetup) {
		s.qaFile.entries = append(s.qaFile.entries, qa.Entry{Question: question, Answers: answers})
	}
}

func withLookup(query, answer string) fixtureOption {
	return func(s *fixtureSetup) { s.source.answers[query] = answer }
}

func withRecord(query, response string) fixtureOption {
	return func(s *fixtureSetup) {
		s.records.records = append(s.records.records, qa.Record{Query: query, Response: response})
	}
}

func withIntents(rules ...intent.Rule) fixtureOption {
	return func(s *fixtureSetup) { s.intents = intent.NewMatcher(rules...) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	cfg := config.Default()
	cfg.FollowUpEnabled = false
	cfg.TopicSuggestionsEnabled = false
	setup := &fixtureSetup{
		cfg:     cfg,
		qaFile:  &memoryQA{},
		records: &memoryRecords{},
		source:  &stubSource{answers: map[string]string{}},
	}
	for _, opt := range opts {
		opt(setup)
	}
	qaFile, records, source := setup.qaFile, setup.records, setup.source

	f := &fixture{
		qaFile:    qaFile,
		source:    source,
		metrics:   metrics.New(),
		transport: &recordingTransport{},
	}

	var err error
	first := qa.ChooserFunc(func(int) int { return 0 })
	f.store, err = qa.NewStore(ctx, qaFile, logger, qa.WithChooser(first))
	require.NoError(t, err)
	f.training, err = qa.NewTrainingLog(ctx, records, logger)
	require.NoError(t, err)
	words, err := filter.New(ctx, &memoryWords{words: []string{"terlarang"}}, logger)
	require.NoError(t, err)
	resolver, err := lookup.NewResolver([]lookup.Source{source}, lookup.Options{
		CacheEnabled: cfg.LookupCacheEnabled,
		Metrics:      f.metrics,
	}, logger)
	require.NoError(t, err)
	f.throttle = throttle.New(cfg.ThrottleThreshold)

	f.agent = NewAgent(cfg, Deps{
		Filter:   words,
		Throttle: f.throttle,
		Store:    f.store,
		Intents:  setup.intents,
		Lookup: ResolverFunc(func(ctx context.Context, q string) (string, bool) {
			f.resolves.Add(1)
			return resolver.Resolve(ctx, q)
		}),
		Fallback: NewTrainingFallback(f.training, cfg.MatchThreshold),
		Training: f.training,
		Chooser:  first,
		Metrics:  f.metrics,
	}, logger)
	return f
}

func (f *fixture) send(t *testing.T, text string) Reply {
	t.Helper()
	return f.agent.HandleMessage(context.Background(), Message{SessionID: "s1", UserID: "u1", Text: text}, f.transport)
}

func (f *fixture) outcome(name string) float64 {
	return testutil.ToFloat64(f.metrics.MessagesTotal.WithLabelValues(name))
}

func TestEmptyMessage(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "   ")

	assert.Equal(t, []string{EmptyText}, reply.Texts)
	assert.Equal(t, StateIdle, reply.State)
	assert.Zero(t, f.throttle.Len())
}

func TestFilteredQueryHasNoSideEffects(t *testing.T) {
	f := newFixture(t, withLookup("kata terlarang", "tidak boleh"))

	teach := f.send(t, "pertanyaan baru")
	require.Equal(t, StateAwaitingLearningAnswer, teach.State)
	resolvesBefore := f.resolves.Load()

	for _, text := range []string{"kata terlarang", "ini TERLARANG sekali", "xterlarangx"} {
		reply := f.send(t, text)
		assert.Equal(t, []string{FilteredText}, reply.Texts, text)
		assert.Equal(t, StateAwaitingLearningAnswer, reply.State, "state is left alone")
		assert.Zero(t, f.throttle.Count("u1", text))
	}

	assert.Equal(t, resolvesBefore, f.resolves.Load())
	assert.EqualValues(t, 1, f.source.calls.Load(), "only the first query reached the source")
	assert.Zero(t, f.store.Len())
	assert.Zero(t, f.training.Len())
	assert.Equal(t, 3.0, f.outcome(metrics.OutcomeFiltered))
}

func TestRepeatedQueryIsThrottled(t *testing.T) {
	f := newFixture(t, withLookup("siapa presiden pertama", "Soekarno"))

	first := f.send(t, "siapa presiden pertama")
	assert.Equal(t, []string{"Soekarno", FeedbackPrompt}, first.Texts)

	second := f.send(t, "Siapa presiden pertama ")
	assert.Equal(t, []string{"Soekarno", FeedbackPrompt}, second.Texts)

	third := f.send(t, "siapa presiden pertama")
	assert.Equal(t, []string{ThrottledText}, third.Texts)

	assert.EqualValues(t, 2, f.resolves.Load(), "throttled message never reaches lookup")
	assert.EqualValues(t, 1, f.source.calls.Load(), "second lookup was served from cache")
	assert.Equal(t, 1.0, f.outcome(metrics.OutcomeThrottled))
}

func TestRepliesToPromptsAreNotThrottled(t *testing.T) {
	t.Run("feedback", func(t *testing.T) {
		f := newFixture(t,
			withLookup("ibukota jepang", "Tokyo"),
			withLookup("ibukota prancis", "Paris"),
			withLookup("ibukota italia", "Roma"))

		for _, q := range []string{"ibukota jepang", "ibukota prancis", "ibukota italia"} {
			f.send(t, q)
			reply := f.send(t, "ya")
			assert.Equal(t, []string{learnedText(q)}, reply.Texts)
		}

		assert.Equal(t, 3, f.store.Len())
		assert.Zero(t, f.throttle.Count("u1", "ya"))
		assert.Zero(t, f.outcome(metrics.OutcomeThrottled))
	})

	t.Run("taught answer", func(t *testing.T) {
		f := newFixture(t)

		for _, q := range []string{"warna langit", "jumlah kaki laba-laba", "hewan tercepat"} {
			f.send(t, q)
			reply := f.send(t, "Biru")
			assert.Equal(t, []string{learnedText(q), FeedbackPrompt}, reply.Texts)
		}

		assert.Equal(t, []string{"Biru"}, f.store.Answers("hewan tercepat"))
		assert.Zero(t, f.throttle.Count("u1", "biru"))
	})

	t.Run("ya outside feedback still counts", func(t *testing.T) {
		f := newFixture(t)
		f.send(t, "ya")
		assert.Equal(t, 1, f.throttle.Count("u1", "ya"))
	})
}

func TestEvaluator(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"addition", "2+2", "4"},
		{"true division", "(3*4)/2", "6.0"},
		{"malformed", "2+", EvalFailedText},
		{"derivative", "turunan dari fungsi x**2", "Turunan dari x**2 adalah 2*x"},
		{"integral", "integral 2*x", "Integral dari 2*x adalah x**2"},
		{"derivative without marker", "turunan x**2", EvalFailedText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			reply := f.send(t, tt.text)

			assert.Equal(t, []string{tt.want}, reply.Texts)
			assert.Equal(t, StateIdle, reply.State)
			assert.Zero(t, f.resolves.Load())
		})
	}
}

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
		state State
	}{
		{"exact", "apa itu bot", []string{"Saya adalah bot"}, StateIdle},
		{"one character changed", "apa itu bit", []string{"Saya adalah bot"}, StateIdle},
		{"unrelated", "resep nasi goreng", []string{TeachMeText}, StateAwaitingLearningAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, withQA("apa itu bot", "Saya adalah bot"))

			reply := f.send(t, tt.query)

			assert.Equal(t, tt.want, reply.Texts)
			assert.Equal(t, tt.state, reply.State)
		})
	}
}

func TestLearningRoundTrip(t *testing.T) {
	f := newFixture(t)

	reply := f.send(t, "pertanyaan baru")
	assert.Equal(t, []string{TeachMeText}, reply.Texts)
	assert.Equal(t, StateAwaitingLearningAnswer, reply.State)

	reply = f.send(t, "  Jawaban X ")
	assert.Equal(t, []string{learnedText("pertanyaan baru"), FeedbackPrompt}, reply.Texts)
	assert.Equal(t, StateAwaitingFeedback, reply.State)
	assert.Equal(t, []string{"Jawaban X"}, f.store.Answers("pertanyaan baru"))

	reply = f.send(t, "pertanyaan baru")
	assert.Equal(t, []string{"Jawaban X"}, reply.Texts)
	assert.Equal(t, StateIdle, reply.State)
	assert.Equal(t, 1.0, f.outcome(metrics.OutcomeMatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LearnedTotal))
}

func TestFeedbackAfterImmediateCommit(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"tidak", feedbackSorryText("pertanyaan baru")},
		{"ya", FeedbackThanks},
		{" YA ", FeedbackThanks},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			f := newFixture(t)
			f.send(t, "pertanyaan baru")
			f.send(t, "Jawaban X")

			reply := f.send(t, tt.token)

			assert.Equal(t, []string{tt.want}, reply.Texts)
			assert.Equal(t, StateIdle, reply.State)
			assert.Equal(t, []string{"Jawaban X"}, f.store.Answers("pertanyaan baru"), "feedback adds no duplicate")
		})
	}
}

func TestFeedbackBeforeCommit(t *testing.T) {
	confirm := withConfig(func(cfg *config.Config) { cfg.ConfirmBeforeCommit = true })

	t.Run("tidak discards", func(t *testing.T) {
		f := newFixture(t, confirm)
		f.send(t, "pertanyaan baru")

		reply := f.send(t, "Jawaban X")
		assert.Equal(t, []string{confirmText("pertanyaan baru")}, reply.Texts)
		assert.Equal(t, StateAwaitingFeedback, reply.State)
		assert.Zero(t, f.store.Len(), "nothing committed before confirmation")

		reply = f.send(t, "tidak")
		assert.Equal(t, []string{feedbackSorryText("pertanyaan baru")}, reply.Texts)
		assert.Equal(t, StateIdle, reply.State)
		assert.Zero(t, f.store.Len())
	})

	t.Run("ya commits", func(t *testing.T) {
		f := newFixture(t, confirm)
		f.send(t, "pertanyaan baru")
		f.send(t, "Jawaban X")

		reply := f.send(t, "ya")
		assert.Equal(t, []string{learnedText("pertanyaan baru")}, reply.Texts)
		assert.Equal(t, StateIdle, reply.State)
		assert.Equal(t, []string{"Jawaban X"}, f.store.Answers("pertanyaan baru"))
	})
}

func TestLookupAnswerIsOfferedForLearning(t *testing.T) {
	f := newFixture(t, withLookup("ibukota indonesia", "Jakarta adalah ibu kota Indonesia."))

	reply := f.send(t, "Ibukota Indonesia")
	assert.Equal(t, []string{"Jakarta adalah ibu kota Indonesia.", FeedbackPrompt}, reply.Texts)
	assert.Equal(t, StateAwaitingFeedback, reply.State)
	assert.Equal(t, []string{"ibukota indonesia"}, f.training.Topics())

	_, pending, ok := f.agent.Sessions().Snapshot("s1")
	require.True(t, ok)
	require.NotNil(t, pending.ProposedAnswer)
	assert.Equal(t, "Jakarta adalah ibu kota Indonesia.", *pending.ProposedAnswer)

	reply = f.send(t, "ya")
	assert.Equal(t, []string{learnedText("ibukota indonesia")}, reply.Texts)
	assert.Equal(t, []string{"Jakarta adalah ibu kota Indonesia."}, f.store.Answers("ibukota indonesia"))

	reply = f.send(t, "ibukota indonesia")
	assert.Equal(t, []string{"Jakarta adalah ibu kota Indonesia."}, reply.Texts)
	assert.Equal(t, StateIdle, reply.State)
	assert.EqualValues(t, 1, f.source.calls.Load())
}

func TestFreshQueryClearsPending(t *testing.T) {
	f := newFixture(t, withQA("apa itu bot", "Saya adalah bot"), withLookup("cuaca hari ini", "Cerah"))

	f.send(t, "cuaca hari ini")
	reply := f.send(t, "apa itu bot")

	assert.Equal(t, []string{"Saya adalah bot"}, reply.Texts)
	assert.Equal(t, StateIdle, reply.State)
	_, pending, _ := f.agent.Sessions().Snapshot("s1")
	assert.Nil(t, pending)

	reply = f.send(t, "ya")
	assert.Equal(t, []string{TeachMeText}, reply.Texts, "ya without a pending answer is an ordinary query")
}

func TestPersistenceFailure(t *testing.T) {
	t.Run("taught answer", func(t *testing.T) {
		f := newFixture(t)
		f.qaFile.fail = true
		f.send(t, "pertanyaan baru")

		reply := f.send(t, "Jawaban X")

		assert.Equal(t, []string{SaveFailedText}, reply.Texts)
		assert.Equal(t, StateIdle, reply.State)
		assert.Zero(t, f.store.Len())
		assert.Equal(t, 1.0, f.outcome(metrics.OutcomeSaveFailed))
	})

	t.Run("confirmed answer", func(t *testing.T) {
		f := newFixture(t, withLookup("ibukota indonesia", "Jakarta"))
		f.qaFile.fail = true
		f.send(t, "ibukota indonesia")

		reply := f.send(t, "ya")

		assert.Equal(t, []string{SaveFailedText}, reply.Texts)
		assert.Equal(t, StateIdle, reply.State)
		assert.Zero(t, f.store.Len())
	})
}

func TestModelFallback(t *testing.T) {
	record := withRecord("ibukota jepang", "Tokyo")

	t.Run("enabled", func(t *testing.T) {
		f := newFixture(t, record, withConfig(func(cfg *config.Config) { cfg.ModelFallbackEnabled = true }))

		reply := f.send(t, "ibukota jepang?")

		assert.Equal(t, []string{"Tokyo"}, reply.Texts)
		assert.Equal(t, StateIdle, reply.State)
		assert.Equal(t, 1.0, f.outcome(metrics.OutcomeFallback))
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, record)

		reply := f.send(t, "ibukota jepang?")

		assert.Equal(t, []string{TeachMeText}, reply.Texts)
	})
}

func TestFollowUpQuestion(t *testing.T) {
	f := newFixture(t,
		withQA("apa itu bot", "Saya adalah bot"),
		withConfig(func(cfg *config.Config) { cfg.FollowUpEnabled = true }))

	reply := f.send(t, "apa itu bot")
	assert.Equal(t, []string{"Saya adalah bot", followUpQuestion("apa itu bot")}, reply.Texts)

	reply = f.send(t, "2+2")
	assert.Equal(t, []string{"4"}, reply.Texts, "calculations get no follow-up")
}

func TestIntents(t *testing.T) {
	rules := []intent.Rule{
		{Keywords: []string{"tidur"}, Response: "Tidurlah yang cukup."},
		{Keywords: []string{"musik"}, Response: "Jenis musik apa yang Anda suka?"},
	}

	t.Run("answers before lookup", func(t *testing.T) {
		f := newFixture(t, withIntents(rules...), withLookup("musik pop", "Pop adalah genre musik."))

		reply := f.send(t, "musik pop")

		assert.Equal(t, []string{"Jenis musik apa yang Anda suka?"}, reply.Texts)
		assert.Equal(t, StateIdle, reply.State)
		assert.Zero(t, f.source.calls.Load())
		assert.Zero(t, f.training.Len())
		assert.Equal(t, 1.0, f.outcome(metrics.OutcomeIntent))
	})

	t.Run("learned answers win", func(t *testing.T) {
		f := newFixture(t, withIntents(rules...), withQA("susah tidur", "Minum susu hangat."))

		reply := f.send(t, "susah tidur")

		assert.Equal(t, []string{"Minum susu hangat."}, reply.Texts)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, withIntents(rules...), withConfig(func(cfg *config.Config) { cfg.IntentsEnabled = false }))

		reply := f.send(t, "susah tidur")

		assert.Equal(t, []string{TeachMeText}, reply.Texts)
	})
}

func TestTopicSuggestions(t *testing.T) {
	f := newFixture(t,
		withQA("apa itu bot", "Saya adalah bot"),
		withLookup("ibukota indonesia", "Jakarta"),
		withConfig(func(cfg *config.Config) { cfg.TopicSuggestionsEnabled = true }))
	suggestion := "Coba diskusikan topik ini: Kesehatan mental, Inovasi teknologi, Seni dan budaya"

	reply := f.send(t, "apa itu bot")
	assert.Equal(t, []string{"Saya adalah bot", suggestion}, reply.Texts)

	reply = f.send(t, "ibukota indonesia")
	assert.Equal(t, []string{"Jakarta", suggestion, FeedbackPrompt}, reply.Texts)

	reply = f.send(t, "pertanyaan baru")
	assert.Equal(t, []string{TeachMeText}, reply.Texts, "nothing to suggest around a teach-me prompt")
}

func TestSuggestTopicsSamplesDistinct(t *testing.T) {
	last := qa.ChooserFunc(func(n int) int { return n - 1 })

	got := suggestTopics(last, suggestionCount)

	assert.Equal(t, []string{"Literatur klasik", "Kesehatan mental", "Inovasi teknologi"}, got)
	assert.Len(t, suggestTopics(last, 100), len(suggestionTopics))
	assert.Equal(t, "Kesehatan mental", suggestionTopics[0], "sampling never reorders the shared list")
}

func TestDelivery(t *testing.T) {
	f := newFixture(t, withQA("tautan", "Lihat https://contoh.id/halaman untuk detail."))

	reply := f.send(t, "tautan")

	assert.Equal(t, []string{"Lihat https://contoh.id/halaman untuk detail."}, f.transport.texts)
	assert.Equal(t, []string{"Lihat untuk detail."}, f.transport.voices)
	assert.Equal(t, "Lihat untuk detail.", reply.Voice)
}

func TestDeliveryErrorsAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.transport.err = errors.New("connection reset")

	reply := f.send(t, "2+2")

	assert.Equal(t, []string{"4"}, reply.Texts)
	assert.Equal(t, []string{"4"}, f.transport.texts)
	assert.Equal(t, []string{"4"}, f.transport.voices)
}

func TestNilTransport(t *testing.T) {
	f := newFixture(t)
	reply := f.agent.HandleMessage(context.Background(), Message{SessionID: "s", UserID: "u", Text: "1+1"}, nil)
	assert.Equal(t, []string{"2"}, reply.Texts)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.agent.HandleMessage(ctx, Message{SessionID: "a", UserID: "ua", Text: "pertanyaan a"}, nil)
	b := f.agent.HandleMessage(ctx, Message{SessionID: "b", UserID: "ub", Text: "2+3"}, nil)

	assert.Equal(t, StateAwaitingLearningAnswer, a.State)
	assert.Equal(t, StateIdle, b.State)

	a = f.agent.HandleMessage(ctx, Message{SessionID: "a", UserID: "ua", Text: "jawaban a"}, nil)
	assert.Equal(t, StateAwaitingFeedback, a.State)
	assert.Equal(t, []string{"jawaban a"}, f.store.Answers("pertanyaan a"))
}

func TestConcurrentSessionsLearn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Random questions so no session's query fuzzily matches another's.
	const sessions = 20
	questions := make([]string, sessions)
	for i := range questions {
		questions[i] = "q" + uuid.NewString()
	}

	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			user := fmt.Sprintf("u%d", i)
			f.agent.HandleMessage(ctx, Message{SessionID: id, UserID: user, Text: questions[i]}, nil)
			f.agent.HandleMessage(ctx, Message{SessionID: id, UserID: user, Text: fmt.Sprintf("jawaban %d", i)}, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, sessions, f.store.Len())
	assert.Equal(t, sessions, f.agent.Sessions().Len())
	for i, q := range questions {
		assert.Equal(t, []string{fmt.Sprintf("jawaban %d", i)}, f.store.Answers(q))
	}
}
