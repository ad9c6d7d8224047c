// Package agent is the resolution pipeline: it decides, message by message,
// whether input is filtered, throttled, feedback, a taught answer, a
// calculation, a known question or something to look up or learn.
package agent

import (
	"context"
	"strings"

	"tanyabot/config"
	"tanyabot/mathexpr"
	"tanyabot/metrics"
	"tanyabot/qa"
	"tanyabot/utils"

	"go.uber.org/zap"
)

// ContentFilter rejects disallowed text.
type ContentFilter interface {
	ContainsFiltered(text string) bool
}

// Throttler counts repeats of the same query by the same user.
type Throttler interface {
	CheckAndIncrement(userID, query string) bool
}

// KnowledgeBase is the learned question/answer store.
type KnowledgeBase interface {
	BestMatch(query string) (question, answer string, ok bool)
	Learn(ctx context.Context, question, answer string) error
}

// TrainingRecorder keeps answers that came from external lookup.
type TrainingRecorder interface {
	Append(ctx context.Context, query, response string) error
	Topics() []string
}

// Transport delivers replies to the user. Errors are logged by the agent and never retried.
type Transport interface {
	SendText(ctx context.Context, sessionID, userID, text string) error
	SendVoice(ctx context.Context, sessionID, userID, text string) error
}

// Message is one inbound chat message.
type Message struct {
	SessionID string
	UserID    string
	Text      string
}

// Reply is everything the agent said in response to one message.
type Reply struct {
	Texts []string
	// Voice is the spoken rendition of the first text, "" when there is none.
	Voice string
	// State is the session state after the message was handled.
	State State
}

// Deps are the collaborators of the pipeline. Intents, Fallback, Training
// and Chooser are optional.
type Deps struct {
	Filter   ContentFilter
	Throttle Throttler
	Store    KnowledgeBase
	Intents  Resolver
	Lookup   Resolver
	Fallback Resolver
	Training TrainingRecorder
	Chooser  qa.Chooser
	Sessions *SessionStore
	Metrics  *metrics.Metrics
}

type Agent struct {
	cfg      *config.Config
	filter   ContentFilter
	throttle Throttler
	store    KnowledgeBase
	intents  Resolver
	lookup   Resolver
	fallback Resolver
	training TrainingRecorder
	chooser  qa.Chooser
	sessions *SessionStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewAgent(cfg *config.Config, deps Deps, logger *zap.Logger) *Agent {
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewSessionStore(deps.Metrics)
	}
	fallback := deps.Fallback
	if !cfg.ModelFallbackEnabled {
		fallback = nil
	}
	intents := deps.Intents
	if !cfg.IntentsEnabled {
		intents = nil
	}
	chooser := deps.Chooser
	if chooser == nil {
		chooser = qa.NewRandomChooser()
	}

	logger.Info("Agent initialized",
		zap.Bool("confirm_before_commit", cfg.ConfirmBeforeCommit),
		zap.Bool("intents", intents != nil),
		zap.Bool("model_fallback", fallback != nil),
		zap.Bool("follow_up", cfg.FollowUpEnabled),
		zap.Bool("topic_suggestions", cfg.TopicSuggestionsEnabled))

	return &Agent{
		cfg:      cfg,
		filter:   deps.Filter,
		throttle: deps.Throttle,
		store:    deps.Store,
		intents:  intents,
		lookup:   deps.Lookup,
		fallback: fallback,
		training: deps.Training,
		chooser:  chooser,
		sessions: sessions,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// Sessions exposes the session store, for the cleanup service and inspection.
func (a *Agent) Sessions() *SessionStore {
	return a.sessions
}

// HandleMessage runs one message through the pipeline and delivers the reply
// over tr, which may be nil. Messages of one session are handled one at a time.
// It never fails: every path ends in a reply.
func (a *Agent) HandleMessage(ctx context.Context, msg Message, tr Transport) Reply {
	sess := a.sessions.Acquire(msg.SessionID)
	texts, outcome := a.resolve(ctx, sess, msg)
	state := sess.State
	a.sessions.Release(sess)

	a.metrics.ObserveMessage(outcome)
	a.logger.Debug("Message handled",
		zap.String("session_id", msg.SessionID),
		zap.String("user_id", msg.UserID),
		zap.String("outcome", outcome),
		zap.Stringer("state", state))

	reply := Reply{Texts: texts, State: state}
	if len(texts) > 0 {
		reply.Voice = speechText(texts[0], a.cfg.VoiceMaxSentences, a.logger)
	}
	a.deliver(ctx, msg.SessionID, msg.UserID, tr, reply)
	return reply
}

func (a *Agent) resolve(ctx context.Context, sess *Session, msg Message) ([]string, string) {
	text := utils.NormalizeQuery(msg.Text)
	if text == "" {
		return []string{EmptyText}, metrics.OutcomeEmpty
	}

	if a.filter != nil && a.filter.ContainsFiltered(text) {
		return []string{FilteredText}, metrics.OutcomeFiltered
	}

	// Replies to a pending prompt are not queries and never count as repeats.
	feedback := sess.State == StateAwaitingFeedback && isFeedbackToken(text)
	taught := sess.State == StateAwaitingLearningAnswer && sess.Pending != nil

	if !feedback && !taught && a.throttle != nil && a.throttle.CheckAndIncrement(msg.UserID, text) {
		return []string{ThrottledText}, metrics.OutcomeThrottled
	}

	switch {
	case feedback:
		return a.resolveFeedback(ctx, sess, text), metrics.OutcomeFeedback
	case taught:
		return a.learnTaughtAnswer(ctx, sess, strings.TrimSpace(msg.Text))
	}

	sess.reset()
	return a.answer(ctx, sess, text)
}

// resolveFeedback settles the pending record with "ya" or "tidak" and returns the session to idle.
func (a *Agent) resolveFeedback(ctx context.Context, sess *Session, token string) []string {
	pending := sess.Pending
	sess.reset()

	if pending == nil {
		return []string{NotExpectingText}
	}
	if token == feedbackNo {
		return []string{feedbackSorryText(pending.Query)}
	}
	if pending.ProposedAnswer == nil {
		return []string{FeedbackThanks}
	}

	if err := a.store.Learn(ctx, pending.Query, *pending.ProposedAnswer); err != nil {
		a.logger.Error("Failed to learn confirmed answer",
			zap.String("session_id", sess.ID),
			zap.String("query", pending.Query),
			zap.Error(err))
		return []string{SaveFailedText}
	}
	a.metrics.Learned()
	return []string{learnedText(pending.Query)}
}

// learnTaughtAnswer handles the user's reply to a teach-me prompt. By default
// the answer is committed right away and feedback only acknowledges it; with
// ConfirmBeforeCommit it is held until the user says "ya".
func (a *Agent) learnTaughtAnswer(ctx context.Context, sess *Session, answer string) ([]string, string) {
	query := sess.Pending.Query

	if a.cfg.ConfirmBeforeCommit {
		sess.await(StateAwaitingFeedback, &Pending{Query: query, ProposedAnswer: &answer})
		return []string{confirmText(query)}, metrics.OutcomeTaught
	}

	if err := a.store.Learn(ctx, query, answer); err != nil {
		sess.reset()
		a.logger.Error("Failed to learn taught answer",
			zap.String("session_id", sess.ID),
			zap.String("query", query),
			zap.Error(err))
		return []string{SaveFailedText}, metrics.OutcomeSaveFailed
	}

	a.metrics.Learned()
	sess.await(StateAwaitingFeedback, &Pending{Query: query})
	return []string{learnedText(query), FeedbackPrompt}, metrics.OutcomeTaught
}

// answer tries each strategy in order: evaluator, learned answers, keyword
// intents, external lookup, the optional fallback, and finally asks the user
// to teach it.
func (a *Agent) answer(ctx context.Context, sess *Session, query string) ([]string, string) {
	if mathexpr.LooksEvaluable(query) {
		result, err := mathexpr.Evaluate(query)
		if err != nil {
			a.logger.Debug("Evaluation failed", zap.String("query", query), zap.Error(err))
			return []string{EvalFailedText}, metrics.OutcomeEvalFailed
		}
		return []string{result}, metrics.OutcomeEvaluated
	}

	if _, answer, ok := a.store.BestMatch(query); ok {
		return a.withExtras(query, answer), metrics.OutcomeMatched
	}

	if a.intents != nil {
		if answer, ok := a.intents.Resolve(ctx, query); ok {
			return a.withExtras(query, answer), metrics.OutcomeIntent
		}
	}

	if a.lookup != nil {
		if answer, ok := a.lookup.Resolve(ctx, query); ok {
			a.recordTraining(ctx, query, answer)
			sess.await(StateAwaitingFeedback, &Pending{Query: query, ProposedAnswer: &answer})
			return append(a.withExtras(query, answer), FeedbackPrompt), metrics.OutcomeLookedUp
		}
	}

	if a.fallback != nil {
		if answer, ok := a.fallback.Resolve(ctx, query); ok {
			return a.withExtras(query, answer), metrics.OutcomeFallback
		}
	}

	sess.await(StateAwaitingLearningAnswer, &Pending{Query: query})
	return []string{TeachMeText}, metrics.OutcomeTeachMe
}

// withExtras follows an answer with the optional follow-up question and topic suggestions.
func (a *Agent) withExtras(query, answer string) []string {
	texts := []string{answer}
	if a.cfg.FollowUpEnabled {
		if q := followUpQuestion(query); q != "" {
			texts = append(texts, q)
		}
	}
	if a.cfg.TopicSuggestionsEnabled {
		texts = append(texts, suggestionText(suggestTopics(a.chooser, suggestionCount)))
	}
	return texts
}

func (a *Agent) recordTraining(ctx context.Context, query, answer string) {
	if a.training == nil {
		return
	}
	if err := a.training.Append(ctx, query, answer); err != nil {
		a.logger.Warn("Failed to record training data", zap.String("query", query), zap.Error(err))
	}
}

func (a *Agent) deliver(ctx context.Context, sessionID, userID string, tr Transport, reply Reply) {
	if tr == nil {
		return
	}
	for _, text := range reply.Texts {
		if err := tr.SendText(ctx, sessionID, userID, text); err != nil {
			a.logger.Warn("Failed to deliver text", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	if reply.Voice != "" {
		if err := tr.SendVoice(ctx, sessionID, userID, reply.Voice); err != nil {
			a.logger.Warn("Failed to deliver voice", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}
