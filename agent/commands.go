package agent

import (
	"context"
	"strings"

	apperrors "tanyabot/errors"
	"tanyabot/metrics"
	"tanyabot/utils"

	"go.uber.org/zap"
)

// Command names understood by HandleCommand.
const (
	CommandStart    = "start"
	CommandHelp     = "help"
	CommandAbout    = "about"
	CommandFeedback = "feedback"
	CommandTopics   = "topics"
	CommandSuggest  = "suggest"
)

// HandleCommand answers a slash command. Commands bypass the filter and the
// throttle; unknown names get the help text. The start, help and about
// replies carry a voice rendition; delivery is left to the caller.
func (a *Agent) HandleCommand(ctx context.Context, sessionID, userID, name, args string) Reply {
	name = strings.TrimPrefix(utils.NormalizeQuery(name), "/")

	var texts []string
	spoken := false
	switch name {
	case CommandStart:
		texts = []string{WelcomeText}
		spoken = true
	case CommandAbout:
		texts = []string{AboutText}
		spoken = true
	case CommandTopics:
		var topics []string
		if a.training != nil {
			topics = a.training.Topics()
		}
		texts = []string{topicsText(topics)}
	case CommandSuggest:
		texts = []string{suggestionText(suggestTopics(a.chooser, suggestionCount))}
	case CommandFeedback:
		texts = a.feedbackCommand(ctx, sessionID, args)
	default:
		texts = []string{HelpText}
		spoken = true
	}

	state, _, _ := a.sessions.Snapshot(sessionID)
	a.logger.Debug("Command handled",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.String("command", name))
	reply := Reply{Texts: texts, State: state}
	if spoken {
		reply.Voice = speechText(texts[0], a.cfg.VoiceMaxSentences, a.logger)
	}
	return reply
}

func (a *Agent) feedbackCommand(ctx context.Context, sessionID, args string) []string {
	token := utils.NormalizeQuery(args)
	if !isFeedbackToken(token) {
		return []string{FeedbackArgText}
	}

	sess := a.sessions.Acquire(sessionID)
	defer a.sessions.Release(sess)

	if err := expectingFeedback(sess); apperrors.IsState(err) {
		a.logger.Debug("Feedback rejected", zap.String("session_id", sessionID), zap.Error(err))
		return []string{NotExpectingText}
	}

	a.metrics.ObserveMessage(metrics.OutcomeFeedback)
	return a.resolveFeedback(ctx, sess, token)
}

func expectingFeedback(sess *Session) error {
	if sess.State != StateAwaitingFeedback || sess.Pending == nil {
		return apperrors.WrapErrorf(apperrors.ErrState, "session %s is %s", sess.ID, sess.State)
	}
	return nil
}
