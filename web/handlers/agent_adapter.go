package handlers

import (
	"context"
	"sync"

	"tanyabot/agent"
	"tanyabot/utils"
	"tanyabot/web/format"
	"tanyabot/web/types"
)

// responseTransport captures what the agent delivers so it can be returned as
// the HTTP response body.
type responseTransport struct {
	mu       sync.Mutex
	messages []types.ChatMessage
	voice    string
}

func (t *responseTransport) SendText(_ context.Context, _, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, renderMessage(text))
	return nil
}

func (t *responseTransport) SendVoice(_ context.Context, _, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voice = text
	return nil
}

func (t *responseTransport) response(sessionID string, state agent.State) types.ChatResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.ChatResponse{
		SessionID: sessionID,
		Messages:  t.messages,
		Voice:     t.voice,
		State:     state.String(),
	}
}

// replyResponse builds a response from a reply that was not delivered through a transport.
func replyResponse(sessionID string, reply agent.Reply) types.ChatResponse {
	messages := make([]types.ChatMessage, 0, len(reply.Texts))
	for _, text := range reply.Texts {
		messages = append(messages, renderMessage(text))
	}
	return types.ChatResponse{
		SessionID: sessionID,
		Messages:  messages,
		Voice:     reply.Voice,
		State:     reply.State.String(),
	}
}

func renderMessage(text string) types.ChatMessage {
	return types.ChatMessage{
		ID:   utils.GenerateMessageID(),
		Text: text,
		HTML: format.ToHTML(text),
	}
}
