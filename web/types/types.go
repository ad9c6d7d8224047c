package types

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text" binding:"max=4096"`
}

// CommandRequest is the body of POST /api/commands/:name.
type CommandRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Args   string `json:"args" binding:"max=256"`
}

// ChatMessage is one bot message as returned to the client.
type ChatMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

// ChatResponse is everything the bot said in reply to one request.
type ChatResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
	Voice     string        `json:"voice,omitempty"`
	State     string        `json:"state"`
}
