package handlers

import (
	"errors"
	"net/http"

	"tanyabot/agent"
	"tanyabot/web/middleware"
	"tanyabot/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errNoSession = errors.New("session middleware did not run")

type ChatHandler struct {
	agent  *agent.Agent
	logger *zap.Logger
}

func NewChatHandler(agent *agent.Agent, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		agent:  agent,
		logger: logger,
	}
}

// SendMessage runs the message through the pipeline and returns what the bot said.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req types.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondToBindError(c, err)
		return
	}

	sessionID, ok := middleware.SessionID(c)
	if !ok {
		respondWithError(c, http.StatusInternalServerError, errNoSession, "Session unavailable", h.logger)
		return
	}

	tr := &responseTransport{}
	reply := h.agent.HandleMessage(c.Request.Context(), agent.Message{
		SessionID: sessionID.String(),
		UserID:    req.UserID,
		Text:      req.Text,
	}, tr)

	c.JSON(http.StatusOK, tr.response(sessionID.String(), reply.State))
}

// RunCommand answers a slash command named by the :name path parameter.
func (h *ChatHandler) RunCommand(c *gin.Context) {
	var req types.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondToBindError(c, err)
		return
	}

	sessionID, ok := middleware.SessionID(c)
	if !ok {
		respondWithError(c, http.StatusInternalServerError, errNoSession, "Session unavailable", h.logger)
		return
	}

	reply := h.agent.HandleCommand(c.Request.Context(), sessionID.String(), req.UserID, c.Param("name"), req.Args)
	c.JSON(http.StatusOK, replyResponse(sessionID.String(), reply))
}

func respondToBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondWithClientError(c, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	respondWithClientError(c, http.StatusBadRequest, "Invalid request: user_id is required and text is limited to 4096 characters")
}

func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.agent.Sessions().Len(),
	})
}
