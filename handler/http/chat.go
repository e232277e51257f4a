package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docochat/src/core/chat"
)

type sendMessageRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

type sendMessageResponse struct {
	Reply   string `json:"reply"`
	Warning string `json:"warning,omitempty"`
}

// SendMessage godoc
// @Summary Send a chat message and get a grounded reply
// @Tags chat
// @Accept json
// @Produce json
// @Param body body sendMessageRequest true "Message parameters"
// @Success 200 {object} sendMessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /chat/messages [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	result, err := h.chatService.Send(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	resp := sendMessageResponse{Reply: result.Reply}
	if result.PersistenceErr != nil {
		resp.Warning = "reply could not be saved to chat history"
	}

	sendJSON(c, http.StatusOK, resp)
}

// GetChatHistory godoc
// @Summary Get a user's chat history, oldest first
// @Tags chat
// @Param user_id query string true "User ID"
// @Produce json
// @Success 200 {array} chat.Turn
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /chat/history [get]
func (h *Handler) GetChatHistory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		sendError(c, http.StatusBadRequest, chat.ErrUnknownUser)
		return
	}

	history, err := h.chatService.History(c.Request.Context(), userID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if history == nil {
		history = []chat.Turn{}
	}

	sendJSON(c, http.StatusOK, history)
}
