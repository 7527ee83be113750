package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/requests"
	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/responses"
	"jan-server/services/helpdesk-api/internal/utils/platformerrors"
)

// MessageHandler accepts analysis results written back for stored messages.
type MessageHandler struct {
	messages *message.MessageService
	log      zerolog.Logger
}

func NewMessageHandler(messages *message.MessageService, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		log:      log.With().Str("handler", "message").Logger(),
	}
}

// SetAnalysis handles POST /v1/messages/:message_id/analysis
func (h *MessageHandler) SetAnalysis(c *gin.Context) {
	messageID, ok := uintParam(c, "message_id")
	if !ok {
		return
	}
	var req requests.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "1a2b3c4d-5e6f-4a70-8b91-c2d3e4f5a605")
		return
	}

	updated, err := h.messages.ApplyAnalysis(c.Request.Context(), messageID, message.Analysis{
		Urgency:   req.Urgency,
		Sentiment: req.Sentiment,
	})
	if err != nil {
		responses.HandleError(c, err, "failed to store analysis")
		return
	}
	h.log.Debug().Uint("message_id", messageID).Msg("analysis stored")
	c.JSON(http.StatusOK, responses.MessageResponse{Message: updated})
}
