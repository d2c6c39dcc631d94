package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/api/middleware"
	"github.com/talktojesus/api_server/internal/pkg/response"
	"github.com/talktojesus/api_server/internal/service"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
	cfg                 *config.Config
}

func NewConversationHandler(conversationService *service.ConversationService, cfg *config.Config) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		cfg:                 cfg,
	}
}

// SendMessage takes a recorded question and answers with text and audio
// POST /api/v1/conversation/send-message
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		response.ParamError(c, "audio file is required")
		return
	}
	defer file.Close()

	if h.cfg.Upload.MaxSize > 0 && header.Size > h.cfg.Upload.MaxSize {
		response.ParamError(c, fmt.Sprintf("audio too large, max %d bytes", h.cfg.Upload.MaxSize))
		return
	}

	if !isAudioContentType(header.Header.Get("Content-Type")) {
		response.ParamError(c, "unsupported audio format")
		return
	}

	resp, err := h.conversationService.SendMessage(c.Request.Context(), userID, service.ConversationInput{
		Filename: header.Filename,
		Audio:    file,
		Language: c.PostForm("language"),
	})
	if err != nil {
		var speechErr *service.SpeechError
		switch {
		case errors.Is(err, service.ErrPaymentRequired):
			response.PaymentRequiredError(c, "")
		case errors.Is(err, service.ErrTranscriptionFailed), errors.Is(err, service.ErrEmptyTranscription):
			response.ParamError(c, err.Error())
		case errors.As(err, &speechErr):
			response.ErrorWithData(c, response.CodeServerError, "could not generate audio", gin.H{
				"assistant_text": speechErr.AssistantText,
			})
		case errors.Is(err, service.ErrReplyFailed):
			response.ServerError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, resp)
}

func isAudioContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.HasPrefix(ct, "audio/") || ct == "application/octet-stream"
}
