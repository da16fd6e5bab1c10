package chat

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"inkroom/internal/apperr"
	"inkroom/internal/httpx"
	"inkroom/internal/middleware"
)

const defaultHistoryLimit = 50

var validate = validator.New()

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Validation("invalid JSON body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpx.Error(w, apperr.Validation(err.Error()))
		return
	}

	m, err := h.Service.PostMessage(r.Context(), userID, req.ChannelID, req.Body, nil)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channelId")

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	messages, err := h.Service.ListMessages(r.Context(), channelID, limit)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	httpx.JSON(w, http.StatusOK, messages)
}

func (h *Handler) AddReaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)

	var req AddReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Validation("invalid JSON body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpx.Error(w, apperr.Validation(err.Error()))
		return
	}

	rc, err := h.Service.AddReaction(r.Context(), req.MessageID, userID, req.Emoji)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rc)
}

func (h *Handler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)

	messageID := r.URL.Query().Get("messageId")
	emoji := r.URL.Query().Get("emoji")

	if err := h.Service.RemoveReaction(r.Context(), messageID, userID, emoji); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "reaction deleted"})
}
