package channel

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"inkroom/internal/apperr"
	"inkroom/internal/httpx"
	"inkroom/internal/middleware"
)

var validate = validator.New()

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Validation("invalid JSON body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpx.Error(w, apperr.Validation(err.Error()))
		return
	}

	c, err := h.Service.Create(r.Context(), req.Name, userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)

	channels, err := h.Service.ListForUser(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if channels == nil {
		channels = []Channel{}
	}
	httpx.JSON(w, http.StatusOK, channels)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(middleware.UserKey).(string)

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Validation("invalid JSON body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpx.Error(w, apperr.Validation(err.Error()))
		return
	}

	m, err := h.Service.Join(r.Context(), req.ChannelID, userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channelId")
	if channelID == "" {
		httpx.Error(w, apperr.Validation("channelId is required"))
		return
	}

	members, err := h.Service.Members(r.Context(), channelID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if members == nil {
		members = []Member{}
	}
	httpx.JSON(w, http.StatusOK, members)
}
