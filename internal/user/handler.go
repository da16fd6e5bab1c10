package user

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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Validation("invalid JSON body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpx.Error(w, apperr.Validation(err.Error()))
		return
	}

	u, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Validation("invalid JSON body"))
		return
	}
	if err := validate.Struct(&req); err != nil {
		httpx.Error(w, apperr.Validation(err.Error()))
		return
	}

	res, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserKey).(string)
	if !ok {
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	u, err := h.Service.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserKey).(string)
	if !ok {
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, apperr.Validation("invalid JSON body"))
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, u)
}
