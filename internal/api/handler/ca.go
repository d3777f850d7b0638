package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remiblancher/private-ca/internal/api/dto"
	apierrors "github.com/remiblancher/private-ca/internal/api/errors"
	"github.com/remiblancher/private-ca/internal/api/service"
)

// CAHandler handles CA-related HTTP requests.
type CAHandler struct {
	service *service.CAService
}

// NewCAHandler creates a new CAHandler.
func NewCAHandler(caService *service.CAService) *CAHandler {
	return &CAHandler{service: caService}
}

// Create handles POST /api/v1/ca
func (h *CAHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CACreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}

	resp, err := h.service.Create(r.Context(), &req)
	if err != nil {
		status, apiErr := apierrors.MapError(err)
		respondError(w, status, apiErr)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/v1/ca
func (h *CAHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context())
	if err != nil {
		status, apiErr := apierrors.MapError(err)
		respondError(w, status, apiErr)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/ca/{name}
func (h *CAHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("CA name is required"))
		return
	}

	resp, err := h.service.Get(r.Context(), name)
	if err != nil {
		status, apiErr := apierrors.MapError(err)
		respondError(w, status, apiErr)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Children handles GET /api/v1/ca/{name}/children
func (h *CAHandler) Children(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("CA name is required"))
		return
	}

	resp, err := h.service.Children(r.Context(), name)
	if err != nil {
		status, apiErr := apierrors.MapError(err)
		respondError(w, status, apiErr)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
