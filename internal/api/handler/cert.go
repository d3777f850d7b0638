package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remiblancher/private-ca/internal/api/dto"
	apierrors "github.com/remiblancher/private-ca/internal/api/errors"
	"github.com/remiblancher/private-ca/internal/api/service"
)

// CertHandler handles certificate-related HTTP requests.
type CertHandler struct {
	service *service.CertService
}

// NewCertHandler creates a new CertHandler.
func NewCertHandler(certService *service.CertService) *CertHandler {
	return &CertHandler{service: certService}
}

// Issue handles POST /api/v1/ca/{name}/certs
func (h *CertHandler) Issue(w http.ResponseWriter, r *http.Request) {
	caName := chi.URLParam(r, "name")
	if caName == "" {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("CA name is required"))
		return
	}

	var req dto.CertIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}
	if req.CSR == nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("CSR is required"))
		return
	}

	resp, err := h.service.Issue(r.Context(), caName, &req)
	if err != nil {
		status, apiErr := apierrors.MapError(err)
		respondError(w, status, apiErr)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Get handles GET /api/v1/ca/{name}/certs/{serial}
func (h *CertHandler) Get(w http.ResponseWriter, r *http.Request) {
	caName := chi.URLParam(r, "name")
	serial := chi.URLParam(r, "serial")
	if caName == "" || serial == "" {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("CA name and serial are required"))
		return
	}

	resp, err := h.service.Get(r.Context(), caName, serial)
	if err != nil {
		status, apiErr := apierrors.MapError(err)
		respondError(w, status, apiErr)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
