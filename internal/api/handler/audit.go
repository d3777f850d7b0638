package handler

import (
	"net/http"

	"github.com/remiblancher/private-ca/internal/api/dto"
	apierrors "github.com/remiblancher/private-ca/internal/api/errors"
	"github.com/remiblancher/private-ca/internal/audit"
)

// AuditHandler handles audit log HTTP requests.
type AuditHandler struct {
	logPath string
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(logPath string) *AuditHandler {
	return &AuditHandler{logPath: logPath}
}

// Verify handles POST /api/v1/audit/verify. It walks the audit log and
// checks the hash chain.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h.logPath == "" {
		respondError(w, http.StatusNotFound, apierrors.NewNotFound("audit log", ""))
		return
	}

	count, err := audit.VerifyChain(h.logPath)
	resp := dto.AuditVerifyResponse{
		Valid:  err == nil,
		Events: count,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}
