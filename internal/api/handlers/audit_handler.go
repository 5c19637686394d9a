package handlers

import (
	"net/http"
	"strconv"

	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/audit"
)

type AuditHandler struct {
	logger *audit.Logger
}

func NewAuditHandler(logger *audit.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.logger.List(limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list activity", nil)
		return
	}
	if logs == nil {
		logs = []*audit.ActivityLog{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": logs})
}
