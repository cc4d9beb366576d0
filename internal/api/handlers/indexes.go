// indexes.go — обработчики индексов и файлов индекса.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/vinaykumarvk/create-EKG/internal/api/errors"
)

// ListIndexes — GET /api/v1/indexes
func (h *APIHandler) ListIndexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := h.indexes.ListIndexes(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка индексов", slog.String("error", err.Error()))
		apierrors.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indexes)
}

// CreateIndex — POST /api/v1/indexes (поле name).
func (h *APIHandler) CreateIndex(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}
	if err := checkCSRF(r, fields); err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	index, err := h.indexes.CreateIndex(r.Context(), fields.Get("name"))
	if err != nil {
		h.logger.Warn("Ошибка создания индекса", slog.String("error", err.Error()))
		apierrors.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, index)
}

// ListIndexFiles — GET /api/v1/indexes/{id}/files
func (h *APIHandler) ListIndexFiles(w http.ResponseWriter, r *http.Request) {
	indexID := chi.URLParam(r, "id")

	files, err := h.indexes.ListIndexFiles(r.Context(), indexID)
	if err != nil {
		h.logger.Error("Ошибка получения файлов индекса",
			slog.String("index_id", indexID),
			slog.String("error", err.Error()),
		)
		apierrors.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// DeleteIndexFiles — DELETE /api/v1/indexes/{id}/files (поле file_ids).
// Частичный отказ — 207 с перечнем неудаленных файлов.
func (h *APIHandler) DeleteIndexFiles(w http.ResponseWriter, r *http.Request) {
	indexID := chi.URLParam(r, "id")

	fields, err := readFields(w, r)
	if err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}
	if err := checkCSRF(r, fields); err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	result, err := h.indexes.DeleteIndexFiles(r.Context(), indexID, fields["file_ids"])
	if err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}
