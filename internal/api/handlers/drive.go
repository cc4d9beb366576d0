// drive.go — обзор папки Google Drive и импорт файла из неё.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/vinaykumarvk/create-EKG/internal/api/errors"
	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
)

// driveListResponse — содержимое папки Drive.
type driveListResponse struct {
	Files []model.DriveEntry `json:"files"`
}

// DriveList — POST /api/v1/drive/list (поле folder_link).
func (h *APIHandler) DriveList(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}
	if err := checkCSRF(r, fields); err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	files, err := h.drive.ListFolder(r.Context(), fields.Get("folder_link"))
	if err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, driveListResponse{Files: files})
}

// DriveIngest — POST /api/v1/drive/ingest (поля file_id, file_name, vector_store_id).
// Ответ совпадает с загрузкой одного файла.
func (h *APIHandler) DriveIngest(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(w, r)
	if err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}
	if err := checkCSRF(r, fields); err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	fileName := fields.Get("file_name")
	result, err := h.drive.ImportFile(r.Context(), fields.Get("file_id"), fileName, fields.Get(fieldIndexID))
	if err != nil {
		h.logger.Warn("Ошибка импорта файла из Drive",
			slog.String("file_id", fields.Get("file_id")),
			slog.String("error", err.Error()),
		)
		apierrors.WriteServiceError(w, err)
		return
	}

	h.saveFlash(w, r, fmt.Sprintf("Imported %s from Google Drive", fileName))
	item := model.BatchItemResult{Filename: fileName, Result: result}
	writeJSON(w, http.StatusOK, uploadResponse{
		Results: []model.BatchItemResult{item},
		Summary: model.Summarize([]model.BatchItemResult{item}),
	})
}
