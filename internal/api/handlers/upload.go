// upload.go — загрузка файлов в индекс (multipart, один или несколько файлов).
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	apierrors "github.com/vinaykumarvk/create-EKG/internal/api/errors"
	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
	"github.com/vinaykumarvk/create-EKG/internal/service"
)

// multipartMemory — часть формы, удерживаемая в памяти; остальное во временных файлах.
const multipartMemory = 32 << 20

// Накладные расходы multipart-формы сверх содержимого файлов.
const formOverheadBytes = 1 << 20

// Поля формы загрузки.
const (
	fieldFiles   = "files"
	fieldFile    = "file"
	fieldIndexID = "vector_store_id"
)

// uploadResponse — исходы по файлам и сводка.
type uploadResponse struct {
	Results []model.BatchItemResult `json:"results"`
	Summary model.BatchSummary      `json:"summary"`
}

// multipartSource — UploadSource поверх части multipart-формы.
type multipartSource struct {
	header *multipart.FileHeader
}

func (s multipartSource) Filename() string { return s.header.Filename }

func (s multipartSource) Open() (io.ReadCloser, error) {
	return s.header.Open()
}

// UploadFiles — POST /api/v1/upload
// Поля: files (или file), csrf_token, vector_store_id (опционально).
// 200 — все файлы загружены, 207 — частичный успех;
// ошибка единственного файла возвращается с её собственным статусом.
func (h *APIHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	bodyLimit := int64(h.limits.MaxBatchFiles)*h.limits.MaxFileBytes + formOverheadBytes
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, fmt.Sprintf("размер запроса превышает лимит %d байт", bodyLimit))
			return
		}
		apierrors.ValidationError(w, "ожидается multipart/form-data с файлами")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if err := checkCSRF(r, r.MultipartForm.Value); err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File[fieldFiles]...)
	headers = append(headers, r.MultipartForm.File[fieldFile]...)
	if len(headers) == 0 {
		apierrors.ValidationError(w, "не выбраны файлы для загрузки")
		return
	}
	if len(headers) > h.limits.MaxBatchFiles {
		apierrors.ValidationError(w, fmt.Sprintf("за один раз можно загрузить не более %d файлов", h.limits.MaxBatchFiles))
		return
	}

	sources := make([]service.UploadSource, 0, len(headers))
	for _, fh := range headers {
		sources = append(sources, multipartSource{header: fh})
	}

	indexID := r.MultipartForm.Value[fieldIndexID]
	var target string
	if len(indexID) > 0 {
		target = indexID[0]
	}

	results := h.ingest.IngestBatch(r.Context(), sources, target)
	for i := range results {
		if results[i].Err != nil {
			_, results[i].Code = apierrors.Classify(results[i].Err)
		}
	}
	summary := model.Summarize(results)

	if len(results) == 1 && !results[0].OK() {
		apierrors.WriteServiceError(w, results[0].Err)
		return
	}

	if summary.Succeeded > 0 {
		h.saveFlash(w, r, uploadFlash(summary))
	}

	status := http.StatusOK
	if summary.Failed > 0 {
		status = http.StatusMultiStatus
	}

	h.logger.Info("Загрузка файлов завершена",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	writeJSON(w, status, uploadResponse{Results: results, Summary: summary})
}

// uploadFlash формирует flash-сообщение по итогам загрузки.
func uploadFlash(summary model.BatchSummary) string {
	if summary.Total == 1 {
		return "File ingested successfully!"
	}
	return fmt.Sprintf("Ingested %d of %d files.", summary.Succeeded, summary.Total)
}
