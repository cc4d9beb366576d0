// Пакет vectorstore — HTTP-клиент к сервису индексов документов
// (OpenAI Vector Stores + Files API).
// Операции: CreateIndex, ListIndexes, RetrieveIndex, ListIndexFilesPage,
// RetrieveFile, CreateFile, AttachFile (с опросом статуса), DetachFile, DeleteFile.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
)

const (
	// pageLimit — максимальный размер страницы списков API.
	pageLimit = 100
	// filePurpose — назначение загружаемых файлов.
	filePurpose = "assistants"
	// pollAfterHeader — подсказка сервиса об интервале опроса (мс).
	pollAfterHeader = "openai-poll-after-ms"
)

// APIError — ответ сервиса со статусом вне 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("сервис индексов вернул статус %d: %s", e.StatusCode, e.Message)
}

// IsNotFound сообщает, что ошибка — 404 от сервиса.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client — HTTP-клиент к API сервиса индексов.
type Client struct {
	baseURL      string // Базовый URL API (без trailing slash)
	apiKey       string
	pollInterval time.Duration

	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент.
// baseURL — например, https://api.openai.com/v1.
// pollInterval — интервал опроса статуса прикрепления, если сервис не подсказал свой.
// httpClient — HTTP-клиент; таймаут отдельных операций задаётся через context.
func New(baseURL, apiKey string, pollInterval time.Duration, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		pollInterval: pollInterval,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "vectorstore_client")),
	}
}

// BaseURL возвращает базовый URL API (для проверок доступности).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- HTTP helpers ---

// do выполняет авторизованный запрос. body сериализуется в JSON, если не nil.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req)
}

// send добавляет заголовки авторизации и выполняет запрос.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос %s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

// decodeResponse декодирует JSON ответ в target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("декодирование ответа сервиса индексов: %w", err)
		}
	}

	return nil
}

// readAPIError формирует APIError из тела ответа.
func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	message := strings.TrimSpace(string(body))
	var raw rawError
	if json.Unmarshal(body, &raw) == nil && raw.Error != nil && raw.Error.Message != nil {
		message = *raw.Error.Message
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// --- Vector stores ---

// CreateIndex создаёт новый индекс с отображаемым именем.
func (c *Client) CreateIndex(ctx context.Context, name string) (*model.Index, error) {
	resp, err := c.do(ctx, http.MethodPost, "/vector_stores", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	var raw rawVectorStore
	if err := decodeResponse(resp, &raw); err != nil {
		return nil, err
	}
	if raw.ID == nil || *raw.ID == "" {
		return nil, errors.New("сервис индексов не вернул id созданного индекса")
	}

	idx := toIndex(raw)
	c.logger.Info("Индекс создан",
		slog.String("index_id", idx.ID),
		slog.String("name", idx.Name),
	)
	return &idx, nil
}

// ListIndexes возвращает все индексы, обходя страницы.
func (c *Client) ListIndexes(ctx context.Context) ([]model.Index, error) {
	var (
		result []model.Index
		after  string
	)

	for {
		q := url.Values{"limit": {strconv.Itoa(pageLimit)}}
		if after != "" {
			q.Set("after", after)
		}

		resp, err := c.do(ctx, http.MethodGet, "/vector_stores?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var page rawList[rawVectorStore]
		if err := decodeResponse(resp, &page); err != nil {
			return nil, err
		}

		for _, raw := range page.Data {
			if raw.ID == nil || *raw.ID == "" {
				continue
			}
			result = append(result, toIndex(raw))
		}

		if len(page.Data) == 0 || !hasMore(page.HasMore, len(page.Data), pageLimit) {
			break
		}
		after = nextCursor(page.LastID, str(page.Data[len(page.Data)-1].ID))
		if after == "" {
			break
		}
	}

	return result, nil
}

// RetrieveIndex возвращает индекс по id.
func (c *Client) RetrieveIndex(ctx context.Context, indexID string) (*model.Index, error) {
	resp, err := c.do(ctx, http.MethodGet, "/vector_stores/"+url.PathEscape(indexID), nil)
	if err != nil {
		return nil, err
	}

	var raw rawVectorStore
	if err := decodeResponse(resp, &raw); err != nil {
		return nil, err
	}
	if raw.ID == nil {
		raw.ID = &indexID
	}

	idx := toIndex(raw)
	return &idx, nil
}

// --- Vector store files ---

// ListIndexFilesPage возвращает одну страницу файлов индекса.
// after — курсор (id последнего элемента предыдущей страницы).
func (c *Client) ListIndexFilesPage(ctx context.Context, indexID string, limit int, after string) (*model.IndexFilePage, error) {
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if after != "" {
		q.Set("after", after)
	}

	path := fmt.Sprintf("/vector_stores/%s/files?%s", url.PathEscape(indexID), q.Encode())
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raw rawList[rawVectorStoreFile]
	if err := decodeResponse(resp, &raw); err != nil {
		return nil, err
	}

	page := &model.IndexFilePage{
		Entries: make([]model.IndexFileEntry, 0, len(raw.Data)),
		HasMore: hasMore(raw.HasMore, len(raw.Data), limit),
	}
	for _, f := range raw.Data {
		if f.ID == nil || *f.ID == "" {
			continue
		}
		page.Entries = append(page.Entries, toFileEntry(f))
	}

	return page, nil
}

// AttachFile прикрепляет загруженный файл к индексу и опрашивает статус,
// пока обработка не выйдет из in_progress. Возвращает итоговый статус.
// Время ожидания ограничивает ctx.
func (c *Client) AttachFile(ctx context.Context, indexID, fileID string) (string, error) {
	path := fmt.Sprintf("/vector_stores/%s/files", url.PathEscape(indexID))
	resp, err := c.do(ctx, http.MethodPost, path, map[string]string{"file_id": fileID})
	if err != nil {
		return "", err
	}

	var raw rawVectorStoreFile
	if err := decodeResponse(resp, &raw); err != nil {
		return "", err
	}

	status := str(raw.Status)
	wait := c.pollInterval
	for status == model.FileStatusInProgress || status == "" {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}

		status, wait, err = c.retrieveIndexFile(ctx, indexID, fileID)
		if err != nil {
			return "", err
		}
	}

	c.logger.Debug("Файл прикреплён к индексу",
		slog.String("index_id", indexID),
		slog.String("file_id", fileID),
		slog.String("status", status),
	)
	return status, nil
}

// retrieveIndexFile возвращает статус файла в индексе и рекомендуемую паузу
// до следующего опроса.
func (c *Client) retrieveIndexFile(ctx context.Context, indexID, fileID string) (string, time.Duration, error) {
	path := fmt.Sprintf("/vector_stores/%s/files/%s", url.PathEscape(indexID), url.PathEscape(fileID))
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", 0, err
	}

	wait := c.pollInterval
	if ms, err := strconv.Atoi(resp.Header.Get(pollAfterHeader)); err == nil && ms > 0 {
		wait = time.Duration(ms) * time.Millisecond
	}

	var raw rawVectorStoreFile
	if err := decodeResponse(resp, &raw); err != nil {
		return "", 0, err
	}

	return str(raw.Status), wait, nil
}

// DetachFile открепляет файл от индекса.
func (c *Client) DetachFile(ctx context.Context, indexID, fileID string) error {
	path := fmt.Sprintf("/vector_stores/%s/files/%s", url.PathEscape(indexID), url.PathEscape(fileID))
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return checkDeleted(resp)
}

// --- Files ---

// RetrieveFile возвращает метаданные файла хранилища.
func (c *Client) RetrieveFile(ctx context.Context, fileID string) (*model.StoredFile, error) {
	resp, err := c.do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, err
	}

	var raw rawFile
	if err := decodeResponse(resp, &raw); err != nil {
		return nil, err
	}
	if raw.ID == nil {
		raw.ID = &fileID
	}

	f := toStoredFile(raw)
	return &f, nil
}

// CreateFile загружает файл в хранилище сервиса (multipart, purpose=assistants).
// Тело передаётся потоком.
func (c *Client) CreateFile(ctx context.Context, filename, contentType string, content io.Reader) (*model.StoredFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeFileForm(mw, filename, contentType, content)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(req)
	if err != nil {
		pr.Close()
		return nil, err
	}
	// Если сервис ответил до конца загрузки, освобождаем горутину записи
	defer pr.Close()

	var raw rawFile
	if err := decodeResponse(resp, &raw); err != nil {
		return nil, err
	}
	if raw.ID == nil || *raw.ID == "" {
		return nil, errors.New("сервис индексов не вернул id загруженного файла")
	}

	f := toStoredFile(raw)
	if f.Filename == "" {
		f.Filename = filename
	}
	return &f, nil
}

// writeFileForm записывает поля purpose и file в multipart-форму.
func writeFileForm(mw *multipart.Writer, filename, contentType string, content io.Reader) error {
	if err := mw.WriteField("purpose", filePurpose); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}

// DeleteFile удаляет файл из хранилища сервиса.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return err
	}
	return checkDeleted(resp)
}

// checkDeleted проверяет ответ на DELETE: 2xx и deleted != false.
func checkDeleted(resp *http.Response) error {
	var raw rawDeleted
	if err := decodeResponse(resp, &raw); err != nil {
		return err
	}
	if raw.Deleted != nil && !*raw.Deleted {
		return fmt.Errorf("сервис индексов не подтвердил удаление %s", str(raw.ID))
	}
	return nil
}

// hasMore возвращает признак следующей страницы; если сервис его не прислал,
// полная страница означает, что данные могут продолжаться.
func hasMore(flag *bool, got, limit int) bool {
	if flag != nil {
		return *flag
	}
	return got >= limit
}

// nextCursor выбирает курсор для следующей страницы.
func nextCursor(lastID *string, fallback string) string {
	if id := str(lastID); id != "" {
		return id
	}
	return fallback
}
