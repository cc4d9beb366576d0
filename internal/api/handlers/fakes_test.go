package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
	"github.com/vinaykumarvk/create-EKG/internal/service"
	"github.com/vinaykumarvk/create-EKG/internal/ui/auth"
	uimiddleware "github.com/vinaykumarvk/create-EKG/internal/ui/middleware"
)

const testCSRF = "test-csrf-token"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memBackend — минимальный in-memory IndexBackend.
type memBackend struct {
	mu        sync.Mutex
	indexes   map[string]*model.Index
	files     map[string]*model.StoredFile
	entries   map[string][]model.IndexFileEntry
	deleteErr map[string]bool
	nextID    int
}

func newMemBackend() *memBackend {
	return &memBackend{
		indexes:   map[string]*model.Index{},
		files:     map[string]*model.StoredFile{},
		entries:   map[string][]model.IndexFileEntry{},
		deleteErr: map[string]bool{},
	}
}

func (m *memBackend) addFile(indexID, fileID, name string) {
	if _, ok := m.indexes[indexID]; !ok {
		m.indexes[indexID] = &model.Index{ID: indexID, Name: indexID}
	}
	m.files[fileID] = &model.StoredFile{ID: fileID, Filename: name, Bytes: 10}
	m.entries[indexID] = append(m.entries[indexID], model.IndexFileEntry{ID: fileID, Status: model.FileStatusCompleted})
	m.indexes[indexID].FileCount++
}

func (m *memBackend) CreateIndex(_ context.Context, name string) (*model.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	idx := &model.Index{ID: fmt.Sprintf("vs_%d", m.nextID), Name: name}
	m.indexes[idx.ID] = idx
	return idx, nil
}

func (m *memBackend) ListIndexes(_ context.Context) ([]model.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Index, 0, len(m.indexes))
	for _, idx := range m.indexes {
		out = append(out, *idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBackend) RetrieveIndex(_ context.Context, indexID string) (*model.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[indexID]
	if !ok {
		return nil, errors.New("not found")
	}
	c := *idx
	return &c, nil
}

func (m *memBackend) ListIndexFilesPage(_ context.Context, indexID string, _ int, _ string) (*model.IndexFilePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.IndexFilePage{Entries: append([]model.IndexFileEntry(nil), m.entries[indexID]...)}, nil
}

func (m *memBackend) RetrieveFile(_ context.Context, fileID string) (*model.StoredFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, errors.New("not found")
	}
	c := *f
	return &c, nil
}

func (m *memBackend) CreateFile(_ context.Context, filename, _ string, content io.Reader) (*model.StoredFile, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	f := &model.StoredFile{ID: fmt.Sprintf("file_%d", m.nextID), Filename: filename, Bytes: int64(len(data))}
	m.files[f.ID] = f
	c := *f
	return &c, nil
}

func (m *memBackend) AttachFile(_ context.Context, indexID, fileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[indexID] = append(m.entries[indexID], model.IndexFileEntry{ID: fileID, Status: model.FileStatusCompleted})
	m.indexes[indexID].FileCount++
	return model.FileStatusCompleted, nil
}

func (m *memBackend) DetachFile(_ context.Context, _, _ string) error { return nil }

func (m *memBackend) DeleteFile(_ context.Context, fileID string) error {
	if m.deleteErr[fileID] {
		return errors.New("delete failed")
	}
	return nil
}

// memDrive — DriveService с фиксированным содержимым.
type memDrive struct {
	entries []model.DriveEntry
	content map[string][]byte
}

func (d *memDrive) ListFolder(_ context.Context, _ string) ([]model.DriveEntry, error) {
	return d.entries, nil
}

func (d *memDrive) Download(_ context.Context, fileID string, _ int64) ([]byte, error) {
	data, ok := d.content[fileID]
	if !ok {
		return nil, errors.New("download failed")
	}
	return data, nil
}

// stubHealth — DependencyHealth с фиксированным состоянием.
type stubHealth map[string]bool

func (s stubHealth) Health() map[string]bool { return s }

// testAPI собирает APIHandler и chi-маршруты поверх заданных зависимостей.
// backend/drive равные nil означают несконфигурированную интеграцию.
func testAPI(backend service.IndexBackend, drive service.DriveService, stagingDir string) http.Handler {
	logger := testLogger()
	indexSvc := service.NewIndexService(backend, "vs_default", "Test Store", logger)
	ingestSvc := service.NewIngestionService(indexSvc, stagingDir, 1024, time.Minute, logger)
	bridge := service.NewDriveBridge(drive, ingestSvc, 1024, logger)

	sm, err := auth.NewSessionManager("api-handlers-secret", false)
	if err != nil {
		panic(err)
	}

	h := NewAPIHandler(NewHealthHandler(stubHealth{"index-service": true}), indexSvc, ingestSvc, bridge, sm,
		Limits{MaxFileBytes: 1024, MaxBatchFiles: 3}, logger)

	r := chi.NewRouter()
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/api/v1/indexes", h.ListIndexes)
	r.Post("/api/v1/indexes", h.CreateIndex)
	r.Get("/api/v1/indexes/{id}/files", h.ListIndexFiles)
	r.Delete("/api/v1/indexes/{id}/files", h.DeleteIndexFiles)
	r.Post("/api/v1/upload", h.UploadFiles)
	r.Post("/api/v1/drive/list", h.DriveList)
	r.Post("/api/v1/drive/ingest", h.DriveIngest)
	return r
}

// withOperator добавляет в запрос сессию вошедшего оператора.
func withOperator(r *http.Request) *http.Request {
	s := &auth.SessionData{Authenticated: true, Username: "admin", CSRFToken: testCSRF}
	return r.WithContext(uimiddleware.WithSession(r.Context(), s))
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withOperator(r))
	return rec
}
