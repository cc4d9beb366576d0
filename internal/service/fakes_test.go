package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
)

// testLogger — логгер для тестов (пишет в io.Discard).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBackend = errors.New("backend failure")

// fakeBackend — in-memory реализация IndexBackend.
type fakeBackend struct {
	mu sync.Mutex

	indexes map[string]*model.Index
	// files — метаданные файлов хранилища
	files map[string]*model.StoredFile
	// entries — файлы индексов в порядке прикрепления
	entries map[string][]model.IndexFileEntry
	// uploaded — содержимое загруженных файлов
	uploaded map[string][]byte
	// contentTypes — типы содержимого загруженных файлов
	contentTypes map[string]string

	nextID int

	// Инъекция ошибок
	retrieveIndexErr map[string]error
	retrieveFileErr  map[string]error
	detachErr        map[string]error
	deleteErr        map[string]error
	createIndexErr   error
	listIndexesErr   error
	createFileErr    error
	// attachBlock — AttachFile ждёт отмены контекста
	attachBlock bool
	attachErr   error

	// Счётчики вызовов
	createFileCalls int
	pageCalls       []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		indexes:          map[string]*model.Index{},
		files:            map[string]*model.StoredFile{},
		entries:          map[string][]model.IndexFileEntry{},
		uploaded:         map[string][]byte{},
		contentTypes:     map[string]string{},
		retrieveIndexErr: map[string]error{},
		retrieveFileErr:  map[string]error{},
		detachErr:        map[string]error{},
		deleteErr:        map[string]error{},
	}
}

func (f *fakeBackend) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%03d", prefix, f.nextID)
}

// addIndex добавляет индекс.
func (f *fakeBackend) addIndex(id, name string) {
	f.indexes[id] = &model.Index{ID: id, Name: name}
}

// addFile добавляет файл в хранилище и в индекс.
func (f *fakeBackend) addFile(indexID, fileID, filename, status string) {
	f.files[fileID] = &model.StoredFile{ID: fileID, Filename: filename, Status: "processed", Bytes: 10}
	f.entries[indexID] = append(f.entries[indexID], model.IndexFileEntry{ID: fileID, Status: status})
}

func (f *fakeBackend) CreateIndex(_ context.Context, name string) (*model.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createIndexErr != nil {
		return nil, f.createIndexErr
	}
	id := f.id("vs")
	idx := &model.Index{ID: id, Name: name}
	f.indexes[id] = idx
	c := *idx
	return &c, nil
}

func (f *fakeBackend) ListIndexes(context.Context) ([]model.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listIndexesErr != nil {
		return nil, f.listIndexesErr
	}
	var out []model.Index
	for _, idx := range f.indexes {
		out = append(out, *idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) RetrieveIndex(_ context.Context, indexID string) (*model.Index, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.retrieveIndexErr[indexID]; err != nil {
		return nil, err
	}
	idx, ok := f.indexes[indexID]
	if !ok {
		return nil, fmt.Errorf("index %s not found", indexID)
	}
	c := *idx
	c.FileCount = len(f.entries[indexID])
	return &c, nil
}

func (f *fakeBackend) ListIndexFilesPage(_ context.Context, indexID string, limit int, after string) (*model.IndexFilePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, after)

	all := f.entries[indexID]
	start := 0
	if after != "" {
		for i, e := range all {
			if e.ID == after {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(all))
	page := &model.IndexFilePage{
		Entries: append([]model.IndexFileEntry(nil), all[start:end]...),
		HasMore: end < len(all),
	}
	return page, nil
}

func (f *fakeBackend) RetrieveFile(_ context.Context, fileID string) (*model.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.retrieveFileErr[fileID]; err != nil {
		return nil, err
	}
	sf, ok := f.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	c := *sf
	return &c, nil
}

func (f *fakeBackend) CreateFile(_ context.Context, filename, contentType string, content io.Reader) (*model.StoredFile, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createFileCalls++
	if f.createFileErr != nil {
		return nil, f.createFileErr
	}
	id := f.id("file")
	sf := &model.StoredFile{ID: id, Filename: filename, Bytes: int64(len(data))}
	f.files[id] = sf
	f.uploaded[id] = data
	f.contentTypes[id] = contentType
	c := *sf
	return &c, nil
}

func (f *fakeBackend) AttachFile(ctx context.Context, indexID, fileID string) (string, error) {
	if f.attachBlock {
		<-ctx.Done()
		return "", ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return "", f.attachErr
	}
	f.entries[indexID] = append(f.entries[indexID], model.IndexFileEntry{ID: fileID, Status: model.FileStatusCompleted})
	return model.FileStatusCompleted, nil
}

func (f *fakeBackend) DetachFile(_ context.Context, indexID, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.detachErr[fileID]; err != nil {
		return err
	}
	entries := f.entries[indexID]
	for i, e := range entries {
		if e.ID == fileID {
			f.entries[indexID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("file %s not attached", fileID)
}

func (f *fakeBackend) DeleteFile(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[fileID]; err != nil {
		return err
	}
	delete(f.files, fileID)
	return nil
}

// fakeDrive — in-memory реализация DriveService.
type fakeDrive struct {
	entries     []model.DriveEntry
	listErr     error
	content     map[string][]byte
	downloadErr error
	listCalls   []string
}

func (d *fakeDrive) ListFolder(_ context.Context, folderID string) ([]model.DriveEntry, error) {
	d.listCalls = append(d.listCalls, folderID)
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.entries, nil
}

func (d *fakeDrive) Download(_ context.Context, fileID string, _ int64) ([]byte, error) {
	if d.downloadErr != nil {
		return nil, d.downloadErr
	}
	data, ok := d.content[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}
