// Пакет service — бизнес-логика EKG Admin.
// index.go — работа с индексами документов: get-or-create индекса,
// список и создание индексов, список и удаление файлов индекса.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
)

// indexFilesPageSize — размер страницы при обходе файлов индекса.
const indexFilesPageSize = 100

// IndexBackend — операции удалённого сервиса индексов.
// Реализуется vectorstore.Client, в тестах — fake.
type IndexBackend interface {
	CreateIndex(ctx context.Context, name string) (*model.Index, error)
	ListIndexes(ctx context.Context) ([]model.Index, error)
	RetrieveIndex(ctx context.Context, indexID string) (*model.Index, error)
	ListIndexFilesPage(ctx context.Context, indexID string, limit int, after string) (*model.IndexFilePage, error)
	RetrieveFile(ctx context.Context, fileID string) (*model.StoredFile, error)
	CreateFile(ctx context.Context, filename, contentType string, content io.Reader) (*model.StoredFile, error)
	AttachFile(ctx context.Context, indexID, fileID string) (string, error)
	DetachFile(ctx context.Context, indexID, fileID string) error
	DeleteFile(ctx context.Context, fileID string) error
}

// IndexService — операции с индексами документов.
// Без backend (API-ключ не задан) все операции возвращают ErrServiceUnavailable.
type IndexService struct {
	backend     IndexBackend
	defaultID   string
	defaultName string
	logger      *slog.Logger
}

// NewIndexService создаёт сервис индексов.
// backend может быть nil. defaultID — индекс по умолчанию (может быть пустым),
// defaultName — имя автоматически создаваемого индекса.
func NewIndexService(backend IndexBackend, defaultID, defaultName string, logger *slog.Logger) *IndexService {
	return &IndexService{
		backend:     backend,
		defaultID:   defaultID,
		defaultName: defaultName,
		logger:      logger.With(slog.String("component", "index_service")),
	}
}

// Enabled сообщает, сконфигурирован ли сервис индексов.
func (s *IndexService) Enabled() bool {
	return s.backend != nil
}

// requireBackend возвращает ErrServiceUnavailable, если backend не задан.
func (s *IndexService) requireBackend() error {
	if s.backend == nil {
		return fmt.Errorf("%w: API-ключ сервиса индексов не задан", ErrServiceUnavailable)
	}
	return nil
}

// EnsureIndex возвращает id существующего индекса или создаёт новый.
// Порядок: candidateID, затем индекс по умолчанию, затем создание.
// Ошибки первых двух ступеней логируются и не возвращаются.
func (s *IndexService) EnsureIndex(ctx context.Context, candidateID string) (string, error) {
	if err := s.requireBackend(); err != nil {
		return "", err
	}

	for _, id := range []string{strings.TrimSpace(candidateID), s.defaultID} {
		if id == "" {
			continue
		}
		idx, err := s.backend.RetrieveIndex(ctx, id)
		if err == nil {
			return idx.ID, nil
		}
		s.logger.Warn("Индекс недоступен, пробуем следующий вариант",
			slog.String("index_id", id),
			slog.String("error", err.Error()),
		)
	}

	idx, err := s.backend.CreateIndex(ctx, s.defaultName)
	if err != nil {
		s.logger.Error("Не удалось создать индекс",
			slog.String("name", s.defaultName),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: создание индекса: %w", ErrRemoteService, err)
	}

	s.logger.Info("Создан новый индекс",
		slog.String("index_id", idx.ID),
		slog.String("name", idx.Name),
	)
	return idx.ID, nil
}

// ListIndexes возвращает все индексы.
func (s *IndexService) ListIndexes(ctx context.Context) ([]model.Index, error) {
	if err := s.requireBackend(); err != nil {
		return nil, err
	}

	indexes, err := s.backend.ListIndexes(ctx)
	if err != nil {
		s.logger.Error("Ошибка получения списка индексов", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: список индексов: %w", ErrRemoteService, err)
	}
	if indexes == nil {
		indexes = []model.Index{}
	}
	return indexes, nil
}

// CreateIndex создаёт индекс с непустым именем.
func (s *IndexService) CreateIndex(ctx context.Context, name string) (*model.Index, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: имя индекса не может быть пустым", ErrInvalidRequest)
	}
	if err := s.requireBackend(); err != nil {
		return nil, err
	}

	idx, err := s.backend.CreateIndex(ctx, name)
	if err != nil {
		s.logger.Error("Ошибка создания индекса",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: создание индекса: %w", ErrRemoteService, err)
	}

	// Новый индекс пуст
	idx.FileCount = 0
	return idx, nil
}

// ListIndexFiles возвращает файлы индекса с метаданными, отсортированные по имени.
// Файлы, метаданные которых не удалось получить, и уже удалённые файлы пропускаются.
func (s *IndexService) ListIndexFiles(ctx context.Context, indexID string) ([]model.IndexedFile, error) {
	indexID = strings.TrimSpace(indexID)
	if indexID == "" {
		return nil, fmt.Errorf("%w: не указан id индекса", ErrInvalidRequest)
	}
	if err := s.requireBackend(); err != nil {
		return nil, err
	}

	var (
		files []model.IndexedFile
		after string
	)

	for {
		page, err := s.backend.ListIndexFilesPage(ctx, indexID, indexFilesPageSize, after)
		if err != nil {
			s.logger.Error("Ошибка получения файлов индекса",
				slog.String("index_id", indexID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w: список файлов индекса: %w", ErrRemoteService, err)
		}

		for _, entry := range page.Entries {
			if model.IsTerminalRemoved(entry.Status) {
				continue
			}

			meta, err := s.backend.RetrieveFile(ctx, entry.ID)
			if err != nil {
				// Метаданные недоступны — файл считаем удалённым
				s.logger.Debug("Метаданные файла недоступны, пропускаем",
					slog.String("index_id", indexID),
					slog.String("file_id", entry.ID),
					slog.String("error", err.Error()),
				)
				continue
			}

			status := entry.Status
			if status == "" {
				status = meta.Status
			}
			if model.IsTerminalRemoved(status) {
				continue
			}

			filename := meta.Filename
			if filename == "" {
				filename = entry.ID
			}

			files = append(files, model.IndexedFile{
				ID:        entry.ID,
				Filename:  filename,
				Status:    status,
				CreatedAt: meta.CreatedAt,
				Bytes:     meta.Bytes,
			})
		}

		if !page.HasMore || len(page.Entries) < indexFilesPageSize {
			break
		}
		after = page.Entries[len(page.Entries)-1].ID
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Filename < files[j].Filename
	})
	if files == nil {
		files = []model.IndexedFile{}
	}
	return files, nil
}

// DeleteIndexFiles открепляет и удаляет файлы. Для каждого id выполняются
// оба шага; id попадает в failed, если не удался любой из них.
func (s *IndexService) DeleteIndexFiles(ctx context.Context, indexID string, fileIDs []string) (*model.DeleteResult, error) {
	indexID = strings.TrimSpace(indexID)
	if indexID == "" {
		return nil, fmt.Errorf("%w: не указан id индекса", ErrInvalidRequest)
	}
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: не указаны файлы для удаления", ErrInvalidRequest)
	}
	if err := s.requireBackend(); err != nil {
		return nil, err
	}

	result := &model.DeleteResult{Deleted: []string{}, Failed: []string{}}
	for _, id := range fileIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}

		detachErr := s.backend.DetachFile(ctx, indexID, id)
		if detachErr != nil {
			s.logger.Warn("Ошибка открепления файла от индекса",
				slog.String("index_id", indexID),
				slog.String("file_id", id),
				slog.String("error", detachErr.Error()),
			)
		}

		deleteErr := s.backend.DeleteFile(ctx, id)
		if deleteErr != nil {
			s.logger.Warn("Ошибка удаления файла",
				slog.String("file_id", id),
				slog.String("error", deleteErr.Error()),
			)
		}

		if detachErr != nil || deleteErr != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}

	s.logger.Info("Удаление файлов индекса завершено",
		slog.String("index_id", indexID),
		slog.Int("deleted", len(result.Deleted)),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// FileCount возвращает количество файлов в индексе.
func (s *IndexService) FileCount(ctx context.Context, indexID string) (int, error) {
	if err := s.requireBackend(); err != nil {
		return 0, err
	}

	idx, err := s.backend.RetrieveIndex(ctx, indexID)
	if err != nil {
		return 0, fmt.Errorf("%w: получение индекса: %w", ErrRemoteService, err)
	}
	return idx.FileCount, nil
}
