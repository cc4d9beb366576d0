// ingest.go — конвейер загрузки файла в индекс:
// проверка → staging → (конвертация) → выбор индекса → проверка дубликата →
// загрузка и прикрепление → отчёт. Staging освобождается на любом пути выхода.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vinaykumarvk/create-EKG/internal/convert"
	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
	"github.com/vinaykumarvk/create-EKG/internal/staging"
)

const (
	// defaultContentType — тип содержимого, если расширение неизвестно.
	defaultContentType = "application/octet-stream"
	// convertedName — имя результата конвертации в staging.
	convertedName = "converted.txt"
)

// Расширения, загружаемые без изменений.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".docx": true,
	".csv":  true,
	".json": true,
}

// Расширения, конвертируемые в текст перед загрузкой.
var convertibleExtensions = map[string]bool{
	".xlsx": true,
}

// UploadSource — источник загружаемого файла.
type UploadSource interface {
	// Filename — исходное имя файла.
	Filename() string
	// Open открывает содержимое для чтения.
	Open() (io.ReadCloser, error)
}

// BytesSource — источник из памяти (например, файл, скачанный из Drive).
type BytesSource struct {
	Name string
	Data []byte
}

// Filename возвращает имя файла.
func (b BytesSource) Filename() string { return b.Name }

// Open возвращает reader по содержимому.
func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// IngestionService — загрузка файлов в индекс документов.
type IngestionService struct {
	index         *IndexService
	stagingDir    string
	maxBytes      int64
	uploadTimeout time.Duration
	logger        *slog.Logger
}

// NewIngestionService создаёт сервис загрузки.
// stagingDir — родительская директория для staging,
// maxBytes — лимит размера файла, uploadTimeout — таймаут прикрепления к индексу.
func NewIngestionService(
	index *IndexService,
	stagingDir string,
	maxBytes int64,
	uploadTimeout time.Duration,
	logger *slog.Logger,
) *IngestionService {
	return &IngestionService{
		index:         index,
		stagingDir:    stagingDir,
		maxBytes:      maxBytes,
		uploadTimeout: uploadTimeout,
		logger:        logger.With(slog.String("component", "ingestion_service")),
	}
}

// MaxBytes возвращает лимит размера одного файла.
func (s *IngestionService) MaxBytes() int64 {
	return s.maxBytes
}

// Ingest проводит один файл через конвейер загрузки.
// indexID — целевой индекс; пустой — индекс по умолчанию или новый.
func (s *IngestionService) Ingest(ctx context.Context, src UploadSource, indexID string) (*model.IngestionResult, error) {
	start := time.Now()
	result, err := s.ingest(ctx, src, indexID)

	ingestTotal.WithLabelValues(resultLabel(err)).Inc()
	ingestDuration.Observe(time.Since(start).Seconds())
	return result, err
}

func (s *IngestionService) ingest(ctx context.Context, src UploadSource, indexID string) (*model.IngestionResult, error) {
	// 1. Проверка имени и типа
	name := src.Filename()
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: имя файла не может быть пустым", ErrInvalidRequest)
	}

	ext := strings.ToLower(filepath.Ext(name))
	convertible := convertibleExtensions[ext]
	if !supportedExtensions[ext] && !convertible {
		return nil, fmt.Errorf("%w: неподдерживаемый тип файла: %q", ErrInvalidRequest, ext)
	}

	// 2. Staging с гарантированной очисткой
	area, err := staging.New(s.stagingDir)
	if err != nil {
		return nil, fmt.Errorf("подготовка staging: %w", err)
	}
	defer func() {
		if err := area.Cleanup(); err != nil {
			s.logger.Warn("Не удалось очистить staging",
				slog.String("dir", area.Dir()),
				slog.String("error", err.Error()),
			)
		}
	}()

	staged, err := s.stage(area, src, ext)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Файл принят в staging",
		slog.String("filename", name),
		slog.Int64("size", staged.Size),
		slog.String("sha256", staged.Checksum),
	)

	// 3. Конвертация
	uploadName := name
	uploadPath := staged.Path
	if convertible {
		uploadName = convert.TextName(name)
		uploadPath, err = s.convert(area, staged.Path, name)
		if err != nil {
			return nil, err
		}
	}

	// 4. Выбор индекса
	if err := s.index.requireBackend(); err != nil {
		return nil, err
	}

	targetID, err := s.index.EnsureIndex(ctx, indexID)
	if err != nil {
		return nil, err
	}

	// 5. Проверка дубликата
	existing, err := s.index.ListIndexFiles(ctx, targetID)
	if err != nil {
		return nil, err
	}
	for _, f := range existing {
		if f.Filename == uploadName {
			s.logger.Info("Файл уже есть в индексе, загрузка отклонена",
				slog.String("filename", uploadName),
				slog.String("index_id", targetID),
				slog.String("file_id", f.ID),
			)
			return nil, fmt.Errorf("%w: файл %q уже есть в индексе (file_id %s); удалите существующий файл перед повторной загрузкой",
				ErrConflict, uploadName, f.ID)
		}
	}

	// 6. Загрузка и прикрепление
	fileID, status, err := s.upload(ctx, targetID, uploadName, uploadPath)
	if err != nil {
		return nil, err
	}

	// 7. Отчёт: количество файлов — best effort
	fileCount, err := s.index.FileCount(ctx, targetID)
	if err != nil || fileCount < 1 {
		if err != nil {
			s.logger.Warn("Не удалось обновить количество файлов индекса",
				slog.String("index_id", targetID),
				slog.String("error", err.Error()),
			)
		}
		fileCount = 1
	}

	if status == "" {
		status = model.FileStatusCompleted
	}

	s.logger.Info("Файл загружен в индекс",
		slog.String("original_filename", name),
		slog.String("uploaded_filename", uploadName),
		slog.String("index_id", targetID),
		slog.String("file_id", fileID),
		slog.String("status", status),
	)

	return &model.IngestionResult{
		IndexID:          targetID,
		FileID:           fileID,
		FileCount:        fileCount,
		Status:           status,
		OriginalFilename: name,
		UploadedFilename: uploadName,
		Converted:        convertible,
	}, nil
}

// stage читает содержимое источника в staging с проверкой размера.
func (s *IngestionService) stage(area *staging.Area, src UploadSource, ext string) (*staging.SaveResult, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: не удалось прочитать файл: %w", ErrInvalidRequest, err)
	}
	defer rc.Close()

	staged, err := area.Save("source"+ext, rc, s.maxBytes)
	if errors.Is(err, staging.ErrTooLarge) {
		return nil, fmt.Errorf("%w: файл превышает лимит %d МБ", ErrInvalidRequest, s.maxBytes/(1024*1024))
	}
	if err != nil {
		return nil, fmt.Errorf("сохранение в staging: %w", err)
	}
	if staged.Size == 0 {
		return nil, fmt.Errorf("%w: загруженный файл пуст", ErrInvalidRequest)
	}
	return staged, nil
}

// convert преобразует книгу в текст внутри staging и возвращает путь результата.
func (s *IngestionService) convert(area *staging.Area, sourcePath, name string) (string, error) {
	outPath := area.Path(convertedName)
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("%w: создание файла результата: %w", ErrConversion, err)
	}

	summary, err := convert.XLSXToText(sourcePath, name, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		s.logger.Error("Ошибка конвертации таблицы",
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: не удалось конвертировать %s: %w", ErrConversion, name, err)
	}

	conversionsTotal.Inc()
	s.logger.Info("Таблица конвертирована в текст",
		slog.String("filename", name),
		slog.Int("sheets", summary.Sheets),
		slog.Int("rows", summary.TotalRows),
		slog.Int("failed_sheets", len(summary.FailedSheets)),
	)
	return outPath, nil
}

// upload создаёт файл в хранилище сервиса и прикрепляет его к индексу
// с ограничением по времени. Возвращает id файла и итоговый статус.
func (s *IngestionService) upload(ctx context.Context, indexID, uploadName, path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("открытие staging-файла: %w", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(uploadName)))
	if contentType == "" {
		contentType = defaultContentType
	}

	stored, err := s.index.backend.CreateFile(ctx, uploadName, contentType, f)
	if err != nil {
		s.logger.Error("Ошибка загрузки файла в хранилище",
			slog.String("filename", uploadName),
			slog.String("index_id", indexID),
			slog.String("error", err.Error()),
		)
		return "", "", fmt.Errorf("%w: загрузка файла %s: %w", ErrRemoteService, uploadName, err)
	}

	attachCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	status, err := s.index.backend.AttachFile(attachCtx, indexID, stored.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// Прикрепление может завершиться на стороне сервиса после таймаута
			s.logger.Error("Таймаут прикрепления файла к индексу",
				slog.String("filename", uploadName),
				slog.String("index_id", indexID),
				slog.String("file_id", stored.ID),
				slog.Duration("timeout", s.uploadTimeout),
			)
			return "", "", fmt.Errorf("%w: файл не был обработан за %s; он может ещё обрабатываться, проверьте состояние индекса",
				ErrUploadTimeout, s.uploadTimeout)
		}

		s.logger.Error("Ошибка прикрепления файла к индексу",
			slog.String("filename", uploadName),
			slog.String("index_id", indexID),
			slog.String("file_id", stored.ID),
			slog.String("error", err.Error()),
		)
		return "", "", fmt.Errorf("%w: прикрепление файла %s: %w", ErrRemoteService, uploadName, err)
	}

	return stored.ID, status, nil
}

// IngestBatch загружает файлы по очереди. Ошибка одного файла не прерывает
// остальные: каждый элемент содержит либо результат, либо ошибку с именем файла.
func (s *IngestionService) IngestBatch(ctx context.Context, sources []UploadSource, indexID string) []model.BatchItemResult {
	results := make([]model.BatchItemResult, 0, len(sources))

	for _, src := range sources {
		item := model.BatchItemResult{Filename: src.Filename()}

		res, err := s.Ingest(ctx, src, indexID)
		if err != nil {
			item.Err = err
			item.Error = fmt.Sprintf("%s: %v", displayName(src.Filename()), err)
		} else {
			item.Result = res
		}
		results = append(results, item)
	}

	summary := model.Summarize(results)
	s.logger.Info("Пакетная загрузка завершена",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	return results
}

// displayName возвращает имя файла для сообщений об ошибках.
func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(без имени)"
	}
	return name
}
