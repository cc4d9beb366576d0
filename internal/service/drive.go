// drive.go — мост к Google Drive: разбор ссылки на папку, список файлов,
// проверка размера, выбор последнего изменённого файла, импорт в индекс.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
	"github.com/vinaykumarvk/create-EKG/internal/gdrive"
)

// folderIDPattern — идентификатор Drive: буквы, цифры, '-', '_', не короче 10 символов.
var folderIDPattern = regexp.MustCompile(`[-\w]{10,}`)

// DriveService — операции Google Drive.
// Реализуется gdrive.Client, в тестах — fake.
type DriveService interface {
	ListFolder(ctx context.Context, folderID string) ([]model.DriveEntry, error)
	Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

// DriveBridge — импорт файлов из Google Drive в индекс.
// Без клиента (ключ service account не задан) операции Drive
// возвращают ErrServiceUnavailable.
type DriveBridge struct {
	drive    DriveService
	ingest   *IngestionService
	maxBytes int64
	logger   *slog.Logger
}

// NewDriveBridge создаёт мост. drive может быть nil.
func NewDriveBridge(drive DriveService, ingest *IngestionService, maxBytes int64, logger *slog.Logger) *DriveBridge {
	return &DriveBridge{
		drive:    drive,
		ingest:   ingest,
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "drive_bridge")),
	}
}

// Enabled сообщает, сконфигурирован ли Drive.
func (b *DriveBridge) Enabled() bool {
	return b.drive != nil
}

func (b *DriveBridge) requireDrive() error {
	if b.drive == nil {
		return fmt.Errorf("%w: интеграция с Google Drive не настроена", ErrServiceUnavailable)
	}
	return nil
}

// ResolveFolderID извлекает id папки из id или ссылки на папку.
// Возвращает "" если идентификатор не найден.
func ResolveFolderID(linkOrID string) string {
	linkOrID = strings.TrimSpace(linkOrID)
	if linkOrID == "" {
		return ""
	}

	if loc := folderIDPattern.FindStringIndex(linkOrID); loc != nil {
		// Целиком совпавший ввод возвращается как есть, иначе — первое вхождение
		return linkOrID[loc[0]:loc[1]]
	}
	return ""
}

// ValidateRemoteSize проверяет размер из метаданных Drive.
// Отсутствующий или некорректный размер пропускается.
func ValidateRemoteSize(size string, maxBytes int64) error {
	if size == "" {
		return nil
	}
	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return nil
	}
	if n > maxBytes {
		return fmt.Errorf("%w: файл Google Drive превышает допустимый размер", ErrInvalidRequest)
	}
	return nil
}

// SelectBest возвращает файл с наибольшим modifiedTime (строковое сравнение).
// При равенстве выигрывает первый. nil для пустого списка.
func SelectBest(entries []model.DriveEntry) *model.DriveEntry {
	if len(entries) == 0 {
		return nil
	}

	best := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].ModifiedTime > entries[best].ModifiedTime {
			best = i
		}
	}
	e := entries[best]
	return &e
}

// ListFolder возвращает файлы папки по ссылке или id.
// Если размер любого файла превышает лимит, весь список отклоняется.
func (b *DriveBridge) ListFolder(ctx context.Context, folderLink string) ([]model.DriveEntry, error) {
	folderID := ResolveFolderID(folderLink)
	if folderID == "" {
		return nil, fmt.Errorf("%w: некорректная ссылка на папку Google Drive", ErrInvalidRequest)
	}
	if err := b.requireDrive(); err != nil {
		return nil, err
	}

	entries, err := b.drive.ListFolder(ctx, folderID)
	if err != nil {
		b.logger.Error("Ошибка получения списка папки Drive",
			slog.String("folder_id", folderID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: список папки Google Drive: %w", ErrRemoteService, err)
	}

	for _, e := range entries {
		if err := ValidateRemoteSize(e.Size, b.maxBytes); err != nil {
			return nil, fmt.Errorf("%w (%s)", err, e.Name)
		}
	}

	if entries == nil {
		entries = []model.DriveEntry{}
	}
	return entries, nil
}

// ImportFile скачивает файл из Drive и загружает его в индекс
// так же, как локальный файл. fileName — имя, под которым файл загружается.
func (b *DriveBridge) ImportFile(ctx context.Context, fileID, fileName, indexID string) (*model.IngestionResult, error) {
	if err := b.requireDrive(); err != nil {
		return nil, err
	}

	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("%w: не указан id файла Google Drive", ErrInvalidRequest)
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: имя файла не может быть пустым", ErrInvalidRequest)
	}

	data, err := b.drive.Download(ctx, fileID, b.maxBytes)
	if errors.Is(err, gdrive.ErrTooLarge) {
		return nil, fmt.Errorf("%w: файл Google Drive превышает допустимый размер", ErrInvalidRequest)
	}
	if err != nil {
		b.logger.Error("Ошибка скачивания файла Drive",
			slog.String("file_id", fileID),
			slog.String("filename", fileName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: скачивание файла Google Drive: %w", ErrRemoteService, err)
	}

	if err := ValidateRemoteSize(strconv.Itoa(len(data)), b.maxBytes); err != nil {
		return nil, err
	}

	b.logger.Info("Файл Drive скачан, передаём в загрузку",
		slog.String("file_id", fileID),
		slog.String("filename", fileName),
		slog.Int("bytes", len(data)),
	)

	return b.ingest.Ingest(ctx, BytesSource{Name: fileName, Data: data}, indexID)
}
