// Пакет gdrive — клиент Google Drive v3 (service account, опционально
// domain-wide delegation). Только чтение: список папки и скачивание файла.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
)

const (
	// listPageSize — размер страницы списка файлов.
	listPageSize = 1000
	// listFields — поля файла, запрашиваемые при листинге.
	listFields googleapi.Field = "files(id, name, mimeType, size, modifiedTime)"
	// downloadChunk — размер чанка при скачивании.
	downloadChunk = 1 << 20
)

// ErrTooLarge — скачиваемый файл превышает лимит.
var ErrTooLarge = errors.New("файл превышает лимит размера")

// DiscoveryURL — публичный discovery-документ Drive API (для проверки доступности).
const DiscoveryURL = "https://www.googleapis.com/discovery/v1/apis/drive/v3/rest"

// Client — клиент Google Drive.
type Client struct {
	svc    *drive.Service
	logger *slog.Logger
}

// New создаёт клиент по JSON-ключу service account.
// impersonatedUser — subject для domain-wide delegation (пусто — без неё).
func New(ctx context.Context, credentialsFile, impersonatedUser string, logger *slog.Logger) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("чтение ключа service account: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("разбор ключа service account: %w", err)
	}
	if impersonatedUser != "" {
		conf.Subject = impersonatedUser
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("создание клиента Drive: %w", err)
	}

	logger.Info("Клиент Google Drive инициализирован",
		slog.String("service_account", conf.Email),
		slog.Bool("impersonation", impersonatedUser != ""),
	)

	return &Client{
		svc:    svc,
		logger: logger.With(slog.String("component", "gdrive_client")),
	}, nil
}

// NewWithHTTPClient создаёт клиент с готовым HTTP-клиентом и endpoint
// (используется для тестов и прокси).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string, logger *slog.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Drive: %w", err)
	}

	return &Client{
		svc:    svc,
		logger: logger.With(slog.String("component", "gdrive_client")),
	}, nil
}

// ListFolder возвращает не удалённые в корзину файлы папки.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]model.DriveEntry, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	resp, err := c.svc.Files.List().
		Q(q).
		Fields(listFields).
		PageSize(listPageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("список файлов папки %s: %w", folderID, err)
	}

	entries := make([]model.DriveEntry, 0, len(resp.Files))
	for _, f := range resp.Files {
		e := model.DriveEntry{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
		}
		// Drive не возвращает size для Google Docs и папок
		if f.Size > 0 {
			e.Size = strconv.FormatInt(f.Size, 10)
		}
		entries = append(entries, e)
	}

	c.logger.Debug("Список папки Drive получен",
		slog.String("folder_id", folderID),
		slog.Int("count", len(entries)),
	)
	return entries, nil
}

// Download скачивает содержимое файла в память, читая чанками.
// Если данных больше maxBytes — ErrTooLarge. maxBytes <= 0 — без ограничения.
func (c *Client) Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("скачивание файла %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}

	var (
		data  []byte
		chunk = make([]byte, downloadChunk)
	)
	for {
		n, err := body.Read(chunk)
		data = append(data, chunk[:n]...)
		if maxBytes > 0 && int64(len(data)) > maxBytes {
			return nil, ErrTooLarge
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("чтение файла %s: %w", fileID, err)
		}
	}

	c.logger.Debug("Файл Drive скачан",
		slog.String("file_id", fileID),
		slog.Int("bytes", len(data)),
	)
	return data, nil
}
