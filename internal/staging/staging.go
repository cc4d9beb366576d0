// Пакет staging — временная рабочая директория одной загрузки.
// Файлы пишутся потоком с подсчётом SHA-256 на лету и ограничением размера;
// директория удаляется целиком через Cleanup на любом пути выхода.
package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// dirPrefix — префикс имени staging-директории.
const dirPrefix = "ekg-ingest-"

// ErrTooLarge — данные превышают лимит размера.
var ErrTooLarge = errors.New("превышен лимит размера")

// Area — staging-директория одной операции загрузки.
type Area struct {
	dir string
}

// SaveResult — результат сохранения файла в staging.
type SaveResult struct {
	// Path — абсолютный путь файла
	Path string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого
	Checksum string
}

// New создаёт уникальную staging-директорию внутри parent.
// Вызывающий код обязан вызвать Cleanup.
func New(parent string) (*Area, error) {
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", parent, err)
	}

	dir := filepath.Join(parent, dirPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("не удалось создать staging-директорию: %w", err)
	}

	return &Area{dir: dir}, nil
}

// Dir возвращает путь staging-директории.
func (a *Area) Dir() string {
	return a.dir
}

// Path возвращает путь файла внутри staging. Компоненты пути в name отбрасываются.
func (a *Area) Path(name string) string {
	return filepath.Join(a.dir, filepath.Base(name))
}

// Save записывает данные из reader в файл name с подсчётом SHA-256.
// Если данных больше maxBytes — файл удаляется, возвращается ErrTooLarge.
// maxBytes <= 0 — без ограничения.
func (a *Area) Save(name string, reader io.Reader, maxBytes int64) (*SaveResult, error) {
	path := a.Path(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла: %w", err)
	}

	if maxBytes > 0 {
		// +1 байт, чтобы отличить "ровно лимит" от "больше лимита"
		reader = io.LimitReader(reader, maxBytes+1)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(reader, hasher))
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if maxBytes > 0 && size > maxBytes {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	return &SaveResult{
		Path:     path,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает файл staging для чтения. Вызывающий код обязан закрыть файл.
func (a *Area) Open(name string) (*os.File, error) {
	f, err := os.Open(a.Path(name))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}
	return f, nil
}

// Cleanup удаляет staging-директорию со всем содержимым.
// Повторный вызов безопасен.
func (a *Area) Cleanup() error {
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("ошибка удаления staging-директории %s: %w", a.dir, err)
	}
	return nil
}
