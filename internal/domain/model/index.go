// Пакет model — доменные модели EKG Admin.
// Все постоянные данные живут в удалённом сервисе индексов,
// модели здесь — только представление его ответов и результатов операций.
package model

// Статусы файла в индексе (словарь удалённого сервиса).
const (
	FileStatusInProgress = "in_progress"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
	FileStatusCancelled  = "cancelled"
	FileStatusDeleted    = "deleted"
	FileStatusNotFound   = "not_found"
)

// Index — удалённый индекс документов (vector store).
type Index struct {
	// ID — непрозрачный идентификатор индекса
	ID string `json:"id"`
	// Name — отображаемое имя ("Unnamed", если сервис его не вернул)
	Name string `json:"name"`
	// FileCount — общее количество файлов в индексе
	FileCount int `json:"file_count"`
	// CreatedAt — время создания (Unix seconds), nil если неизвестно
	CreatedAt *int64 `json:"created_at"`
}

// IndexedFile — файл, прикреплённый к индексу, с разрешёнными метаданными.
type IndexedFile struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	CreatedAt *int64 `json:"created_at"`
	Bytes     int64  `json:"bytes"`
}

// IndexFileEntry — элемент постраничного списка файлов индекса
// (без метаданных файла).
type IndexFileEntry struct {
	ID     string
	Status string
}

// IndexFilePage — одна страница списка файлов индекса.
type IndexFilePage struct {
	Entries []IndexFileEntry
	// HasMore — есть ли следующая страница
	HasMore bool
}

// StoredFile — метаданные файла в файловом хранилище сервиса.
type StoredFile struct {
	ID        string
	Filename  string
	Status    string
	Bytes     int64
	CreatedAt *int64
}

// DeleteResult — итог удаления файлов из индекса.
// Частичный отказ — штатный результат, а не ошибка.
type DeleteResult struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// IsTerminalRemoved сообщает, что статус означает уже удалённый файл.
func IsTerminalRemoved(status string) bool {
	switch status {
	case FileStatusDeleted, FileStatusNotFound:
		return true
	}
	return false
}
