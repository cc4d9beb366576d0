package vectorstore

import "github.com/vinaykumarvk/create-EKG/internal/domain/model"

// Сырые ответы API. Все поля — указатели: сервис может опускать любое из них,
// сопоставление с доменными типами выполняется только здесь.

type rawVectorStore struct {
	ID         *string `json:"id"`
	Name       *string `json:"name"`
	CreatedAt  *int64  `json:"created_at"`
	FileCounts *struct {
		Total *int `json:"total"`
	} `json:"file_counts"`
}

type rawVectorStoreFile struct {
	ID        *string `json:"id"`
	Status    *string `json:"status"`
	CreatedAt *int64  `json:"created_at"`
}

type rawFile struct {
	ID        *string `json:"id"`
	Filename  *string `json:"filename"`
	Bytes     *int64  `json:"bytes"`
	CreatedAt *int64  `json:"created_at"`
	Status    *string `json:"status"`
}

type rawList[T any] struct {
	Data    []T     `json:"data"`
	HasMore *bool   `json:"has_more"`
	LastID  *string `json:"last_id"`
}

type rawDeleted struct {
	ID      *string `json:"id"`
	Deleted *bool   `json:"deleted"`
}

type rawError struct {
	Error *struct {
		Message *string `json:"message"`
		Type    *string `json:"type"`
		Code    *string `json:"code"`
	} `json:"error"`
}

// unnamedIndex — имя индекса, если сервис его не вернул.
const unnamedIndex = "Unnamed"

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func toIndex(raw rawVectorStore) model.Index {
	idx := model.Index{
		ID:        str(raw.ID),
		Name:      str(raw.Name),
		CreatedAt: raw.CreatedAt,
	}
	if idx.Name == "" {
		idx.Name = unnamedIndex
	}
	if raw.FileCounts != nil && raw.FileCounts.Total != nil {
		idx.FileCount = *raw.FileCounts.Total
	}
	return idx
}

func toStoredFile(raw rawFile) model.StoredFile {
	f := model.StoredFile{
		ID:        str(raw.ID),
		Filename:  str(raw.Filename),
		Status:    str(raw.Status),
		CreatedAt: raw.CreatedAt,
	}
	if raw.Bytes != nil {
		f.Bytes = *raw.Bytes
	}
	return f
}

func toFileEntry(raw rawVectorStoreFile) model.IndexFileEntry {
	return model.IndexFileEntry{
		ID:     str(raw.ID),
		Status: str(raw.Status),
	}
}
