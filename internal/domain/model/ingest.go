package model

// IngestionResult — результат успешной загрузки одного файла в индекс.
type IngestionResult struct {
	IndexID          string `json:"vector_store_id"`
	FileID           string `json:"file_id"`
	FileCount        int    `json:"file_count"`
	Status           string `json:"status"`
	OriginalFilename string `json:"original_filename"`
	UploadedFilename string `json:"uploaded_filename"`
	Converted        bool   `json:"converted"`
}

// BatchItemResult — исход обработки одного файла из пакета.
// Заполнено либо Result, либо Err.
type BatchItemResult struct {
	Filename string           `json:"filename"`
	Result   *IngestionResult `json:"result,omitempty"`
	// Error — сообщение об ошибке с именем файла
	Error string `json:"error,omitempty"`
	// Code — машиночитаемый код ошибки (заполняется на уровне API)
	Code string `json:"code,omitempty"`
	// Err — исходная ошибка для классификации
	Err error `json:"-"`
}

// OK сообщает, что файл загружен успешно.
func (r BatchItemResult) OK() bool {
	return r.Err == nil
}

// BatchSummary — сводка по пакету.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize подсчитывает сводку по результатам пакета.
func Summarize(items []BatchItemResult) BatchSummary {
	s := BatchSummary{Total: len(items)}
	for _, it := range items {
		if it.OK() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
