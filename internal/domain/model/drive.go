package model

// DriveEntry — файл в папке Google Drive.
// JSON-поля повторяют форму ответа Drive v3 (size — строка).
type DriveEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         string `json:"size,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
}
