// errors.go — ошибки бизнес-логики сервисного слоя.
// Операции оборачивают их через fmt.Errorf("%w: ...") с деталями,
// API-слой классифицирует через errors.Is.
package service

import "errors"

var (
	// ErrInvalidRequest — некорректные или отсутствующие входные данные.
	ErrInvalidRequest = errors.New("некорректный запрос")
	// ErrUnauthorized — неверные учётные данные или нет сессии.
	ErrUnauthorized = errors.New("требуется аутентификация")
	// ErrConflict — файл с таким именем уже есть в индексе.
	ErrConflict = errors.New("конфликт")
	// ErrServiceUnavailable — внешний сервис не сконфигурирован.
	ErrServiceUnavailable = errors.New("сервис недоступен")
	// ErrConversion — ошибка преобразования таблицы в текст.
	ErrConversion = errors.New("ошибка конвертации")
	// ErrUploadTimeout — прикрепление файла к индексу не уложилось в таймаут.
	ErrUploadTimeout = errors.New("таймаут загрузки")
	// ErrRemoteService — ошибка транспорта или API удалённого сервиса.
	ErrRemoteService = errors.New("ошибка удалённого сервиса")
)
