package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vinaykumarvk/create-EKG/internal/domain/model"
)

// newIngestion создаёт сервис загрузки поверх fake backend.
func newIngestion(t *testing.T, b IndexBackend, maxBytes int64) (*IngestionService, string) {
	t.Helper()
	dir := t.TempDir()
	index := NewIndexService(b, "", "Create EKG Vector Store", testLogger())
	return NewIngestionService(index, dir, maxBytes, time.Second, testLogger()), dir
}

// assertStagingEmpty проверяет, что после загрузки не осталось staging-директорий.
func assertStagingEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging должен быть очищен")
}

// workbook возвращает содержимое xlsx с листами Sheet1 и Sheet2.
func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Name", "Value"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"alpha", 1}))
	_, err := f.NewSheet("Sheet2")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet2", "A1", &[]any{"Region"}))
	require.NoError(t, f.SetSheetRow("Sheet2", "A2", &[]any{"EU"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// failingSource — источник, который нельзя открыть.
type failingSource struct{ name string }

func (f failingSource) Filename() string { return f.name }
func (f failingSource) Open() (io.ReadCloser, error) {
	return nil, errors.New("read failed")
}

func TestIngest_PlainFile(t *testing.T) {
	b := newFakeBackend()
	b.addIndex("vs_1", "A")
	svc, dir := newIngestion(t, b, 1024)

	res, err := svc.Ingest(context.Background(), BytesSource{Name: "notes.md", Data: []byte("# hi")}, "vs_1")
	require.NoError(t, err)

	assert.Equal(t, "vs_1", res.IndexID)
	assert.Equal(t, "notes.md", res.OriginalFilename)
	assert.Equal(t, "notes.md", res.UploadedFilename)
	assert.False(t, res.Converted)
	assert.Equal(t, model.FileStatusCompleted, res.Status)
	assert.Equal(t, 1, res.FileCount)
	assert.Equal(t, "# hi", string(b.uploaded[res.FileID]))
	assertStagingEmpty(t, dir)
}

func TestIngest_ContentType(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newIngestion(t, b, 1024)

	res, err := svc.Ingest(context.Background(), BytesSource{Name: "data.json", Data: []byte("{}")}, "")
	require.NoError(t, err)
	assert.Equal(t, "application/json", b.contentTypes[res.FileID])

	res, err = svc.Ingest(context.Background(), BytesSource{Name: "memo.docx", Data: []byte("PK")}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, b.contentTypes[res.FileID])
}

func TestIngest_ConvertsWorkbook(t *testing.T) {
	b := newFakeBackend()
	b.addIndex("vs_1", "A")
	svc, dir := newIngestion(t, b, 10*1024*1024)

	res, err := svc.Ingest(context.Background(), BytesSource{Name: "report.xlsx", Data: workbook(t)}, "vs_1")
	require.NoError(t, err)

	assert.True(t, res.Converted)
	assert.Equal(t, "report.xlsx", res.OriginalFilename)
	assert.Equal(t, "report.txt", res.UploadedFilename)

	text := string(b.uploaded[res.FileID])
	assert.Contains(t, text, "--- Sheet: Sheet1 ---")
	assert.Contains(t, text, "--- Sheet: Sheet2 ---")
	assert.Contains(t, text, "alpha")
	assert.True(t, strings.HasPrefix(b.contentTypes[res.FileID], "text/plain"))
	assertStagingEmpty(t, dir)
}

func TestIngest_Validation(t *testing.T) {
	tests := []struct {
		name string
		src  UploadSource
	}{
		{"пустое имя", BytesSource{Name: "", Data: []byte("x")}},
		{"пробельное имя", BytesSource{Name: "  ", Data: []byte("x")}},
		{"неподдерживаемое расширение", BytesSource{Name: "malware.exe", Data: []byte("x")}},
		{"без расширения", BytesSource{Name: "README", Data: []byte("x")}},
		{"пустое содержимое", BytesSource{Name: "a.txt", Data: nil}},
		{"больше лимита", BytesSource{Name: "a.txt", Data: make([]byte, 11)}},
		{"ошибка чтения", failingSource{name: "a.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			svc, dir := newIngestion(t, b, 10)

			_, err := svc.Ingest(context.Background(), tt.src, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "получено: %v", err)
			assert.Zero(t, b.createFileCalls, "удалённый сервис не должен вызываться")
			assertStagingEmpty(t, dir)
		})
	}
}

func TestIngest_ExactLimitAccepted(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newIngestion(t, b, 10)

	_, err := svc.Ingest(context.Background(), BytesSource{Name: "a.txt", Data: make([]byte, 10)}, "")
	require.NoError(t, err)
}

func TestIngest_UppercaseExtension(t *testing.T) {
	svc, _ := newIngestion(t, newFakeBackend(), 10)

	res, err := svc.Ingest(context.Background(), BytesSource{Name: "REPORT.PDF", Data: []byte("%PDF")}, "")
	require.NoError(t, err)
	assert.Equal(t, "REPORT.PDF", res.UploadedFilename)
}

func TestIngest_NoBackend(t *testing.T) {
	svc, dir := newIngestion(t, nil, 1024)

	_, err := svc.Ingest(context.Background(), BytesSource{Name: "a.txt", Data: []byte("x")}, "")
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assertStagingEmpty(t, dir)

	// Валидация выполняется раньше проверки конфигурации
	_, err = svc.Ingest(context.Background(), BytesSource{Name: "malware.exe", Data: []byte("x")}, "")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestIngest_ConversionError(t *testing.T) {
	b := newFakeBackend()
	svc, dir := newIngestion(t, b, 1024)

	_, err := svc.Ingest(context.Background(), BytesSource{Name: "broken.xlsx", Data: []byte("not a zip")}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
	assert.Zero(t, b.createFileCalls)
	assertStagingEmpty(t, dir)
}

func TestIngest_Duplicate(t *testing.T) {
	b := newFakeBackend()
	b.addIndex("vs_1", "A")
	b.addFile("vs_1", "file_old", "report.txt", model.FileStatusCompleted)
	svc, dir := newIngestion(t, b, 10*1024*1024)

	_, err := svc.Ingest(context.Background(), BytesSource{Name: "report.xlsx", Data: workbook(t)}, "vs_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "report.txt")
	assert.Zero(t, b.createFileCalls, "существующий файл не перезаписывается")
	assertStagingEmpty(t, dir)
}

func TestIngest_AttachTimeout(t *testing.T) {
	b := newFakeBackend()
	b.attachBlock = true
	index := NewIndexService(b, "", "New", testLogger())
	dir := t.TempDir()
	svc := NewIngestionService(index, dir, 1024, 20*time.Millisecond, testLogger())

	_, err := svc.Ingest(context.Background(), BytesSource{Name: "a.txt", Data: []byte("x")}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUploadTimeout))
	assertStagingEmpty(t, dir)
}

func TestIngest_RemoteFailures(t *testing.T) {
	t.Run("создание файла", func(t *testing.T) {
		b := newFakeBackend()
		b.createFileErr = errBackend
		svc, dir := newIngestion(t, b, 1024)

		_, err := svc.Ingest(context.Background(), BytesSource{Name: "a.txt", Data: []byte("x")}, "")
		assert.True(t, errors.Is(err, ErrRemoteService))
		assertStagingEmpty(t, dir)
	})

	t.Run("прикрепление", func(t *testing.T) {
		b := newFakeBackend()
		b.attachErr = errBackend
		svc, _ := newIngestion(t, b, 1024)

		_, err := svc.Ingest(context.Background(), BytesSource{Name: "a.txt", Data: []byte("x")}, "")
		assert.True(t, errors.Is(err, ErrRemoteService))
	})

	t.Run("индекс не создаётся", func(t *testing.T) {
		b := newFakeBackend()
		b.createIndexErr = errBackend
		svc, _ := newIngestion(t, b, 1024)

		_, err := svc.Ingest(context.Background(), BytesSource{Name: "a.txt", Data: []byte("x")}, "")
		assert.True(t, errors.Is(err, ErrRemoteService))
	})
}

func TestIngest_FileCountBestEffort(t *testing.T) {
	b := newFakeBackend()
	b.addIndex("vs_1", "A")
	b.addFile("vs_1", "f1", "one.txt", model.FileStatusCompleted)
	b.addFile("vs_1", "f2", "two.txt", model.FileStatusCompleted)
	svc, _ := newIngestion(t, b, 1024)

	res, err := svc.Ingest(context.Background(), BytesSource{Name: "three.txt", Data: []byte("3")}, "vs_1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.FileCount)
}

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	b := newFakeBackend()
	b.addIndex("vs_1", "A")
	svc, dir := newIngestion(t, b, 1024)

	results := svc.IngestBatch(context.Background(), []UploadSource{
		BytesSource{Name: "a.txt", Data: []byte("a")},
		BytesSource{Name: "malware.exe", Data: []byte("x")},
		BytesSource{Name: "b.md", Data: []byte("b")},
		BytesSource{Name: "a.txt", Data: []byte("again")},
	}, "vs_1")

	require.Len(t, results, 4)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.True(t, errors.Is(results[1].Err, ErrInvalidRequest))
	assert.True(t, strings.HasPrefix(results[1].Error, "malware.exe: "))
	assert.True(t, results[2].OK())
	// Повторное имя в том же пакете — конфликт
	assert.True(t, errors.Is(results[3].Err, ErrConflict))

	summary := model.Summarize(results)
	assert.Equal(t, model.BatchSummary{Total: 4, Succeeded: 2, Failed: 2}, summary)
	assertStagingEmpty(t, dir)
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "success", resultLabel(nil))
	assert.Equal(t, "invalid", resultLabel(ErrInvalidRequest))
	assert.Equal(t, "conflict", resultLabel(ErrConflict))
	assert.Equal(t, "timeout", resultLabel(ErrUploadTimeout))
	assert.Equal(t, "error", resultLabel(errBackend))
}
