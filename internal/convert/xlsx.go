// Пакет convert — преобразование табличных документов в текст
// для индексации. Поддерживается XLSX (через excelize).
package convert

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/xuri/excelize/v2"
)

// missingCell — представление пустой ячейки в таблице.
const missingCell = "NaN"

var banner = strings.Repeat("=", 80)

// Summary — итог конвертации книги.
type Summary struct {
	Sheets     int
	TotalRows  int
	MaxColumns int
	// FailedSheets — листы, которые не удалось прочитать
	FailedSheets []string
}

// TextName возвращает имя результата конвертации: {stem}.txt.
func TextName(filename string) string {
	stem := filename
	if i := strings.LastIndex(filename, "."); i > 0 {
		stem = filename[:i]
	}
	return stem + ".txt"
}

// XLSXToText читает книгу по пути path и пишет в w текстовую расшифровку:
// баннер с размерами и заголовками для каждого листа, полную таблицу
// без усечения и итоговую сводку. displayName — исходное имя файла.
// Ошибка чтения отдельного листа выводится в текст и не прерывает конвертацию.
func XLSXToText(path, displayName string, w io.Writer) (*Summary, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("открытие книги %s: %w", displayName, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	out := bufio.NewWriter(w)
	summary := &Summary{Sheets: len(sheets)}

	fmt.Fprintf(out, "This file was converted from an Excel workbook: %s\n", displayName)
	fmt.Fprintf(out, "Total number of sheets: %d\n", len(sheets))
	fmt.Fprintf(out, "It contains the following sheets with tabular data:\n\n")

	for _, sheet := range sheets {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			summary.FailedSheets = append(summary.FailedSheets, sheet)
			fmt.Fprintf(out, "\n--- Sheet: %s ---\n", sheet)
			fmt.Fprintf(out, "ERROR: Could not process sheet '%s': %v\n\n", sheet, err)
			continue
		}

		t := newTable(rows)
		summary.TotalRows += len(t.data)
		summary.MaxColumns = max(summary.MaxColumns, len(t.header))

		fmt.Fprintf(out, "\n%s\n", banner)
		fmt.Fprintf(out, "--- Sheet: %s ---\n", sheet)
		fmt.Fprintf(out, "Dimensions: %d rows × %d columns\n", len(t.data), len(t.header))
		fmt.Fprintf(out, "Column names: %s\n", strings.Join(t.header, ", "))
		fmt.Fprintf(out, "%s\n\n", banner)

		if err := t.write(out); err != nil {
			return nil, fmt.Errorf("запись листа %s: %w", sheet, err)
		}
		fmt.Fprint(out, "\n\n")
	}

	fmt.Fprintf(out, "\n%s\n", banner)
	fmt.Fprintln(out, "Conversion Summary:")
	fmt.Fprintf(out, "Total rows across all sheets: %d\n", summary.TotalRows)
	fmt.Fprintf(out, "Maximum columns in any sheet: %d\n", summary.MaxColumns)
	fmt.Fprintf(out, "%s\n", banner)

	if err := out.Flush(); err != nil {
		return nil, fmt.Errorf("запись результата конвертации: %w", err)
	}
	return summary, nil
}

// table — лист книги: первая строка — заголовок, остальные — данные.
type table struct {
	header []string
	data   [][]string
}

func newTable(rows [][]string) *table {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return &table{}
	}

	t := &table{header: make([]string, width)}
	for i := range width {
		name := ""
		if i < len(rows[0]) {
			name = cleanCell(rows[0][i])
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		t.header[i] = name
	}

	for _, r := range rows[1:] {
		line := make([]string, width)
		for i := range width {
			v := ""
			if i < len(r) {
				v = cleanCell(r[i])
			}
			if v == "" {
				v = missingCell
			}
			line[i] = v
		}
		t.data = append(t.data, line)
	}
	return t
}

// write выводит таблицу с выравниванием ячеек по правому краю.
func (t *table) write(w io.Writer) error {
	if len(t.header) == 0 {
		_, err := io.WriteString(w, "(empty sheet)\n")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	writeRow(tw, t.header)
	for _, r := range t.data {
		writeRow(tw, r)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for _, c := range cells {
		io.WriteString(w, c)
		io.WriteString(w, "\t")
	}
	io.WriteString(w, "\n")
}

// cleanCell убирает управляющие символы, ломающие табличную разметку.
func cleanCell(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r', '\v', '\f':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
