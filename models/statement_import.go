package models

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

// StatementPreview gives the user enough of the file to choose a column
// mapping: the header row plus a few sample rows.
type StatementPreview struct {
	Headers    []string   `json:"headers"`
	SampleRows [][]string `json:"sample_rows"`
	TotalRows  int        `json:"total_rows"`
}

// ParseStatementFile reads a tabular statement into a header row plus data
// rows. Files named *.xlsx go through excelize; everything else is treated as
// delimited text with the separator sniffed from the header line.
func ParseStatementFile(fileName string, data []byte) ([]string, [][]string, error) {
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		return parseXLSX(data)
	}
	return parseCSV(data)
}

func parseXLSX(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, NewValidationError("file", "could not read xlsx file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, NewValidationError("file", "xlsx file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, NewValidationError("file", "could not read xlsx rows")
	}
	if len(rows) == 0 {
		return nil, nil, NewValidationError("file", "statement file is empty")
	}
	return rows[0], rows[1:], nil
}

func parseCSV(data []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, NewValidationError("file", "could not parse statement file")
	}
	if len(records) == 0 {
		return nil, nil, NewValidationError("file", "statement file is empty")
	}
	return records[0], records[1:], nil
}

// sniffDelimiter picks the separator that appears most in the header line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, sep := 0, ','
	for _, c := range []byte{',', ';', '\t'} {
		if n := bytes.Count(line, []byte{c}); n > best {
			best, sep = n, rune(c)
		}
	}
	return sep
}

// PreviewStatement returns the headers and up to n sample rows.
func PreviewStatement(headers []string, rows [][]string, n int) StatementPreview {
	if n <= 0 {
		n = 10
	}
	sample := rows
	if len(sample) > n {
		sample = sample[:n]
	}
	return StatementPreview{Headers: headers, SampleRows: sample, TotalRows: len(rows)}
}

// BuildBankTransactions converts data rows into bank transactions under the
// user's column mapping. Rows whose cleaned amount is exactly zero are
// discarded; rows that fail to parse are skipped and counted, not fatal. The
// raw source row is preserved on each transaction for audit.
func BuildBankTransactions(headers []string, rows [][]string, mapping ColumnMapping) ([]BankTransaction, int, error) {
	dateIdx, err := columnIndex(headers, mapping.Date, "date")
	if err != nil {
		return nil, 0, err
	}
	amountIdx, err := columnIndex(headers, mapping.Amount, "amount")
	if err != nil {
		return nil, 0, err
	}
	conceptIdx, err := columnIndex(headers, mapping.Concept, "concept")
	if err != nil {
		return nil, 0, err
	}

	var txns []BankTransaction
	skipped := 0
	for i, row := range rows {
		if dateIdx >= len(row) || amountIdx >= len(row) {
			skipped++
			continue
		}
		amount, err := CleanAmount(row[amountIdx])
		if err != nil {
			skipped++
			continue
		}
		if amount.IsZero() {
			continue
		}
		concept := ""
		if conceptIdx < len(row) {
			concept = strings.TrimSpace(row[conceptIdx])
		}
		raw, _ := json.Marshal(row)
		txns = append(txns, BankTransaction{
			RowIndex: i,
			Date:     NormalizeDay(row[dateIdx]),
			Amount:   amount,
			Concept:  concept,
			RawRow:   datatypes.JSON(raw),
		})
	}
	return txns, skipped, nil
}

func columnIndex(headers []string, name, field string) (int, error) {
	want := strings.TrimSpace(name)
	if want == "" {
		return 0, NewValidationError(field, "column mapping is required")
	}
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i, nil
		}
	}
	return 0, NewValidationError(field, "mapped column not found in file header")
}

// NormalizeDay trims the cell and rewrites common day formats to YYYY-MM-DD.
// Unrecognized values pass through trimmed, so exact-string matching still
// behaves deterministically.
func NormalizeDay(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// CleanAmount strips currency noise from a statement cell and parses it.
// Decimal commas become periods; when both separators appear, the rightmost
// one is taken as the decimal mark and the other dropped as thousands.
func CleanAmount(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+', r == ',', r == '.':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "cell is not a number")
	}
	return d.Round(2), nil
}
