package bankfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Accepted header names per column, compared after accent folding
var csvColumns = map[string][]string{
	"date":        {"date", "data", "dt", "posted", "data lancamento"},
	"description": {"description", "descricao", "historico", "memo", "lancamento"},
	"amount":      {"amount", "valor", "value", "montante"},
}

var csvDateLayouts = []string{"2006-01-02", "02/01/2006", "02/01/06", "02-01-2006", "20060102"}

func parseCSV(content []byte) ([]finance.ParsedEntry, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(content) {
		// exports from Brazilian banks often come in Latin-1
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
		if err != nil {
			return nil, parseErrorf(finance.FormatCSV, 0, "invalid file encoding")
		}
		content = decoded
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = detectDelimiter(content)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, parseErrorf(finance.FormatCSV, 0, "missing header row")
	}
	if err != nil {
		return nil, parseErrorf(finance.FormatCSV, 1, "%v", err)
	}
	index, err := mapCSVHeader(header)
	if err != nil {
		return nil, err
	}

	var entries []finance.ParsedEntry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, parseErrorf(finance.FormatCSV, line, "%v", err)
		}
		line, _ := reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}
		entry, err := csvEntry(record, index, line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// detectDelimiter picks ';' when the header uses it more than ','
func detectDelimiter(content []byte) rune {
	header := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		header = content[:i]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}

func mapCSVHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(csvColumns))
	for i, name := range header {
		key := strings.ToLower(FoldAccents(strings.TrimSpace(name)))
		for column, aliases := range csvColumns {
			if _, seen := index[column]; seen {
				continue
			}
			for _, alias := range aliases {
				if key == alias {
					index[column] = i
				}
			}
		}
	}
	var missing []string
	for _, column := range []string{"date", "description", "amount"} {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, parseErrorf(finance.FormatCSV, 1, "missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func csvEntry(record []string, index map[string]int, line int) (finance.ParsedEntry, error) {
	get := func(column string) string {
		if i := index[column]; i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	rawDate := get("date")
	date, ok := parseCSVDate(rawDate)
	if !ok {
		return finance.ParsedEntry{}, parseErrorf(finance.FormatCSV, line, "invalid date %q", rawDate)
	}
	rawAmount := get("amount")
	amount, err := parseLocalizedAmount(rawAmount)
	if err != nil {
		return finance.ParsedEntry{}, parseErrorf(finance.FormatCSV, line, "invalid amount %q", rawAmount)
	}
	description := get("description")
	if description == "" {
		return finance.ParsedEntry{}, parseErrorf(finance.FormatCSV, line, "description is required")
	}
	return finance.ParsedEntry{Date: date, Description: description, Amount: amount}, nil
}

func parseCSVDate(s string) (time.Time, bool) {
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseLocalizedAmount accepts "1234.56", "1,234.56", "1.234,56" and
// "-1234,56". The right-most separator is the decimal one unless it repeats.
func parseLocalizedAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "R$"), "$")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma < 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case lastDot < 0 && strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma:
		s = strings.ReplaceAll(s, ",", "")
	}
	return decimal.NewFromString(s)
}
