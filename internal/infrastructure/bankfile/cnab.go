package bankfile

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// field is a zero-based, end-exclusive column range of a fixed-width record
type field struct{ start, end int }

// FEBRABAN CNAB 240 return layout, detail records (type 3)
var (
	cnab240RecordType = field{7, 8}
	cnab240Segment    = field{13, 14}

	// segment T
	cnab240Document    = field{58, 73}
	cnab240DueDate     = field{73, 81}
	cnab240FaceValue   = field{81, 96}
	cnab240Beneficiary = field{105, 130}

	// segment U
	cnab240PaidAmount = field{77, 92}
	cnab240PaidDate   = field{137, 145}
	cnab240CreditDate = field{145, 153}
)

// CNAB 400 return layout, detail records (type 1)
var (
	cnab400RecordType = field{0, 1}
	cnab400Reference  = field{31, 43}
	cnab400DueDate    = field{110, 116}
	cnab400Document   = field{116, 126}
	cnab400FaceValue  = field{152, 165}
	cnab400PaidAmount = field{253, 266}
	cnab400CreditDate = field{295, 301}
)

type cnabRecord struct {
	format finance.StatementFormat
	line   int
	data   []byte
}

func (r cnabRecord) raw(f field) string {
	return string(r.data[f.start:f.end])
}

// text decodes an ISO-8859-1 column and trims the padding
func (r cnabRecord) text(f field) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(r.data[f.start:f.end])
	if err != nil {
		return strings.TrimSpace(r.raw(f))
	}
	return strings.TrimSpace(string(s))
}

// amount reads an unsigned integer amount in cents. Blank columns are zero.
func (r cnabRecord) amount(f field) (decimal.Decimal, error) {
	s := strings.TrimSpace(r.raw(f))
	if s == "" {
		return decimal.Zero, nil
	}
	cents, err := strconv.ParseInt(s, 10, 64)
	if err != nil || cents < 0 {
		return decimal.Zero, parseErrorf(r.format, r.line, "invalid amount %q at columns %d-%d", s, f.start+1, f.end)
	}
	return decimal.New(cents, -2), nil
}

// date reads DDMMYYYY or DDMMYY. Blank and all-zero columns yield a zero time.
func (r cnabRecord) date(f field) (time.Time, error) {
	s := strings.TrimSpace(r.raw(f))
	if s == "" || strings.Trim(s, "0") == "" {
		return time.Time{}, nil
	}
	var (
		t   time.Time
		err error
	)
	switch len(s) {
	case 8:
		t, err = time.Parse("02012006", s)
	case 6:
		t, err = time.Parse("020106", s)
		if err == nil && t.Year() > 2050 {
			// two-digit years above 50 belong to the 1900s
			t = t.AddDate(-100, 0, 0)
		}
	default:
		err = strconv.ErrSyntax
	}
	if err != nil {
		return time.Time{}, parseErrorf(r.format, r.line, "invalid date %q at columns %d-%d", s, f.start+1, f.end)
	}
	return t, nil
}

// records yields the non-blank lines of a fixed-width file. Every one must
// have exactly the layout width.
func records(format finance.StatementFormat, content []byte, width int) ([]cnabRecord, error) {
	var out []cnabRecord
	for i, line := range lines(content) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if len(line) != width {
			return nil, parseErrorf(format, i+1, "expected %d characters, got %d", width, len(line))
		}
		out = append(out, cnabRecord{format: format, line: i + 1, data: line})
	}
	return out, nil
}

func cnabDescription(reference, document string) string {
	if document == "" {
		return reference
	}
	return strings.TrimSpace(reference + " Doc:" + document)
}

func firstNonZeroDate(dates ...time.Time) time.Time {
	for _, d := range dates {
		if !d.IsZero() {
			return d
		}
	}
	return time.Time{}
}

// parseCNAB240 pairs each segment T (title identification) with the
// segment U (amounts and dates) that follows it.
func parseCNAB240(content []byte) ([]finance.ParsedEntry, error) {
	recs, err := records(finance.FormatCNAB240, content, cnab240Width)
	if err != nil {
		return nil, err
	}

	type segmentT struct {
		line        int
		description string
		dueDate     time.Time
		faceValue   decimal.Decimal
	}

	var (
		entries []finance.ParsedEntry
		pending *segmentT
	)
	for _, rec := range recs {
		if rec.raw(cnab240RecordType) != "3" {
			continue
		}
		switch strings.ToUpper(rec.raw(cnab240Segment)) {
		case "T":
			if pending != nil {
				return nil, parseErrorf(rec.format, pending.line, "segment T without a matching segment U")
			}
			due, err := rec.date(cnab240DueDate)
			if err != nil {
				return nil, err
			}
			face, err := rec.amount(cnab240FaceValue)
			if err != nil {
				return nil, err
			}
			pending = &segmentT{
				line:        rec.line,
				description: cnabDescription(rec.text(cnab240Beneficiary), rec.text(cnab240Document)),
				dueDate:     due,
				faceValue:   face,
			}
		case "U":
			if pending == nil {
				return nil, parseErrorf(rec.format, rec.line, "segment U without a preceding segment T")
			}
			paid, err := rec.amount(cnab240PaidAmount)
			if err != nil {
				return nil, err
			}
			paidDate, err := rec.date(cnab240PaidDate)
			if err != nil {
				return nil, err
			}
			creditDate, err := rec.date(cnab240CreditDate)
			if err != nil {
				return nil, err
			}
			entry, err := cnabEntry(rec, pending.description, paid, pending.faceValue, creditDate, paidDate, pending.dueDate)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
			pending = nil
		}
	}
	if pending != nil {
		return nil, parseErrorf(finance.FormatCNAB240, pending.line, "segment T without a matching segment U")
	}
	return entries, nil
}

func parseCNAB400(content []byte) ([]finance.ParsedEntry, error) {
	recs, err := records(finance.FormatCNAB400, content, cnab400Width)
	if err != nil {
		return nil, err
	}

	var entries []finance.ParsedEntry
	for _, rec := range recs {
		if rec.raw(cnab400RecordType) != "1" {
			continue
		}
		face, err := rec.amount(cnab400FaceValue)
		if err != nil {
			return nil, err
		}
		paid, err := rec.amount(cnab400PaidAmount)
		if err != nil {
			return nil, err
		}
		credit, err := rec.date(cnab400CreditDate)
		if err != nil {
			return nil, err
		}
		due, err := rec.date(cnab400DueDate)
		if err != nil {
			return nil, err
		}
		description := cnabDescription(rec.text(cnab400Reference), rec.text(cnab400Document))
		entry, err := cnabEntry(rec, description, paid, face, credit, due)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// cnabEntry prefers the paid amount over the face value and the first
// present date in the given order.
func cnabEntry(rec cnabRecord, description string, paid, face decimal.Decimal, dates ...time.Time) (finance.ParsedEntry, error) {
	amount := paid
	if amount.IsZero() {
		amount = face
	}
	if amount.IsZero() {
		return finance.ParsedEntry{}, parseErrorf(rec.format, rec.line, "record has no amount")
	}
	date := firstNonZeroDate(dates...)
	if date.IsZero() {
		return finance.ParsedEntry{}, parseErrorf(rec.format, rec.line, "record has no date")
	}
	if description == "" {
		description = "CNAB " + string(rec.format)
	}
	return finance.ParsedEntry{Date: date, Description: description, Amount: amount}, nil
}
