// Package bankfile reads bank statement files: OFX, FEBRABAN CNAB 240 and
// CNAB 400 return files, and plain CSV exports.
package bankfile

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	appfinance "github.com/erp/finance/internal/application/finance"
	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"golang.org/x/crypto/blake2b"
)

const (
	cnab240Width = 240
	cnab400Width = 400
)

// ErrNoEntries is returned for files that parse but carry no transaction
var ErrNoEntries = errors.New("file contains no transactions")

// ParseError locates a malformed record
type ParseError struct {
	Format finance.StatementFormat
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s line %d: %s", e.Format, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Msg)
}

func parseErrorf(format finance.StatementFormat, line int, msg string, args ...any) *ParseError {
	return &ParseError{Format: format, Line: line, Msg: fmt.Sprintf(msg, args...)}
}

// Parser implements the statement parser used by the reconciliation service
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// Detect picks the format. The extension wins for .ofx and .csv; otherwise
// the width of the first non-blank line identifies CNAB layouts.
func (p *Parser) Detect(filename string, content []byte) (finance.StatementFormat, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "ofx":
		return finance.FormatOFX, nil
	case "csv":
		return finance.FormatCSV, nil
	}

	first := firstLine(content)
	switch len(first) {
	case cnab240Width:
		return finance.FormatCNAB240, nil
	case cnab400Width:
		return finance.FormatCNAB400, nil
	}
	if ext == "ret" || ext == "rem" {
		if len(first) > 250 {
			return finance.FormatCNAB400, nil
		}
		return finance.FormatCNAB240, nil
	}
	if looksLikeOFX(content) {
		return finance.FormatOFX, nil
	}
	return "", shared.NewDomainError(shared.CodeUnsupportedFormat,
		"unrecognized statement file; expected OFX, CNAB 240, CNAB 400 or CSV")
}

// Parse reads every entry. A single malformed record fails the whole file.
func (p *Parser) Parse(format finance.StatementFormat, content []byte) ([]finance.ParsedEntry, error) {
	var (
		entries []finance.ParsedEntry
		err     error
	)
	switch format {
	case finance.FormatOFX:
		entries, err = parseOFX(content)
	case finance.FormatCNAB240:
		entries, err = parseCNAB240(content)
	case finance.FormatCNAB400:
		entries, err = parseCNAB400(content)
	case finance.FormatCSV:
		entries, err = parseCSV(content)
	default:
		return nil, shared.NewDomainError(shared.CodeUnsupportedFormat, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", format, ErrNoEntries)
	}
	return entries, nil
}

// Fingerprint is the hex BLAKE2b-256 digest of the raw file
func (p *Parser) Fingerprint(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// lines splits content on LF, dropping CR and the DOS end-of-file marker
func lines(content []byte) [][]byte {
	raw := bytes.Split(content, []byte("\n"))
	out := make([][]byte, len(raw))
	for i, line := range raw {
		out[i] = bytes.TrimRight(line, "\r\x1a")
	}
	return out
}

func firstLine(content []byte) []byte {
	for _, line := range lines(content) {
		if len(bytes.TrimSpace(line)) > 0 {
			return line
		}
	}
	return nil
}

func looksLikeOFX(content []byte) bool {
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	upper := bytes.ToUpper(head)
	return bytes.Contains(upper, []byte("OFXHEADER")) || bytes.Contains(upper, []byte("<OFX>"))
}

var _ appfinance.StatementParser = (*Parser)(nil)
