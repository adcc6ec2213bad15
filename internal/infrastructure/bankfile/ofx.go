package bankfile

import (
	"bytes"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erp/finance/internal/domain/finance"
	"golang.org/x/text/encoding/charmap"
)

var (
	ofxTransaction = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	ofxCharset1252 = regexp.MustCompile(`(?i)CHARSET:\s*1252`)
)

// ofxValue reads an element value. OFX 1.x is SGML and leaves leaf
// elements unclosed, so the value runs to the next tag or line break.
func ofxValue(block, tag string) string {
	re := ofxTagPatterns[tag]
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var ofxTagPatterns = func() map[string]*regexp.Regexp {
	tags := []string{"TRNAMT", "DTPOSTED", "MEMO", "NAME", "FITID", "CHECKNUM"}
	m := make(map[string]*regexp.Regexp, len(tags))
	for _, tag := range tags {
		m[tag] = regexp.MustCompile(`(?i)<` + tag + `>([^<\r\n]*)`)
	}
	return m
}()

// decodeOFX converts Windows-1252 files to UTF-8. OFX 1.x declares the
// code page in its header; files without it that are not valid UTF-8 are
// treated the same way.
func decodeOFX(content []byte) string {
	if ofxCharset1252.Match(content) || !utf8.Valid(content) {
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(content); err == nil {
			return string(decoded)
		}
	}
	return string(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf")))
}

func parseOFX(content []byte) ([]finance.ParsedEntry, error) {
	text := decodeOFX(content)

	blocks := ofxTransaction.FindAllStringSubmatchIndex(text, -1)
	entries := make([]finance.ParsedEntry, 0, len(blocks))
	for _, loc := range blocks {
		block := text[loc[2]:loc[3]]
		line := strings.Count(text[:loc[0]], "\n") + 1

		rawAmount := ofxValue(block, "TRNAMT")
		if rawAmount == "" {
			return nil, parseErrorf(finance.FormatOFX, line, "transaction without TRNAMT")
		}
		amount, err := parseLocalizedAmount(rawAmount)
		if err != nil {
			return nil, parseErrorf(finance.FormatOFX, line, "invalid TRNAMT %q", rawAmount)
		}

		rawDate := ofxValue(block, "DTPOSTED")
		if len(rawDate) < 8 {
			return nil, parseErrorf(finance.FormatOFX, line, "invalid DTPOSTED %q", rawDate)
		}
		date, err := time.Parse("20060102", rawDate[:8])
		if err != nil {
			return nil, parseErrorf(finance.FormatOFX, line, "invalid DTPOSTED %q", rawDate)
		}

		description := ofxValue(block, "MEMO")
		if description == "" {
			description = ofxValue(block, "NAME")
		}
		if description == "" {
			description = strings.TrimSpace("OFX " + ofxValue(block, "FITID"))
		}

		entries = append(entries, finance.ParsedEntry{
			Date:        date,
			Description: description,
			Amount:      amount,
		})
	}
	return entries, nil
}
