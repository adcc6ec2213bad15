package finance

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementFormat is the file layout a statement was imported from
type StatementFormat string

const (
	FormatOFX     StatementFormat = "ofx"
	FormatCNAB240 StatementFormat = "cnab240"
	FormatCNAB400 StatementFormat = "cnab400"
	FormatCSV     StatementFormat = "csv"
)

// IsValid checks if the format is a valid value
func (f StatementFormat) IsValid() bool {
	switch f {
	case FormatOFX, FormatCNAB240, FormatCNAB400, FormatCSV:
		return true
	}
	return false
}

// EntryStatus is the reconciliation state of a statement line
type EntryStatus string

const (
	EntryStatusPending EntryStatus = "pending"
	EntryStatusMatched EntryStatus = "matched"
	EntryStatusIgnored EntryStatus = "ignored"
)

// IsValid checks if the status is a valid value
func (s EntryStatus) IsValid() bool {
	return s == EntryStatusPending || s == EntryStatusMatched || s == EntryStatusIgnored
}

// IsTerminal returns true for matched and ignored entries
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusMatched || s == EntryStatusIgnored
}

// EntryType is derived from the sign of the amount
type EntryType string

const (
	EntryTypeCredit EntryType = "credit"
	EntryTypeDebit  EntryType = "debit"
)

// ReconciledBy records who moved an entry out of pending
type ReconciledBy string

const (
	ReconciledManual ReconciledBy = "manual"
	ReconciledAuto   ReconciledBy = "auto"
	ReconciledRule   ReconciledBy = "rule"
)

// BankStatement is one imported statement file
type BankStatement struct {
	shared.TenantAggregateRoot
	BankAccountID *uuid.UUID
	Filename      string
	Format        StatementFormat
	Fingerprint   string
	StorageKey    string
	ImportedAt    time.Time
	EntriesCount  int
	MatchedCount  int
}

// NewBankStatement creates a statement header for an import
func NewBankStatement(tenantID uuid.UUID, filename string, format StatementFormat, fingerprint string, createdBy uuid.UUID, now time.Time) (*BankStatement, error) {
	v := &shared.ValidationError{}
	if strings.TrimSpace(filename) == "" {
		v.Add("file", "is required")
	}
	if !format.IsValid() {
		v.Add("file", "unsupported statement format")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	s := &BankStatement{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Filename:            filename,
		Format:              format,
		Fingerprint:         fingerprint,
		ImportedAt:          now,
	}
	s.SetCreatedBy(createdBy)
	return s, nil
}

// ParsedEntry is a statement line as read from the file, before persistence
type ParsedEntry struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
}

// BankStatementEntry is one line of a statement
type BankStatementEntry struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	StatementID       uuid.UUID
	Date              time.Time
	Description       string
	Amount            decimal.Decimal
	Status            EntryStatus
	Matched           TitleRef
	Category          string
	RuleID            *uuid.UUID
	ReconciledBy      ReconciledBy
	ReconciledAt      *time.Time
	PossibleDuplicate bool
}

// MaxEntryDescription is the stored length of an entry description, in
// characters. Longer bank memos are cut.
const MaxEntryDescription = 500

// NewBankStatementEntry creates a pending entry
func NewBankStatementEntry(s *BankStatement, p ParsedEntry) *BankStatementEntry {
	return &BankStatementEntry{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    s.TenantID,
		StatementID: s.ID,
		Date:        DateOnly(p.Date),
		Description: truncateRunes(strings.TrimSpace(p.Description), MaxEntryDescription),
		Amount:      p.Amount.Round(MoneyPlaces),
		Status:      EntryStatusPending,
	}
}

// Type returns credit for inflows and debit for outflows
func (e *BankStatementEntry) Type() EntryType {
	if e.Amount.IsNegative() {
		return EntryTypeDebit
	}
	return EntryTypeCredit
}

// TargetDirection returns the direction of titles this entry can settle
func (e *BankStatementEntry) TargetDirection() Direction {
	if e.Type() == EntryTypeDebit {
		return DirectionPayable
	}
	return DirectionReceivable
}

// Match links the entry to a title. Matching the same title again is a no-op
// and returns false; any other transition out of a terminal state conflicts.
func (e *BankStatementEntry) Match(ref TitleRef, by ReconciledBy, now time.Time) (bool, error) {
	switch e.Status {
	case EntryStatusMatched:
		if SameRef(e.Matched, ref) {
			return false, nil
		}
		return false, shared.NewConflictError("entry is already matched to another title")
	case EntryStatusIgnored:
		return false, shared.NewConflictError("entry was ignored and cannot be matched")
	}

	e.Status = EntryStatusMatched
	e.Matched = ref
	e.ReconciledBy = by
	reconciledAt := now
	e.ReconciledAt = &reconciledAt
	e.Touch(now)
	return true, nil
}

// Ignore marks the entry as not needing reconciliation. It returns false when
// the entry was already ignored.
func (e *BankStatementEntry) Ignore(by ReconciledBy, now time.Time) (bool, error) {
	switch e.Status {
	case EntryStatusIgnored:
		return false, nil
	case EntryStatusMatched:
		return false, shared.NewConflictError("entry is already matched and cannot be ignored")
	}

	e.Status = EntryStatusIgnored
	e.ReconciledBy = by
	reconciledAt := now
	e.ReconciledAt = &reconciledAt
	e.Touch(now)
	return true, nil
}

// RuleApplied reports whether a rule already processed the entry
func (e *BankStatementEntry) RuleApplied() bool {
	return e.RuleID != nil
}

// MarkRule records the rule that processed the entry
func (e *BankStatementEntry) MarkRule(ruleID uuid.UUID, now time.Time) {
	id := ruleID
	e.RuleID = &id
	e.Touch(now)
}

// Categorize labels a pending entry; the entry stays pending
func (e *BankStatementEntry) Categorize(category string, now time.Time) error {
	if e.Status != EntryStatusPending {
		return shared.NewConflictError("only pending entries can be categorized")
	}
	e.Category = strings.TrimSpace(category)
	e.Touch(now)
	return nil
}

// IsDuplicateOf reports the same date, description and amount within a cent
func (e *BankStatementEntry) IsDuplicateOf(other *BankStatementEntry) bool {
	return e.Date.Equal(other.Date) &&
		e.Description == other.Description &&
		e.Amount.Sub(other.Amount).Abs().LessThanOrEqual(duplicateTolerance)
}

var duplicateTolerance = decimal.RequireFromString("0.01")

// ReconciliationSummary aggregates the entries of a tenant
type ReconciliationSummary struct {
	TotalEntries   int             `json:"total_entries"`
	PendingCount   int             `json:"pending_count"`
	MatchedCount   int             `json:"matched_count"`
	IgnoredCount   int             `json:"ignored_count"`
	MatchedPercent decimal.Decimal `json:"matched_percent"`
	TotalCredits   decimal.Decimal `json:"total_credits"`
	TotalDebits    decimal.Decimal `json:"total_debits"`
	DuplicateCount int             `json:"duplicate_count"`
}

// Summarize builds the reconciliation summary of a set of entries
func Summarize(entries []BankStatementEntry) ReconciliationSummary {
	s := ReconciliationSummary{
		MatchedPercent: decimal.Zero,
		TotalCredits:   decimal.Zero,
		TotalDebits:    decimal.Zero,
	}
	for i := range entries {
		e := &entries[i]
		s.TotalEntries++
		switch e.Status {
		case EntryStatusPending:
			s.PendingCount++
		case EntryStatusMatched:
			s.MatchedCount++
		case EntryStatusIgnored:
			s.IgnoredCount++
		}
		if e.Type() == EntryTypeCredit {
			s.TotalCredits = s.TotalCredits.Add(e.Amount)
		} else {
			s.TotalDebits = s.TotalDebits.Add(e.Amount.Abs())
		}
		if e.PossibleDuplicate {
			s.DuplicateCount++
		}
	}
	if s.TotalEntries > 0 {
		s.MatchedPercent = decimal.NewFromInt(int64(s.MatchedCount)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.TotalEntries))).
			Round(1)
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
