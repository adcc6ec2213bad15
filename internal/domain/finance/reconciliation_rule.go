package finance

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchField selects which entry attribute a rule inspects
type MatchField string

const (
	MatchFieldDescription MatchField = "description"
	MatchFieldAmount      MatchField = "amount"
	MatchFieldCNPJ        MatchField = "cnpj"
	MatchFieldCombined    MatchField = "combined"
)

// IsValid checks if the field is a valid value
func (f MatchField) IsValid() bool {
	switch f {
	case MatchFieldDescription, MatchFieldAmount, MatchFieldCNPJ, MatchFieldCombined:
		return true
	}
	return false
}

// MatchOperator is the comparison a rule applies
type MatchOperator string

const (
	OperatorContains MatchOperator = "contains"
	OperatorEquals   MatchOperator = "equals"
	OperatorRegex    MatchOperator = "regex"
	OperatorBetween  MatchOperator = "between"
)

// IsValid checks if the operator is a valid value
func (o MatchOperator) IsValid() bool {
	switch o {
	case OperatorContains, OperatorEquals, OperatorRegex, OperatorBetween:
		return true
	}
	return false
}

// RuleAction is what happens to an entry a rule matches
type RuleAction string

const (
	ActionMatchReceivable RuleAction = "match_receivable"
	ActionMatchPayable    RuleAction = "match_payable"
	ActionIgnore          RuleAction = "ignore"
	ActionCategorize      RuleAction = "categorize"
)

// IsValid checks if the action is a valid value
func (a RuleAction) IsValid() bool {
	switch a {
	case ActionMatchReceivable, ActionMatchPayable, ActionIgnore, ActionCategorize:
		return true
	}
	return false
}

// MatchDirection returns the title direction of a match action
func (a RuleAction) MatchDirection() (Direction, bool) {
	switch a {
	case ActionMatchReceivable:
		return DirectionReceivable, true
	case ActionMatchPayable:
		return DirectionPayable, true
	}
	return "", false
}

// DefaultRulePriority is used when a rule is created without one
const DefaultRulePriority = 50

var amountEqualsTolerance = decimal.RequireFromString("0.01")

// ReconciliationRule is a predicate plus an action evaluated against pending
// statement entries. Lower priority numbers run first.
type ReconciliationRule struct {
	shared.TenantAggregateRoot
	Name           string
	MatchField     MatchField
	MatchOperator  MatchOperator
	MatchValue     string
	MatchAmountMin *decimal.Decimal
	MatchAmountMax *decimal.Decimal
	Action         RuleAction
	Category       string
	TargetID       *uuid.UUID
	CounterpartyID *uuid.UUID
	Priority       int
	IsActive       bool
	TimesApplied   int

	compiled *regexp.Regexp
}

// RuleParams holds the writable fields of a rule
type RuleParams struct {
	Name           string
	MatchField     MatchField
	MatchOperator  MatchOperator
	MatchValue     string
	MatchAmountMin *decimal.Decimal
	MatchAmountMax *decimal.Decimal
	Action         RuleAction
	Category       string
	TargetID       *uuid.UUID
	CounterpartyID *uuid.UUID
	Priority       *int
	IsActive       *bool
}

// Validate checks the consistency of field, operator, value and action
func (p RuleParams) Validate() *shared.ValidationError {
	v := &shared.ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "is required")
	} else if len(p.Name) > 255 {
		v.Add("name", "may not be greater than 255 characters")
	}
	if !p.MatchField.IsValid() {
		v.Add("match_field", "must be one of description, amount, cnpj, combined")
	}
	if !p.MatchOperator.IsValid() {
		v.Add("match_operator", "must be one of contains, equals, regex, between")
	}
	if !p.Action.IsValid() {
		v.Add("action", "must be one of match_receivable, match_payable, ignore, categorize")
	}

	usesText := p.MatchField == MatchFieldDescription || p.MatchField == MatchFieldCNPJ || p.MatchField == MatchFieldCombined
	if usesText && p.MatchOperator != OperatorBetween && strings.TrimSpace(p.MatchValue) == "" {
		v.Add("match_value", "is required")
	}
	if p.MatchOperator == OperatorRegex {
		if _, err := regexp.Compile("(?i)" + p.MatchValue); err != nil {
			v.Add("match_value", "is not a valid regular expression")
		}
	}
	if p.MatchOperator == OperatorBetween || p.MatchField == MatchFieldCombined {
		if p.MatchAmountMin == nil && p.MatchAmountMax == nil {
			v.Add("match_amount_min", "an amount range is required")
		}
	}
	if p.MatchField == MatchFieldAmount && p.MatchOperator != OperatorBetween {
		if _, err := decimal.NewFromString(strings.TrimSpace(p.MatchValue)); err != nil {
			v.Add("match_value", "must be a number")
		}
	}
	if p.MatchAmountMin != nil && p.MatchAmountMax != nil && p.MatchAmountMin.GreaterThan(*p.MatchAmountMax) {
		v.Add("match_amount_max", "must be greater than or equal to match_amount_min")
	}
	if p.Action == ActionCategorize && strings.TrimSpace(p.Category) == "" {
		v.Add("category", "is required for categorize rules")
	}
	if p.Priority != nil && (*p.Priority < 0 || *p.Priority > 1000) {
		v.Add("priority", "must be between 0 and 1000")
	}
	return v
}

// NewReconciliationRule creates an active rule
func NewReconciliationRule(tenantID uuid.UUID, p RuleParams) (*ReconciliationRule, error) {
	if err := p.Validate().OrNil(); err != nil {
		return nil, err
	}
	r := &ReconciliationRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Priority:            DefaultRulePriority,
		IsActive:            true,
	}
	r.apply(p)
	return r, nil
}

// Update replaces the writable fields; times_applied is preserved
func (r *ReconciliationRule) Update(p RuleParams, now time.Time) error {
	if err := p.Validate().OrNil(); err != nil {
		return err
	}
	r.apply(p)
	r.Touch(now)
	r.IncrementVersion()
	return nil
}

func (r *ReconciliationRule) apply(p RuleParams) {
	r.Name = strings.TrimSpace(p.Name)
	r.MatchField = p.MatchField
	r.MatchOperator = p.MatchOperator
	r.MatchValue = p.MatchValue
	r.MatchAmountMin = p.MatchAmountMin
	r.MatchAmountMax = p.MatchAmountMax
	r.Action = p.Action
	r.Category = p.Category
	r.TargetID = p.TargetID
	r.CounterpartyID = p.CounterpartyID
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
	r.compiled = nil
}

// Toggle flips is_active
func (r *ReconciliationRule) Toggle(now time.Time) {
	r.IsActive = !r.IsActive
	r.Touch(now)
	r.IncrementVersion()
}

// RecordApplication bumps the usage counter
func (r *ReconciliationRule) RecordApplication() {
	r.TimesApplied++
}

// Matches evaluates the rule predicate against an entry. Amounts are compared
// by absolute value so a rule works for both credits and debits.
func (r *ReconciliationRule) Matches(e *BankStatementEntry) bool {
	amount := e.Amount.Abs()
	switch r.MatchField {
	case MatchFieldDescription:
		if r.MatchOperator == OperatorBetween {
			return r.inRange(amount)
		}
		return r.matchText(e.Description)
	case MatchFieldAmount:
		if r.MatchOperator == OperatorBetween {
			return r.inRange(amount)
		}
		want, err := decimal.NewFromString(strings.TrimSpace(r.MatchValue))
		if err != nil {
			return false
		}
		return amount.Sub(want.Abs()).Abs().LessThanOrEqual(amountEqualsTolerance)
	case MatchFieldCNPJ:
		want := digitsOnly(r.MatchValue)
		if want == "" {
			return false
		}
		return strings.Contains(digitsOnly(e.Description), want)
	case MatchFieldCombined:
		return r.matchText(e.Description) && r.inRange(amount)
	}
	return false
}

func (r *ReconciliationRule) matchText(text string) bool {
	haystack := FoldText(text)
	needle := FoldText(r.MatchValue)
	switch r.MatchOperator {
	case OperatorContains:
		return strings.Contains(haystack, needle)
	case OperatorEquals:
		return haystack == needle
	case OperatorRegex:
		re := r.compiled
		if re == nil {
			var err error
			re, err = regexp.Compile("(?i)" + r.MatchValue)
			if err != nil {
				return false
			}
			r.compiled = re
		}
		return re.MatchString(text) || re.MatchString(haystack)
	case OperatorBetween:
		return true
	}
	return false
}

func (r *ReconciliationRule) inRange(amount decimal.Decimal) bool {
	if r.MatchAmountMin == nil && r.MatchAmountMax == nil {
		return false
	}
	if r.MatchAmountMin != nil && amount.LessThan(r.MatchAmountMin.Abs()) {
		return false
	}
	if r.MatchAmountMax != nil && amount.GreaterThan(r.MatchAmountMax.Abs()) {
		return false
	}
	return true
}

// FoldText lower-cases and collapses whitespace. Accent folding is plugged in
// by the infrastructure layer through SetTextFolder.
func FoldText(s string) string {
	s = textFolder(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var textFolder = func(s string) string { return s }

// SetTextFolder installs the accent folding function used by FoldText
func SetTextFolder(fn func(string) string) {
	if fn != nil {
		textFolder = fn
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SortRules orders rules by priority ascending, then creation time, then id
func SortRules(rules []ReconciliationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// FirstMatchingRule returns the index of the first active rule matching the
// entry within an already sorted slice, or -1.
func FirstMatchingRule(rules []ReconciliationRule, e *BankStatementEntry) int {
	for i := range rules {
		if rules[i].IsActive && rules[i].Matches(e) {
			return i
		}
	}
	return -1
}

// RuleTestSample is one entry a draft rule would match
type RuleTestSample struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        EntryType       `json:"type"`
}

// RuleTestResult is the dry-run outcome of a draft rule
type RuleTestResult struct {
	TotalTested  int              `json:"total_tested"`
	TotalMatched int              `json:"total_matched"`
	Sample       []RuleTestSample `json:"sample"`
}

// RuleTestSampleSize bounds the sample returned by DryRunRule
const RuleTestSampleSize = 10

// DryRunRule evaluates a draft against entries without changing anything
func DryRunRule(rule *ReconciliationRule, entries []BankStatementEntry) RuleTestResult {
	result := RuleTestResult{Sample: []RuleTestSample{}}
	for i := range entries {
		e := &entries[i]
		result.TotalTested++
		if !rule.Matches(e) {
			continue
		}
		result.TotalMatched++
		if len(result.Sample) < RuleTestSampleSize {
			result.Sample = append(result.Sample, RuleTestSample{
				ID:          e.ID,
				Date:        e.Date,
				Description: e.Description,
				Amount:      e.Amount,
				Type:        e.Type(),
			})
		}
	}
	return result
}

// LearnRuleFromEntry proposes a rule that would reproduce a manual match:
// up to three keywords longer than three characters from the description,
// matched in order with anything between them.
// With a counterparty the rule resolves future titles of that counterparty;
// without one it is pinned to the matched title.
func LearnRuleFromEntry(e *BankStatementEntry, counterpartyID *uuid.UUID) (RuleParams, error) {
	if e.Status != EntryStatusMatched || e.Matched == nil {
		return RuleParams{}, shared.NewConflictError("only matched entries can be learned")
	}

	keywords := make([]string, 0, 3)
	for _, w := range strings.Fields(FoldText(e.Description)) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if len([]rune(w)) > 3 {
			keywords = append(keywords, w)
		}
		if len(keywords) == 3 {
			break
		}
	}
	if len(keywords) == 0 {
		return RuleParams{}, shared.NewValidationError("description", "has no keyword long enough to learn a rule")
	}

	action := ActionMatchReceivable
	if e.Matched.Direction() == DirectionPayable {
		action = ActionMatchPayable
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	priority := DefaultRulePriority
	params := RuleParams{
		Name:          fmt.Sprintf("Auto: %s", strings.Join(keywords, " ")),
		MatchField:    MatchFieldDescription,
		MatchOperator: OperatorRegex,
		MatchValue:    strings.Join(quoted, ".*"),
		Action:        action,
		Priority:      &priority,
	}
	if counterpartyID != nil {
		params.CounterpartyID = counterpartyID
	} else {
		target := e.Matched.TitleID()
		params.TargetID = &target
	}
	return params, nil
}
