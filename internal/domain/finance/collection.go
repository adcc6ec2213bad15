package finance

import (
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
)

// CollectionChannel is how a collection reminder is delivered
type CollectionChannel string

const (
	ChannelEmail    CollectionChannel = "email"
	ChannelSMS      CollectionChannel = "sms"
	ChannelWhatsApp CollectionChannel = "whatsapp"
)

// IsValid checks if the channel is a valid value
func (c CollectionChannel) IsValid() bool {
	return c == ChannelEmail || c == ChannelSMS || c == ChannelWhatsApp
}

// CollectionRule sends a reminder for receivables due DaysBeforeDue days
// from the run date. Negative values target titles already past due.
type CollectionRule struct {
	shared.TenantAggregateRoot
	Name          string
	DaysBeforeDue int
	Channel       CollectionChannel
	IsActive      bool
}

// CollectionRuleParams holds the writable fields of a collection rule
type CollectionRuleParams struct {
	Name          string
	DaysBeforeDue int
	Channel       CollectionChannel
	IsActive      *bool
}

func (p CollectionRuleParams) validate() *shared.ValidationError {
	v := &shared.ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "is required")
	}
	if p.DaysBeforeDue < -365 || p.DaysBeforeDue > 365 {
		v.Add("days_before_due", "must be between -365 and 365")
	}
	if !p.Channel.IsValid() {
		v.Add("channel", "must be one of email, sms, whatsapp")
	}
	return v
}

// NewCollectionRule creates an active collection rule
func NewCollectionRule(tenantID uuid.UUID, p CollectionRuleParams) (*CollectionRule, error) {
	if err := p.validate().OrNil(); err != nil {
		return nil, err
	}
	r := &CollectionRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		IsActive:            true,
	}
	r.apply(p)
	return r, nil
}

// Update replaces the writable fields
func (r *CollectionRule) Update(p CollectionRuleParams, now time.Time) error {
	if err := p.validate().OrNil(); err != nil {
		return err
	}
	r.apply(p)
	r.Touch(now)
	r.IncrementVersion()
	return nil
}

func (r *CollectionRule) apply(p CollectionRuleParams) {
	r.Name = strings.TrimSpace(p.Name)
	r.DaysBeforeDue = p.DaysBeforeDue
	r.Channel = p.Channel
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
}

// TargetDueDate is the due date this rule reminds about on runDate
func (r *CollectionRule) TargetDueDate(runDate time.Time) time.Time {
	return DateOnly(runDate).AddDate(0, 0, r.DaysBeforeDue)
}

// CollectionLogStatus is the delivery state of a reminder
type CollectionLogStatus string

const CollectionLogSent CollectionLogStatus = "sent"

// CollectionLog records one reminder for one title on one day
type CollectionLog struct {
	shared.BaseEntity
	TenantID uuid.UUID
	RuleID   uuid.UUID
	TitleID  uuid.UUID
	Channel  CollectionChannel
	Status   CollectionLogStatus
	RunDate  time.Time
}

// NewCollectionLog records a sent reminder
func NewCollectionLog(rule *CollectionRule, title *FinancialTitle, runDate time.Time) *CollectionLog {
	return &CollectionLog{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   rule.TenantID,
		RuleID:     rule.ID,
		TitleID:    title.ID,
		Channel:    rule.Channel,
		Status:     CollectionLogSent,
		RunDate:    DateOnly(runDate),
	}
}
