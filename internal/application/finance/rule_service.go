package finance

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
)

// RuleService manages reconciliation rules
type RuleService struct {
	rules finance.ReconciliationRuleRepository
	options
}

// NewRuleService creates a new RuleService
func NewRuleService(rules finance.ReconciliationRuleRepository, opts ...Option) *RuleService {
	return &RuleService{rules: rules, options: newOptions(opts)}
}

// List returns rules in evaluation order
func (s *RuleService) List(ctx context.Context, tenantID uuid.UUID, filter RuleListFilter) ([]RuleResponse, int64, error) {
	f := finance.RuleFilter{
		Filter:     shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize(),
		ActiveOnly: filter.ActiveOnly,
	}
	rules, err := s.rules.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.rules.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RuleResponse, len(rules))
	for i := range rules {
		out[i] = ToRuleResponse(&rules[i])
	}
	return out, total, nil
}

// Get returns one rule
func (s *RuleService) Get(ctx context.Context, tenantID, id uuid.UUID) (*RuleResponse, error) {
	rule, err := s.rules.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToRuleResponse(rule)
	return &resp, nil
}

// Create creates an active rule
func (s *RuleService) Create(ctx context.Context, tenantID uuid.UUID, actor Actor, req RuleRequest) (*RuleResponse, error) {
	rule, err := finance.NewReconciliationRule(tenantID, req.params())
	if err != nil {
		return nil, err
	}
	rule.SetCreatedBy(actor.UserID)
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}
	resp := ToRuleResponse(rule)
	return &resp, nil
}

// Update replaces the writable fields of a rule
func (s *RuleService) Update(ctx context.Context, tenantID, id uuid.UUID, req RuleRequest) (*RuleResponse, error) {
	rule, err := s.rules.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := rule.Update(req.params(), s.now()); err != nil {
		return nil, err
	}
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}
	resp := ToRuleResponse(rule)
	return &resp, nil
}

// Toggle flips is_active
func (s *RuleService) Toggle(ctx context.Context, tenantID, id uuid.UUID) (*RuleResponse, error) {
	rule, err := s.rules.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	rule.Toggle(s.now())
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}
	resp := ToRuleResponse(rule)
	return &resp, nil
}

// Delete removes a rule. Entries it processed keep their rule_id.
func (s *RuleService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.rules.FindByIDForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	return s.rules.Delete(ctx, tenantID, id)
}
