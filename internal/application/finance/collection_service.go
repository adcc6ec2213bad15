package finance

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollectionService manages collection rules and records reminders for
// receivables approaching or past their due date.
type CollectionService struct {
	rules  finance.CollectionRuleRepository
	logs   finance.CollectionLogRepository
	titles finance.TitleRepository
	options
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(repos Repositories, opts ...Option) *CollectionService {
	return &CollectionService{
		rules:   repos.CollectionRules,
		logs:    repos.CollectionLogs,
		titles:  repos.Titles,
		options: newOptions(opts),
	}
}

// List returns every collection rule of the tenant
func (s *CollectionService) List(ctx context.Context, tenantID uuid.UUID) ([]CollectionRuleResponse, error) {
	rules, err := s.rules.FindAllForTenant(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	out := make([]CollectionRuleResponse, len(rules))
	for i := range rules {
		out[i] = ToCollectionRuleResponse(&rules[i])
	}
	return out, nil
}

// Create creates an active collection rule
func (s *CollectionService) Create(ctx context.Context, tenantID uuid.UUID, actor Actor, req CollectionRuleRequest) (*CollectionRuleResponse, error) {
	rule, err := finance.NewCollectionRule(tenantID, req.params())
	if err != nil {
		return nil, err
	}
	rule.SetCreatedBy(actor.UserID)
	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}
	resp := ToCollectionRuleResponse(rule)
	return &resp, nil
}

// Update replaces the writable fields of a collection rule
func (s *CollectionService) Update(ctx context.Context, tenantID, id uuid.UUID, req CollectionRuleRequest) (*CollectionRuleResponse, error) {
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
	resp := ToCollectionRuleResponse(rule)
	return &resp, nil
}

// Delete removes a collection rule
func (s *CollectionService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.rules.FindByIDForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	return s.rules.Delete(ctx, tenantID, id)
}

// Run records today's reminders of every active rule. A title gets at most
// one reminder per rule per day, so reruns only count skips.
func (s *CollectionService) Run(ctx context.Context, tenantID uuid.UUID) (*CollectionRunResult, error) {
	runDate := finance.DateOnly(s.now())
	rules, err := s.rules.FindAllForTenant(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}

	result := &CollectionRunResult{RunDate: runDate, Rules: len(rules)}
	for i := range rules {
		rule := &rules[i]
		due := rule.TargetDueDate(runDate)
		titles, err := s.titles.FindOpen(ctx, tenantID, finance.OpenTitleQuery{
			Direction: finance.DirectionReceivable,
			DueFrom:   &due,
			DueTo:     &due,
		})
		if err != nil {
			return nil, err
		}

		for j := range titles {
			created, err := s.logs.CreateIfAbsent(ctx, finance.NewCollectionLog(rule, &titles[j], runDate))
			if err != nil {
				return nil, err
			}
			if !created {
				result.Skipped++
				continue
			}
			result.Sent++
			s.logger.Info("collection reminder recorded",
				zap.String("tenant_id", tenantID.String()),
				zap.String("rule_id", rule.ID.String()),
				zap.String("title_id", titles[j].ID.String()),
				zap.String("channel", string(rule.Channel)))
		}
	}
	return result, nil
}
