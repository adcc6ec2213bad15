package finance

import (
	"context"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountService manages the chart of accounts
type AccountService struct {
	accounts finance.ChartOfAccountRepository
	titles   finance.TitleRepository
	options
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts finance.ChartOfAccountRepository, titles finance.TitleRepository, opts ...Option) *AccountService {
	return &AccountService{accounts: accounts, titles: titles, options: newOptions(opts)}
}

// List returns every account of the tenant ordered by code
func (s *AccountService) List(ctx context.Context, tenantID uuid.UUID) ([]AccountResponse, error) {
	accounts, err := s.accounts.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToAccountResponse(&accounts[i])
	}
	return out, nil
}

// Tree returns the accounts nested by parent
func (s *AccountService) Tree(ctx context.Context, tenantID uuid.UUID) ([]*finance.AccountNode, error) {
	accounts, err := s.accounts.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return finance.BuildTree(accounts), nil
}

// Get returns one account
func (s *AccountService) Get(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accounts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Create adds an account under an optional parent
func (s *AccountService) Create(ctx context.Context, tenantID uuid.UUID, actor Actor, req AccountRequest) (*AccountResponse, error) {
	parent, err := s.parent(ctx, tenantID, req.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCode(ctx, tenantID, req.Code, nil); err != nil {
		return nil, err
	}

	account, err := finance.NewChartOfAccount(tenantID, req.params(), parent)
	if err != nil {
		return nil, err
	}
	account.SetCreatedBy(actor.UserID)
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Update edits an account. Moving it under itself or one of its descendants
// is rejected.
func (s *AccountService) Update(ctx context.Context, tenantID, id uuid.UUID, req AccountRequest) (*AccountResponse, error) {
	account, err := s.accounts.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	parent, err := s.parent(ctx, tenantID, req.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCode(ctx, tenantID, req.Code, &id); err != nil {
		return nil, err
	}

	var ancestors []uuid.UUID
	if parent != nil {
		if ancestors, err = s.accounts.Ancestors(ctx, tenantID, parent.ID); err != nil {
			return nil, err
		}
	}
	if err := account.Update(req.params(), parent, ancestors, s.now()); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// Delete removes an account with no children and no classified titles
func (s *AccountService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.accounts.FindByIDForTenant(ctx, tenantID, id); err != nil {
		return err
	}
	children, err := s.accounts.CountChildren(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return shared.NewConflictError("account has child accounts")
	}
	titles, err := s.titles.CountByChartOfAccount(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if titles > 0 {
		return shared.NewConflictError("account is used by financial titles")
	}
	return s.accounts.Delete(ctx, tenantID, id)
}

func (s *AccountService) parent(ctx context.Context, tenantID uuid.UUID, id *uuid.UUID) (*finance.ChartOfAccount, error) {
	if id == nil || *id == uuid.Nil {
		return nil, nil
	}
	parent, err := s.accounts.FindByIDForTenant(ctx, tenantID, *id)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewValidationError("parent_id", "does not exist")
		}
		return nil, err
	}
	return parent, nil
}

func (s *AccountService) checkCode(ctx context.Context, tenantID uuid.UUID, code string, excludeID *uuid.UUID) error {
	exists, err := s.accounts.ExistsByCode(ctx, tenantID, code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewValidationError("code", "has already been taken")
	}
	return nil
}
