package finance

import (
	"sort"
	"strings"
	"time"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountType classifies a chart of accounts node
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// IsValid checks if the type is a valid value
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// ChartOfAccount is a node of the classification tree
type ChartOfAccount struct {
	shared.TenantAggregateRoot
	Code     string
	Name     string
	Type     AccountType
	ParentID *uuid.UUID
	IsActive bool
}

// AccountParams holds the writable fields of an account
type AccountParams struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *uuid.UUID
	IsActive *bool
}

func (p AccountParams) validate(parent *ChartOfAccount) (AccountType, *shared.ValidationError) {
	v := &shared.ValidationError{}
	if strings.TrimSpace(p.Code) == "" {
		v.Add("code", "is required")
	} else if len(p.Code) > 20 {
		v.Add("code", "may not be greater than 20 characters")
	}
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "is required")
	} else if len(p.Name) > 255 {
		v.Add("name", "may not be greater than 255 characters")
	}

	accountType := p.Type
	if accountType == "" && parent != nil {
		accountType = parent.Type
	}
	switch {
	case !accountType.IsValid():
		v.Add("type", "must be one of asset, liability, equity, revenue, expense")
	case parent != nil && parent.Type != accountType:
		v.Add("type", "must match the parent account type")
	}
	return accountType, v
}

// NewChartOfAccount creates an account under parent (nil for a root)
func NewChartOfAccount(tenantID uuid.UUID, p AccountParams, parent *ChartOfAccount) (*ChartOfAccount, error) {
	accountType, v := p.validate(parent)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	a := &ChartOfAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.TrimSpace(p.Code),
		Name:                strings.TrimSpace(p.Name),
		Type:                accountType,
		IsActive:            true,
	}
	if parent != nil {
		parentID := parent.ID
		a.ParentID = &parentID
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	return a, nil
}

// Update changes the account. ancestors lists the chain from the new parent
// up to its root and is used to reject cycles.
func (a *ChartOfAccount) Update(p AccountParams, parent *ChartOfAccount, ancestors []uuid.UUID, now time.Time) error {
	if parent != nil {
		if parent.ID == a.ID {
			return shared.NewValidationError("parent_id", "an account cannot be its own parent")
		}
		for _, id := range ancestors {
			if id == a.ID {
				return shared.NewValidationError("parent_id", "would create a cycle in the chart of accounts")
			}
		}
	}

	accountType, v := p.validate(parent)
	if err := v.OrNil(); err != nil {
		return err
	}

	a.Code = strings.TrimSpace(p.Code)
	a.Name = strings.TrimSpace(p.Name)
	a.Type = accountType
	a.ParentID = nil
	if parent != nil {
		parentID := parent.ID
		a.ParentID = &parentID
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	a.Touch(now)
	a.IncrementVersion()
	return nil
}

// AccountNode is an account with its nested children
type AccountNode struct {
	ID       uuid.UUID      `json:"id"`
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Type     AccountType    `json:"type"`
	ParentID *uuid.UUID     `json:"parent_id"`
	IsActive bool           `json:"is_active"`
	Children []*AccountNode `json:"children"`
}

// BuildTree groups a flat account list by parent. Accounts whose parent is
// not in the list become roots. Siblings are ordered by code.
func BuildTree(accounts []ChartOfAccount) []*AccountNode {
	nodes := make(map[uuid.UUID]*AccountNode, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		nodes[a.ID] = &AccountNode{
			ID:       a.ID,
			Code:     a.Code,
			Name:     a.Name,
			Type:     a.Type,
			ParentID: a.ParentID,
			IsActive: a.IsActive,
			Children: []*AccountNode{},
		}
	}

	roots := make([]*AccountNode, 0)
	for i := range accounts {
		node := nodes[accounts[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*AccountNode) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
