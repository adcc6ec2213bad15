package finance

import (
	"testing"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(t *testing.T, tenantID uuid.UUID, code string, accountType AccountType, parent *ChartOfAccount) *ChartOfAccount {
	t.Helper()
	a, err := NewChartOfAccount(tenantID, AccountParams{Code: code, Name: "Conta " + code, Type: accountType}, parent)
	require.NoError(t, err)
	return a
}

func TestNewChartOfAccount(t *testing.T) {
	tenantID := uuid.New()
	root := newAccount(t, tenantID, "3", AccountTypeRevenue, nil)

	t.Run("child inherits the parent type", func(t *testing.T) {
		child := newAccount(t, tenantID, "3.1", "", root)
		assert.Equal(t, AccountTypeRevenue, child.Type)
		assert.Equal(t, root.ID, *child.ParentID)
	})

	t.Run("child type must match parent", func(t *testing.T) {
		_, err := NewChartOfAccount(tenantID, AccountParams{Code: "3.2", Name: "x", Type: AccountTypeExpense}, root)
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "type")
	})

	t.Run("root needs a type", func(t *testing.T) {
		_, err := NewChartOfAccount(tenantID, AccountParams{Code: "9", Name: "x"}, nil)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestChartOfAccount_UpdateRejectsCycles(t *testing.T) {
	tenantID := uuid.New()
	root := newAccount(t, tenantID, "4", AccountTypeExpense, nil)
	child := newAccount(t, tenantID, "4.1", "", root)
	grandchild := newAccount(t, tenantID, "4.1.1", "", child)

	params := AccountParams{Code: root.Code, Name: root.Name, Type: root.Type}

	err := root.Update(params, root, nil, testNow)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "parent_id")

	// grandchild's ancestors are child and root
	err = root.Update(params, grandchild, []uuid.UUID{child.ID, root.ID}, testNow)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "parent_id")
	assert.Nil(t, root.ParentID)

	other := newAccount(t, tenantID, "5", AccountTypeExpense, nil)
	require.NoError(t, grandchild.Update(AccountParams{Code: "5.1", Name: "Movida", Type: AccountTypeExpense}, other, nil, testNow))
	assert.Equal(t, other.ID, *grandchild.ParentID)
}

func TestBuildTree(t *testing.T) {
	tenantID := uuid.New()
	revenue := newAccount(t, tenantID, "3", AccountTypeRevenue, nil)
	services := newAccount(t, tenantID, "3.2", "", revenue)
	products := newAccount(t, tenantID, "3.1", "", revenue)
	asset := newAccount(t, tenantID, "1", AccountTypeAsset, nil)

	orphanParent := uuid.New()
	orphan := newAccount(t, tenantID, "2", AccountTypeLiability, nil)
	orphan.ParentID = &orphanParent

	tree := BuildTree([]ChartOfAccount{*services, *revenue, *orphan, *products, *asset})

	require.Len(t, tree, 3)
	assert.Equal(t, "1", tree[0].Code)
	assert.Equal(t, "2", tree[1].Code)
	assert.Equal(t, "3", tree[2].Code)
	require.Len(t, tree[2].Children, 2)
	assert.Equal(t, "3.1", tree[2].Children[0].Code)
	assert.Equal(t, "3.2", tree[2].Children[1].Code)
	assert.Empty(t, tree[0].Children)
	assert.NotNil(t, tree[0].Children)
}
