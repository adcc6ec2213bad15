package finance

import (
	"testing"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransfer(t *testing.T) *FundTransfer {
	t.Helper()
	transfer, err := NewFundTransfer(uuid.New(), NewFundTransferParams{
		BankAccountID: uuid.New(),
		ToUserID:      uuid.New(),
		RecipientName: " Carlos ",
		Amount:        dec("350.004"),
		TransferDate:  testNow,
		PaymentMethod: "pix",
		Description:   "Adiantamento de viagem",
		CreatedBy:     uuid.New(),
	})
	require.NoError(t, err)
	return transfer
}

func TestNewFundTransfer_Validation(t *testing.T) {
	_, err := NewFundTransfer(uuid.New(), NewFundTransferParams{Amount: dec("0.004")})

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"bank_account_id", "to_user_id", "amount", "transfer_date", "payment_method", "description"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestFundTransfer_BooksSettledPayable(t *testing.T) {
	transfer := newTestTransfer(t)
	assert.Equal(t, FundTransferCompleted, transfer.Status)
	assert.Equal(t, "350", transfer.Amount.String())
	assert.Equal(t, "Carlos", transfer.RecipientName)

	payable, err := NewFinancialTitle(transfer.TenantID, transfer.PayableParams(), testNow)
	require.NoError(t, err)
	assert.Equal(t, DirectionPayable, payable.Direction)
	assert.Equal(t, SourceTypeFundTransfer, payable.SourceType)
	assert.Equal(t, transfer.ToUserID, *payable.CounterpartyID)
	assert.True(t, payable.DueDate.Equal(transfer.TransferDate))

	payment, err := NewPayment(transfer.TenantID, payable.Ref(), transfer.PaymentParams())
	require.NoError(t, err)
	require.NoError(t, payable.ApplyPayment(payment.Amount, testNow))
	assert.Equal(t, TitleStatusPaid, payable.Status)

	transfer.Settle(payable.ID, payment.ID)
	assert.Equal(t, payable.ID, *transfer.PayableID)
	assert.Equal(t, payment.ID, *transfer.PaymentID)
}

func TestFundTransfer_Cancel(t *testing.T) {
	transfer := newTestTransfer(t)
	version := transfer.Version

	require.NoError(t, transfer.Cancel(" viagem adiada ", testNow))
	assert.True(t, transfer.IsCancelled())
	assert.Equal(t, version+1, transfer.Version)
	assert.Contains(t, transfer.CancelNote(), transfer.ID.String())
	assert.Contains(t, transfer.CancelNote(), ": viagem adiada")

	err := transfer.Cancel("", testNow)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeConflict, domainErr.Code)
}
