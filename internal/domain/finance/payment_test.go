package finance

import (
	"testing"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	ref := ReceivableRef{ID: uuid.New()}
	user := uuid.New()

	p, err := NewPayment(uuid.New(), ref, RecordPaymentParams{
		Amount:        dec("12.345"),
		PaymentMethod: " pix ",
		PaymentDate:   testNow,
		ReceivedBy:    user,
	})
	require.NoError(t, err)

	assert.Equal(t, "12.35", p.Amount.StringFixed(2))
	assert.Equal(t, "pix", p.PaymentMethod)
	assert.True(t, p.PaymentDate.Equal(DateOnly(testNow)))
	assert.Equal(t, user, *p.ReceivedBy)
	assert.True(t, SameRef(ref, p.Title))
}

func TestNewPayment_Validation(t *testing.T) {
	_, err := NewPayment(uuid.New(), PayableRef{ID: uuid.New()}, RecordPaymentParams{Amount: dec("0")})

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "payment_method")
	assert.Contains(t, verr.Fields, "payment_date")

	_, err = NewPayment(uuid.New(), nil, RecordPaymentParams{Amount: dec("1"), PaymentMethod: "pix", PaymentDate: testNow})
	assert.True(t, shared.IsValidation(err))
}

func TestPayment_Reverse(t *testing.T) {
	original, err := NewPayment(uuid.New(), PayableRef{ID: uuid.New()}, RecordPaymentParams{
		Amount: dec("40"), PaymentMethod: "boleto", PaymentDate: testNow,
	})
	require.NoError(t, err)

	reversal, err := original.Reverse("estorno", uuid.New(), testNow)
	require.NoError(t, err)

	assert.True(t, original.Reversed)
	assert.True(t, reversal.IsReversal())
	assert.Equal(t, original.ID, *reversal.ReversalOf)
	assert.True(t, SumPayments([]Payment{*original, *reversal}).IsZero())

	_, err = original.Reverse("again", uuid.Nil, testNow)
	assert.True(t, shared.IsConflict(err))
	_, err = reversal.Reverse("reverse a reversal", uuid.Nil, testNow)
	assert.True(t, shared.IsConflict(err))
}
