package event

import (
	"testing"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/stretchr/testify/assert"
)

func TestSubscriptions_DeliveryOrderFollowsSubscription(t *testing.T) {
	var subs subscriptions
	all := newRecordingHandler()
	payments := newRecordingHandler()

	subs.add(all, nil)
	subs.add(payments, []string{finance.EventTypePaymentRecorded, finance.EventTypePaymentReversed})

	handlers := subs.matching(finance.EventTypePaymentRecorded)
	assert.Len(t, handlers, 2)
	assert.Same(t, all, handlers[0])
	assert.Len(t, subs.matching(finance.EventTypeStatementImported), 1)
	assert.Equal(t, 2, subs.len())

	subs.remove(payments)
	assert.Len(t, subs.matching(finance.EventTypePaymentReversed), 1)
	assert.Equal(t, 1, subs.len())
}

func TestSubscriptions_ResubscribeWidensTypes(t *testing.T) {
	var subs subscriptions
	h := newRecordingHandler()

	subs.add(h, []string{finance.EventTypeTitleCreated})
	subs.add(h, []string{finance.EventTypeTitleCancelled})
	assert.Equal(t, 1, subs.len())
	assert.Len(t, subs.matching(finance.EventTypeTitleCancelled), 1)
	assert.Empty(t, subs.matching(finance.EventTypePaymentRecorded))

	subs.add(h, nil)
	assert.Len(t, subs.matching(finance.EventTypePaymentRecorded), 1)
}
