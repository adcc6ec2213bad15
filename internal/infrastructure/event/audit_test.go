package event

import (
	"context"
	"testing"

	"github.com/erp/finance/internal/domain/finance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewAuditLogger(zap.New(core)))

	title := sampleTitle(t)
	require.NoError(t, bus.Publish(context.Background(), finance.NewTitleCreatedEvent(title)))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, finance.EventTypeTitleCreated, fields["event_type"])
	assert.Equal(t, title.TenantID.String(), fields["tenant_id"])
	assert.Equal(t, title.ID.String(), fields["aggregate_id"])
}
