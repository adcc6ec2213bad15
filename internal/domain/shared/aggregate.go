package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and audit timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh id with the current UTC time
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a modification at now
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// TenantAggregateRoot is embedded by every tenant owned aggregate. Version
// guards concurrent updates; events raised by a mutation wait here until the
// owning service has committed and published them.
type TenantAggregateRoot struct {
	BaseEntity
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
	Version   int

	pending []DomainEvent
}

// NewTenantAggregateRoot starts an aggregate at version 1
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{BaseEntity: NewBaseEntity(), TenantID: tenantID, Version: 1}
}

// SetCreatedBy records the creating user; uuid.Nil is ignored
func (a *TenantAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	if userID != uuid.Nil {
		a.CreatedBy = &userID
	}
}

func (a *TenantAggregateRoot) GetVersion() int { return a.Version }

func (a *TenantAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent queues an event for publication
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events
func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent { return a.pending }

// ClearDomainEvents drops the queued events once they were handed off
func (a *TenantAggregateRoot) ClearDomainEvents() { a.pending = nil }
