package finance

import (
	"fmt"

	"github.com/erp/finance/internal/domain/shared"
	"github.com/google/uuid"
)

// Direction tells whether a title brings cash in (receivable) or out (payable)
type Direction string

const (
	DirectionReceivable Direction = "receivable"
	DirectionPayable    Direction = "payable"
)

// IsValid checks if the direction is a valid value
func (d Direction) IsValid() bool {
	return d == DirectionReceivable || d == DirectionPayable
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// DeleteCapability is the permission a caller needs to delete a title of this direction
func (d Direction) DeleteCapability() string {
	return string(d) + ":delete"
}

// ParseDirection parses the wire name, accepting both "receivable" and the
// route style "accounts-receivable".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "receivable", "accounts-receivable", "accounts_receivable":
		return DirectionReceivable, nil
	case "payable", "accounts-payable", "accounts_payable":
		return DirectionPayable, nil
	}
	return "", shared.NewValidationError("matched_type", fmt.Sprintf("unknown title type %q", s))
}

// TitleRef is a reference to exactly one financial title. The concrete types
// are ReceivableRef and PayableRef; no other implementation exists.
type TitleRef interface {
	TitleID() uuid.UUID
	Direction() Direction
	isTitleRef()
}

// ReceivableRef points at an account receivable
type ReceivableRef struct {
	ID uuid.UUID
}

func (r ReceivableRef) TitleID() uuid.UUID   { return r.ID }
func (r ReceivableRef) Direction() Direction { return DirectionReceivable }
func (ReceivableRef) isTitleRef()            {}

// PayableRef points at an account payable
type PayableRef struct {
	ID uuid.UUID
}

func (r PayableRef) TitleID() uuid.UUID   { return r.ID }
func (r PayableRef) Direction() Direction { return DirectionPayable }
func (PayableRef) isTitleRef()            {}

// NewTitleRef builds the variant matching direction
func NewTitleRef(direction Direction, id uuid.UUID) (TitleRef, error) {
	switch direction {
	case DirectionReceivable:
		return ReceivableRef{ID: id}, nil
	case DirectionPayable:
		return PayableRef{ID: id}, nil
	}
	return nil, shared.NewValidationError("matched_type", fmt.Sprintf("unknown title type %q", direction))
}

// SameRef reports whether two references point at the same title
func SameRef(a, b TitleRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Direction() == b.Direction() && a.TitleID() == b.TitleID()
}
