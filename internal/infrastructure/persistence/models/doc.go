// Package models contains GORM persistence models for the finance tables.
// Domain entities carry no ORM tags; every model converts with ToDomain and
// FromDomain, and repositories only ever hand domain values to callers.
//
// Title references (the receivable/payable union) are stored as a
// (direction, id) column pair and rebuilt with finance.NewTitleRef.
package models
