package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to ASC
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "desc") {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField returns sortField when it is whitelisted, else defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// TitleSortFields contains allowed sort fields for titles
var TitleSortFields = map[string]bool{
	"created_at":        true,
	"due_date":          true,
	"amount":            true,
	"amount_paid":       true,
	"status":            true,
	"description":       true,
	"counterparty_name": true,
}

// StatementSortFields contains allowed sort fields for bank statements
var StatementSortFields = map[string]bool{
	"imported_at":   true,
	"filename":      true,
	"entries_count": true,
	"matched_count": true,
}

// EntrySortFields contains allowed sort fields for statement entries
var EntrySortFields = map[string]bool{
	"date":        true,
	"amount":      true,
	"description": true,
	"status":      true,
}

// orderClause builds a whitelisted ORDER BY with id as the tiebreaker so
// pagination is stable.
func orderClause(field string, allowed map[string]bool, defaultField, dir string) string {
	return ValidateSortField(field, allowed, defaultField) + " " + ValidateSortOrder(dir) + ", id ASC"
}

// likePattern builds a case-insensitive substring pattern for LOWER(col) LIKE ?
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
