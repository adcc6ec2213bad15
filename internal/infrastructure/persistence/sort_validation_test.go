package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "DESC", ValidateSortOrder(" desc "))
	assert.Equal(t, "DESC", ValidateSortOrder("DESC"))
	assert.Equal(t, "ASC", ValidateSortOrder(""))
	assert.Equal(t, "ASC", ValidateSortOrder("sideways"))
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name  string
		field string
		dir   string
		want  string
	}{
		{"allowed field", "amount", "desc", "amount DESC, id ASC"},
		{"unknown field falls back", "amount; DROP TABLE payments", "asc", "due_date ASC, id ASC"},
		{"empty field", "", "", "due_date ASC, id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.field, TitleSortFields, "due_date", tt.dir))
		})
	}
}
