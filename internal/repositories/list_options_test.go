package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{
			name: "zero value gets defaults",
			in:   ListOptions{},
			want: ListOptions{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "limit capped at the page-size maximum",
			in:   ListOptions{Page: 2, Limit: 5000},
			want: ListOptions{Page: 2, Limit: MaxPageSize, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "negative page clamped",
			in:   ListOptions{Page: -3, Limit: 20},
			want: ListOptions{Page: 1, Limit: 20, SortBy: "created_at", SortOrder: "desc"},
		},
		{
			name: "unknown sort column falls back instead of reaching the query",
			in:   ListOptions{SortBy: "1; DROP TABLE users", SortOrder: "asc"},
			want: ListOptions{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "asc"},
		},
		{
			name: "whitelisted column passes through",
			in:   ListOptions{SortBy: "due_date", SortOrder: "asc"},
			want: ListOptions{Page: 1, Limit: 10, SortBy: "due_date", SortOrder: "asc"},
		},
		{
			name: "bad sort order defaults to desc",
			in:   ListOptions{SortBy: "status", SortOrder: "sideways"},
			want: ListOptions{Page: 1, Limit: 10, SortBy: "status", SortOrder: "desc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestListOptions_Offset(t *testing.T) {
	assert.Equal(t, 0, ListOptions{Page: 1, Limit: 25}.Offset())
	assert.Equal(t, 50, ListOptions{Page: 3, Limit: 25}.Offset())
}
