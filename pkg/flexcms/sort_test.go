package flexcms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/flex-cms/pkg/flexcms"
)

func TestResolveSort(t *testing.T) {
	tests := []struct {
		name  string
		order string
		want  flexcms.SortSpec
	}{
		{
			name:  "native column ascending",
			order: "createdAt",
			want:  flexcms.SortSpec{Column: "createdAt"},
		},
		{
			name:  "leading dash sorts descending",
			order: "-createdAt",
			want:  flexcms.SortSpec{Column: "createdAt", Descending: true},
		},
		{
			name:  "DESC suffix sorts descending",
			order: "publishedAt DESC",
			want:  flexcms.SortSpec{Column: "publishedAt", Descending: true},
		},
		{
			name:  "ASC suffix is stripped",
			order: "modifiedAt ASC",
			want:  flexcms.SortSpec{Column: "modifiedAt"},
		},
		{
			name:  "leading dash wins over a DESC suffix",
			order: "-title DESC",
			want:  flexcms.SortSpec{Column: "title DESC", Descending: true, ByField: true},
		},
		{
			name:  "field column requires a join",
			order: "title",
			want:  flexcms.SortSpec{Column: "title", ByField: true},
		},
		{
			name:  "field column descending",
			order: "-heading",
			want:  flexcms.SortSpec{Column: "heading", Descending: true, ByField: true},
		},
		{
			name:  "surrounding whitespace is ignored",
			order: "  status  ",
			want:  flexcms.SortSpec{Column: "status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flexcms.ResolveSort(tt.order))
		})
	}
}
