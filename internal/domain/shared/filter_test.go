package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Paging(t *testing.T) {
	tests := []struct {
		name       string
		filter     Filter
		wantLimit  int
		wantOffset int
	}{
		{name: "zero value", filter: Filter{}, wantLimit: DefaultPageSize, wantOffset: 0},
		{name: "first page", filter: Filter{Page: 1, PageSize: 10}, wantLimit: 10, wantOffset: 0},
		{name: "third page", filter: Filter{Page: 3, PageSize: 10}, wantLimit: 10, wantOffset: 20},
		{name: "page without size", filter: Filter{Page: 2}, wantLimit: DefaultPageSize, wantOffset: DefaultPageSize},
		{name: "negative page", filter: Filter{Page: -4, PageSize: 5}, wantLimit: 5, wantOffset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantLimit, tt.filter.Limit())
			assert.Equal(t, tt.wantOffset, tt.filter.Offset())
		})
	}
}
