package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPageOffset(t *testing.T) {
	tests := []struct {
		in                    Pagination
		wantOffset, wantLimit int
	}{
		{Pagination{}, 0, DefaultPageLimit},
		{Pagination{Page: 3, Limit: 20}, 40, 20},
		{Pagination{Page: -1, Limit: 500}, 0, MaxPageLimit},
	}
	for _, tt := range tests {
		p := tt.in
		offset, limit := p.GetPageOffset()
		assert.Equal(t, tt.wantOffset, offset)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, limit, p.Limit)
	}
}

func TestNewPageResult(t *testing.T) {
	res := NewPageResult([]string{"a"}, 21, Pagination{Page: 1, Limit: 10})
	assert.Equal(t, int64(3), res.TotalPages)

	res = NewPageResult([]string{}, 0, Pagination{Page: 1, Limit: 10})
	assert.Equal(t, int64(0), res.TotalPages)
}
