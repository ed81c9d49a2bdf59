package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 25)
	assert.Equal(t, int64(3), p.TotalPages)
	assert.True(t, p.HasMore)
	assert.Equal(t, 11, p.From)
	assert.Equal(t, 20, p.To)

	last := NewPagination(3, 10, 25)
	assert.False(t, last.HasMore)
	assert.Equal(t, 21, last.From)
	assert.Equal(t, 25, last.To)
}

func TestNewPaginationEmpty(t *testing.T) {
	p := NewPagination(1, 10, 0)
	assert.Equal(t, int64(0), p.TotalPages)
	assert.False(t, p.HasMore)
	assert.Zero(t, p.From)
	assert.Zero(t, p.To)
}
