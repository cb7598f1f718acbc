package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageRequest(t *testing.T) {
	tests := []struct {
		name          string
		page, perPage int
		wantPage      int
		wantPerPage   int
		wantOffset    int
	}{
		{"defaults", 0, 0, 1, DefaultPerPage, 0},
		{"negative page", -3, 5, 1, 5, 0},
		{"second page", 2, 20, 2, 20, 20},
		{"huge page", 461168601842738792, 20, MaxPage, 20, (MaxPage - 1) * 20},
		{"max int page", math.MaxInt, MaxPerPage + 1, MaxPage, MaxPerPage, (MaxPage - 1) * MaxPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPageRequest(tt.page, tt.perPage)
			assert.Equal(t, tt.wantPage, r.Page)
			assert.Equal(t, tt.wantPerPage, r.PerPage)
			assert.Equal(t, tt.wantOffset, r.Offset())
			assert.GreaterOrEqual(t, r.Offset(), 0)
		})
	}
}

func TestPageRequest_OutOfRange(t *testing.T) {
	assert.False(t, NewPageRequest(1, 20).OutOfRange(0))
	assert.True(t, NewPageRequest(MaxPage, 20).OutOfRange(0))
	assert.False(t, NewPageRequest(3, 20).OutOfRange(1))
}

func TestNewPage(t *testing.T) {
	p := NewPage[int](nil, 2, 20, 41)
	assert.Equal(t, []int{}, p.Items)
	assert.Equal(t, 3, p.Pages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
}
