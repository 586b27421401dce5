package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{
			name: "zero value gets defaults",
			in:   PageRequest{},
			want: PageRequest{Page: 0, Size: 10, Sort: "purchaseDate", Direction: "desc"},
		},
		{
			name: "valid request kept",
			in:   PageRequest{Page: 2, Size: 25, Sort: "unitPrice", Direction: "asc"},
			want: PageRequest{Page: 2, Size: 25, Sort: "unitPrice", Direction: "asc"},
		},
		{
			name: "direction is case insensitive",
			in:   PageRequest{Size: 5, Sort: "quantity", Direction: " ASC "},
			want: PageRequest{Size: 5, Sort: "quantity", Direction: "asc"},
		},
		{
			name: "unknown sort falls back",
			in:   PageRequest{Size: 5, Sort: "id; DROP TABLE x", Direction: "sideways"},
			want: PageRequest{Size: 5, Sort: "purchaseDate", Direction: "desc"},
		},
		{
			name: "size clamped",
			in:   PageRequest{Page: -3, Size: 1000, Sort: "productSku"},
			want: PageRequest{Page: 0, Size: 100, Sort: "productSku", Direction: "desc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPageOffsetAndTotals(t *testing.T) {
	assert.Equal(t, 30, PageRequest{Page: 3, Size: 10}.Offset())

	assert.Equal(t, 0, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 2, totalPages(11, 10))

	huge := PageRequest{Page: 1 << 40, Size: 100}.Normalize()
	assert.LessOrEqual(t, huge.Offset(), 1<<31-1)
}
