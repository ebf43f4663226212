package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
)

func TestPaginate_Ventanas(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		page      dto.PageRequest
		want      []int
		wantLimit int
	}{
		{"por defecto", dto.PageRequest{}, []int{1, 2, 3, 4, 5}, 20},
		{"primera página", dto.PageRequest{Limit: 2}, []int{1, 2}, 2},
		{"página final corta", dto.PageRequest{Limit: 2, Offset: 4}, []int{5}, 2},
		{"offset fuera de rango", dto.PageRequest{Limit: 2, Offset: 9}, []int{}, 2},
		{"offset negativo", dto.PageRequest{Limit: 1, Offset: -3}, []int{1}, 1},
		{"límite recortado", dto.PageRequest{Limit: 500}, []int{1, 2, 3, 4, 5}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, page := dto.Paginate(items, tt.page)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, 5, page.Total)
		})
	}
}
