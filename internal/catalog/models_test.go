package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestProductPatch_Assignments(t *testing.T) {
	price := decimal.RequireFromString("12.50")
	cols, vals := ProductPatch{
		Stock: ptr(3),
		Name:  ptr("Dune"),
		Price: &price,
	}.assignments()

	assert.Equal(t, []string{"name", "price", "stock"}, cols)
	assert.Equal(t, []any{"Dune", "12.5", 3}, vals)
}

func TestProductPatch_Validate(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	tests := []struct {
		name  string
		patch ProductPatch
		ok    bool
	}{
		{"empty patch is valid shape", ProductPatch{}, true},
		{"empty name", ProductPatch{Name: ptr("")}, false},
		{"negative price", ProductPatch{Price: &neg}, false},
		{"negative stock", ProductPatch{Stock: ptr(-1)}, false},
		{"zero stock", ProductPatch{Stock: ptr(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidProduct)
			}
		})
	}
}
