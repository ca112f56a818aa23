package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		wantErr bool
	}{
		{"name only", Product{Name: "Caneca"}, false},
		{"full record", Product{Name: "Vaso", Material: "Vidro", Brand: "Casa", Price: Float64(49.9)}, false},
		{"zero price", Product{Name: "Brinde", Price: Float64(0)}, false},
		{"empty name", Product{}, true},
		{"blank name", Product{Name: "   "}, true},
		{"negative price", Product{Name: "Vaso", Price: Float64(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProduct)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPriceValue(t *testing.T) {
	_, ok := Product{Name: "Caneca"}.PriceValue()
	assert.False(t, ok)

	price, ok := Product{Name: "Caneca", Price: Float64(0)}.PriceValue()
	assert.True(t, ok)
	assert.Zero(t, price)
}

func TestSummarize(t *testing.T) {
	p := Product{Name: "Caneca"}
	cached := CacheEntry{Description: "Caneca azul", ModelUsed: "gemma2:2b"}.ToResult(p)
	results := []GenerationResult{
		NewSuccessResult(p, "Caneca azul", "gemma2:2b", time.Second),
		cached,
		NewFailureResult(p, ErrBackendTimeout, time.Second),
	}

	s := Summarize(results)
	assert.Equal(t, BatchSummary{Processed: 3, Successful: 2, Failed: 1, FromCache: 1}, s)
	assert.Equal(t, "2/3 succeeded (1 from cache)", s.String())
	assert.Equal(t, BatchSummary{}, Summarize(nil))
}

func TestNewFailureResult(t *testing.T) {
	r := NewFailureResult(Product{Name: "Vaso"}, errors.New("boom"), 0)
	assert.False(t, r.Success)
	assert.Equal(t, "boom", r.ErrorMessage)
	assert.Empty(t, r.Description)

	r = NewFailureResult(Product{Name: "Vaso"}, nil, 0)
	assert.NotEmpty(t, r.ErrorMessage)
}

func TestCacheEntryToResult(t *testing.T) {
	entry := CacheEntry{Description: "Vaso elegante", GenerationTime: 2 * time.Second, ModelUsed: "phi3:mini"}
	p := Product{Name: "Vaso", Color: "Verde"}

	r := entry.ToResult(p)
	assert.True(t, r.Success)
	assert.True(t, r.FromCache)
	assert.Equal(t, p, r.Product)
	assert.Equal(t, "Vaso elegante", r.Description)
	assert.Equal(t, "phi3:mini", r.ModelUsed)
}

func TestPullProgressPercent(t *testing.T) {
	assert.Zero(t, PullProgress{Status: "pulling manifest"}.Percent())
	assert.InDelta(t, 25.0, PullProgress{Total: 400, Completed: 100}.Percent(), 1e-9)
}
