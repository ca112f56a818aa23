package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

// fieldSeparator is the ASCII unit separator; it does not occur in catalog text.
const fieldSeparator = "\x1f"

// Fingerprint returns the cache key for a product: a SHA-256 digest over
// every field that reaches the rendered prompt. Brand and price are part of
// the key so two products that differ only in price never share a description.
func Fingerprint(p domain.Product) string {
	price := ""
	if v, ok := p.PriceValue(); ok {
		price = strconv.FormatFloat(v, 'f', -1, 64)
	}

	data := strings.Join([]string{
		p.Name,
		p.Material,
		p.Color,
		p.SupplierDescription,
		p.Category1,
		p.Category2,
		p.Brand,
		price,
	}, fieldSeparator)

	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
