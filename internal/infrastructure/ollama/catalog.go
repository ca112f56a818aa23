package ollama

import (
	"strings"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

// CatalogVersion identifies the revision of the built-in model table
const CatalogVersion = "2024.07"

// catalog lists the models the generator knows how to present.
// It is never mutated; Catalog and merge return copies.
var catalog = [...]domain.AIModel{
	{
		ID:          "gemma2:2b",
		Name:        "Gemma2 2B",
		Size:        "1.6GB",
		Speed:       "Média",
		Quality:     "Boa",
		Description: "Modelo equilibrado, recomendado para uso geral",
		Recommended: true,
	},
	{
		ID:          "phi3:mini",
		Name:        "Phi3 Mini",
		Size:        "2.3GB",
		Speed:       "Lenta",
		Quality:     "Excelente",
		Description: "Alta qualidade, melhor para textos complexos",
	},
	{
		ID:          "tinyllama",
		Name:        "TinyLlama",
		Size:        "637MB",
		Speed:       "Rápida",
		Quality:     "Básica",
		Description: "Muito rápido, qualidade básica",
	},
}

// Catalog returns a copy of the built-in model table with Installed unset
func Catalog() []domain.AIModel {
	out := make([]domain.AIModel, len(catalog))
	copy(out, catalog[:])
	return out
}

// merge marks each catalog entry installed when the inventory has it,
// either verbatim or with an implicit ":latest" tag
func merge(inventory []string) []domain.AIModel {
	installed := make(map[string]struct{}, len(inventory)*2)
	for _, name := range inventory {
		installed[name] = struct{}{}
		installed[strings.TrimSuffix(name, ":latest")] = struct{}{}
	}

	models := Catalog()
	for i := range models {
		_, models[i].Installed = installed[models[i].ID]
	}
	return models
}
