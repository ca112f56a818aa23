package usecase

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
	"github.com/lucasrcosta20/IA-Cadastro/internal/infrastructure/promptstore"
)

// DefaultPromptTemplate is the built-in template
const DefaultPromptTemplate = `Crie uma descrição comercial envolvente para o produto abaixo.
Use apenas as informações fornecidas: Nome, Material, Cor, Descrição do Fornecedor, Categoria 1 e Categoria 2.
Não coloque títulos, listas, cabeçalhos ou markdown.
Não invente medidas, dimensões ou características não mencionadas.
O texto deve ser corrido e persuasivo para venda online.

Nome: {nome}
Material: {material}
Cor: {cor}
Descrição do Fornecedor: {descricao_fornecedor}
Categoria 1: {categoria1}
Categoria 2: {categoria2}

Descrição comercial:`

// DefaultSystemPrompt is the built-in system prompt
const DefaultSystemPrompt = "Você é um especialista em descrições comerciais para e-commerce. Crie textos persuasivos e profissionais."

const fallbackPrompt = "Crie uma descrição comercial para o produto: %s"

var tlog = log.WithField("component", "prompts")

// Variable describes a placeholder accepted by templates
type Variable struct {
	Placeholder string `json:"placeholder"`
	Description string `json:"description"`
}

// variables lists the placeholders in presentation order
var variables = []Variable{
	{"{nome}", "Nome do produto"},
	{"{material}", "Material do produto"},
	{"{cor}", "Cor do produto"},
	{"{descricao_fornecedor}", "Descrição fornecida pelo fornecedor"},
	{"{categoria1}", "Categoria principal"},
	{"{categoria2}", "Categoria secundária"},
	{"{marca}", "Marca do produto"},
	{"{preco}", "Preço formatado (R$ X.XX)"},
}

// sampleProduct is used for dry-run validation
var sampleProduct = domain.Product{
	Name:                "Teste",
	Material:            "Material Teste",
	Color:               "Cor Teste",
	SupplierDescription: "Descrição Teste",
	Category1:           "Categoria 1",
	Category2:           "Categoria 2",
}

// TemplateError reports why a template cannot be rendered
type TemplateError struct {
	Placeholder string
	Offset      int
	Reason      string
}

func (e *TemplateError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("%s: {%s} at offset %d", e.Reason, e.Placeholder, e.Offset)
	}
	return fmt.Sprintf("%s at offset %d", e.Reason, e.Offset)
}

func (e *TemplateError) Unwrap() error {
	return domain.ErrInvalidTemplate
}

// segment is either literal text or a placeholder name
type segment struct {
	text        string
	placeholder bool
}

// parseTemplate splits a template into segments.
// "{{" and "}}" are literal braces; anything else between braces must be a known placeholder.
func parseTemplate(tpl string) ([]segment, error) {
	var (
		segments []segment
		lit      strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tpl); i++ {
		switch tpl[i] {
		case '{':
			if i+1 < len(tpl) && tpl[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexAny(tpl[i+1:], "{}")
			if end < 0 || tpl[i+1+end] == '{' {
				return nil, &TemplateError{Offset: i, Reason: "unclosed '{'"}
			}
			name := tpl[i+1 : i+1+end]
			if name == "" {
				return nil, &TemplateError{Offset: i, Reason: "empty placeholder"}
			}
			if !isPlaceholder(name) {
				return nil, &TemplateError{Placeholder: name, Offset: i, Reason: "unknown placeholder"}
			}
			flush()
			segments = append(segments, segment{text: name, placeholder: true})
			i += end + 1
		case '}':
			if i+1 < len(tpl) && tpl[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &TemplateError{Offset: i, Reason: "single '}' encountered"}
		default:
			lit.WriteByte(tpl[i])
		}
	}
	flush()

	return segments, nil
}

func isPlaceholder(name string) bool {
	for _, v := range variables {
		if v.Placeholder[1:len(v.Placeholder)-1] == name {
			return true
		}
	}
	return false
}

// fieldValues maps every placeholder to its rendered value
func fieldValues(p domain.Product) map[string]string {
	preco := ""
	if v, ok := p.PriceValue(); ok {
		preco = fmt.Sprintf("R$ %.2f", v)
	}
	return map[string]string{
		"nome":                 p.Name,
		"material":             p.Material,
		"cor":                  p.Color,
		"descricao_fornecedor": p.SupplierDescription,
		"categoria1":           p.Category1,
		"categoria2":           p.Category2,
		"marca":                p.Brand,
		"preco":                preco,
	}
}

func execute(segments []segment, p domain.Product) string {
	values := fieldValues(p)

	var b strings.Builder
	for _, s := range segments {
		if s.placeholder {
			b.WriteString(values[s.text])
		} else {
			b.WriteString(s.text)
		}
	}
	return b.String()
}

// PromptTemplater renders products into prompts using a user-editable template.
// Templates are untrusted input; Render never fails.
type PromptTemplater struct {
	mu        sync.RWMutex
	template  string
	segments  []segment
	parseErr  error
	system    string
	updatedAt time.Time

	store domain.PromptStore
	now   func() time.Time
}

// NewPromptTemplater creates a templater and restores the persisted prompts.
// store may be nil, in which case changes live in memory only.
func NewPromptTemplater(store domain.PromptStore) *PromptTemplater {
	t := &PromptTemplater{store: store, now: time.Now}
	t.apply(DefaultPromptTemplate, DefaultSystemPrompt, time.Time{})

	if store == nil {
		return t
	}

	set, err := store.Load()
	switch {
	case errors.Is(err, domain.ErrPromptsNotFound):
		tlog.Info("using default prompts")
	case err != nil:
		tlog.WithError(err).Error("could not load prompts, using defaults")
	default:
		t.apply(set.Template, set.System, set.UpdatedAt)
		if t.parseErr != nil {
			tlog.WithError(t.parseErr).Warn("persisted template is invalid, rendering will fall back")
		}
		tlog.Info("custom prompts loaded")
	}

	return t
}

// apply replaces the active prompts. Caller holds the lock or owns t.
func (t *PromptTemplater) apply(template, system string, updatedAt time.Time) {
	t.template = template
	t.system = system
	t.updatedAt = updatedAt
	t.segments, t.parseErr = parseTemplate(template)
}

// Render renders the active template for p, falling back to a minimal prompt
func (t *PromptTemplater) Render(p domain.Product) string {
	t.mu.RLock()
	segments, parseErr := t.segments, t.parseErr
	t.mu.RUnlock()

	if parseErr != nil {
		tlog.WithError(parseErr).WithField("product", p.Name).Error("could not render prompt, using fallback")
		return fmt.Sprintf(fallbackPrompt, p.Name)
	}
	return execute(segments, p)
}

// SystemPrompt returns the active system prompt
func (t *PromptTemplater) SystemPrompt() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.system
}

// Prompts returns the active template and system prompt
func (t *PromptTemplater) Prompts() domain.PromptSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return domain.PromptSet{Template: t.template, System: t.system, UpdatedAt: t.updatedAt}
}

// Validate dry-runs template against a sample product.
// The returned error is a *TemplateError naming the first offending placeholder.
func (t *PromptTemplater) Validate(template string) error {
	segments, err := parseTemplate(template)
	if err != nil {
		return err
	}
	_ = execute(segments, sampleProduct)
	return nil
}

// Update replaces the template, the system prompt, or both, and persists them.
// A template that fails validation is rejected and nothing changes.
func (t *PromptTemplater) Update(template, system *string) error {
	if template != nil {
		if err := t.Validate(*template); err != nil {
			return err
		}
	}

	t.mu.Lock()
	newTemplate, newSystem := t.template, t.system
	if template != nil {
		newTemplate = *template
		tlog.Info("prompt template updated")
	}
	if system != nil {
		newSystem = *system
		tlog.Info("system prompt updated")
	}
	t.apply(newTemplate, newSystem, t.now())
	set := domain.PromptSet{Template: t.template, System: t.system, UpdatedAt: t.updatedAt}
	t.mu.Unlock()

	return t.save(set)
}

// Reset restores the built-in prompts and persists them
func (t *PromptTemplater) Reset() error {
	t.mu.Lock()
	t.apply(DefaultPromptTemplate, DefaultSystemPrompt, t.now())
	set := domain.PromptSet{Template: t.template, System: t.system, UpdatedAt: t.updatedAt}
	t.mu.Unlock()

	tlog.Info("prompts reset to defaults")
	return t.save(set)
}

// Variables describes the placeholders templates may use
func (t *PromptTemplater) Variables() []Variable {
	out := make([]Variable, len(variables))
	copy(out, variables)
	return out
}

// Import loads prompts from a YAML document, validates the template and applies it
func (t *PromptTemplater) Import(path string) error {
	set, err := promptstore.New(path).Load()
	if err != nil {
		return fmt.Errorf("import prompts from %s: %w", path, err)
	}
	if err := t.Update(&set.Template, &set.System); err != nil {
		return fmt.Errorf("import prompts from %s: %w", path, err)
	}

	tlog.WithField("file", path).Info("prompts imported")
	return nil
}

// Export writes the active prompts to a YAML document
func (t *PromptTemplater) Export(path string) error {
	if err := promptstore.New(path).Save(t.Prompts()); err != nil {
		return fmt.Errorf("export prompts to %s: %w", path, err)
	}

	tlog.WithField("file", path).Info("prompts exported")
	return nil
}

func (t *PromptTemplater) save(set domain.PromptSet) error {
	if t.store == nil {
		return nil
	}
	if err := t.store.Save(set); err != nil {
		tlog.WithError(err).Error("could not save prompts")
		return err
	}
	return nil
}
