package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
	"github.com/lucasrcosta20/IA-Cadastro/internal/usecase"
)

// Version is reported by the health check
const Version = "1.0.0"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service   *usecase.DescriptionService
	templater *usecase.PromptTemplater
}

// NewHandler creates a new HTTP handler
func NewHandler(service *usecase.DescriptionService, templater *usecase.PromptTemplater) *Handler {
	return &Handler{
		service:   service,
		templater: templater,
	}
}

// GenerateRequest is the body of POST /generate
type GenerateRequest struct {
	Product  domain.Product `json:"product"`
	UseCache *bool          `json:"use_cache,omitempty"`
}

// BatchRequest is the body of POST /generate/batch
type BatchRequest struct {
	Products   []domain.Product `json:"products"`
	MaxWorkers int              `json:"max_workers,omitempty"`
}

// BatchResponse is returned by POST /generate/batch
type BatchResponse struct {
	Success bool                      `json:"success"`
	Results []domain.GenerationResult `json:"results"`
	domain.BatchSummary
}

// PromptsRequest is the body of PUT /prompts; omitted fields are kept
type PromptsRequest struct {
	Template *string `json:"template,omitempty"`
	System   *string `json:"system,omitempty"`
}

// PullRequest is the body of POST /models/pull
type PullRequest struct {
	Model string `json:"model" binding:"required"`
}

// HealthCheck returns the health status of the API and the backend
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	installed := []string{}
	for _, m := range h.service.ListModels(ctx) {
		if m.Installed {
			installed = append(installed, m.Name)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service":          "ia-cadastro",
		"version":          Version,
		"ollama_available": h.service.IsAvailable(ctx),
		"models_installed": len(installed),
		"models":           installed,
	})
}

// Generate generates a description for a single product
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := req.Product.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	useCache := h.service.Config().UseCache
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	result := h.service.GenerateOne(c.Request.Context(), req.Product, useCache)
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GenerateBatch generates descriptions for a list of products, preserving order
func (h *Handler) GenerateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "products list is required"})
		return
	}
	if req.MaxWorkers < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_workers must not be negative"})
		return
	}

	results := h.service.GenerateBatch(c.Request.Context(), req.Products, req.MaxWorkers, nil)
	c.JSON(http.StatusOK, BatchResponse{
		Success:      true,
		Results:      results,
		BatchSummary: domain.Summarize(results),
	})
}

// TestGeneration generates a description for a fixed sample product
func (h *Handler) TestGeneration(c *gin.Context) {
	result := h.service.TestGeneration(c.Request.Context())
	if !result.Success {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": result.ErrorMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"description":     result.Description,
		"generation_time": result.GenerationTime.Seconds(),
		"model_used":      result.ModelUsed,
	})
}

// Stats returns generator statistics
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats(c.Request.Context()))
}

// CacheStats returns result cache statistics
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.CacheStats())
}

// ClearCache empties the result cache
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.service.ClearCache(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PruneCache evicts expired cache entries
func (h *Handler) PruneCache(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.service.PruneCache()})
}

// ListModels returns the model catalog with installation status
func (h *Handler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.service.ListModels(c.Request.Context())})
}

// PullModel downloads a model and reports whether it succeeded
func (h *Handler) PullModel(c *gin.Context) {
	var req PullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}

	var last domain.PullProgress
	ok := h.service.PullModel(c.Request.Context(), req.Model, func(p domain.PullProgress) {
		last = p
	})

	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"success":     ok,
		"model":       req.Model,
		"last_status": last.Status,
	})
}

// GetConfig returns the active generation config
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Config())
}

// UpdateConfig applies a partial generation config update
func (h *Handler) UpdateConfig(c *gin.Context) {
	var patch usecase.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	cfg, err := h.service.UpdateConfig(patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// GetPrompts returns the active template and system prompt
func (h *Handler) GetPrompts(c *gin.Context) {
	c.JSON(http.StatusOK, h.templater.Prompts())
}

// UpdatePrompts replaces the template, the system prompt, or both
func (h *Handler) UpdatePrompts(c *gin.Context) {
	var req PromptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Template == nil && req.System == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template or system is required"})
		return
	}

	if err := h.templater.Update(req.Template, req.System); err != nil {
		if errors.Is(err, domain.ErrInvalidTemplate) {
			c.JSON(http.StatusBadRequest, templateErrorBody(err))
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.templater.Prompts())
}

// ValidatePrompt dry-runs a template without applying it
func (h *Handler) ValidatePrompt(c *gin.Context) {
	var req struct {
		Template *string `json:"template"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Template == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template is required"})
		return
	}

	if err := h.templater.Validate(*req.Template); err != nil {
		body := templateErrorBody(err)
		body["valid"] = false
		c.JSON(http.StatusOK, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "message": "template is valid"})
}

// ResetPrompts restores the built-in prompts
func (h *Handler) ResetPrompts(c *gin.Context) {
	if err := h.templater.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.templater.Prompts())
}

// PromptVariables lists the placeholders templates may use
func (h *Handler) PromptVariables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"variables": h.templater.Variables()})
}

func templateErrorBody(err error) gin.H {
	body := gin.H{"error": err.Error(), "message": err.Error()}
	var tplErr *usecase.TemplateError
	if errors.As(err, &tplErr) && tplErr.Placeholder != "" {
		body["placeholder"] = tplErr.Placeholder
	}
	return body
}
