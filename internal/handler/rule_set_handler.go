package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/middleware"
	"github.com/noah-isme/practice-rules-api/internal/models"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
	"github.com/noah-isme/practice-rules-api/pkg/response"
)

type ruleSetService interface {
	ListRuleSets(ctx context.Context, practiceID string) ([]models.RuleSet, error)
	VersionGraph(ctx context.Context, practiceID string) (*dto.VersionGraphResponse, error)
	GetActiveRuleSet(ctx context.Context, practiceID string) (*models.RuleSet, error)
	GetUnsavedRuleSet(ctx context.Context, practiceID string) (*models.RuleSet, error)
	GetOrCreateUnsavedRuleSet(ctx context.Context, practiceID string, req dto.WorkingCopyRequest) (*models.RuleSet, error)
	SaveUnsavedRuleSet(ctx context.Context, practiceID string, req dto.SaveRuleSetRequest) (*models.RuleSet, error)
	DiscardUnsavedRuleSet(ctx context.Context, practiceID string) (*dto.DiscardResult, error)
	ActivateRuleSet(ctx context.Context, practiceID, ruleSetID string) (*models.RuleSet, error)
	GetRuleSet(ctx context.Context, practiceID, ruleSetID string) (*models.RuleSet, error)
	ListAuditLogs(ctx context.Context, practiceID string, limit int) ([]models.AuditLog, error)
}

// RuleSetHandler exposes rule set lifecycle endpoints.
type RuleSetHandler struct {
	service ruleSetService
}

// NewRuleSetHandler builds a new handler.
func NewRuleSetHandler(service ruleSetService) *RuleSetHandler {
	return &RuleSetHandler{service: service}
}

// History godoc
// @Summary List rule set versions
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets [get]
func (h *RuleSetHandler) History(c *gin.Context) {
	items, err := h.service.ListRuleSets(c.Request.Context(), practiceID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", len(items))
	response.OK(c, items, middleware.ExtractMeta(c))
}

// Graph godoc
// @Summary Version graph layout
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/graph [get]
func (h *RuleSetHandler) Graph(c *gin.Context) {
	graph, err := h.service.VersionGraph(c.Request.Context(), practiceID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, graph, middleware.ExtractMeta(c))
}

// Active godoc
// @Summary Active rule set
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/active [get]
func (h *RuleSetHandler) Active(c *gin.Context) {
	ruleSet, err := h.service.GetActiveRuleSet(c.Request.Context(), practiceID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ruleSet, middleware.ExtractMeta(c))
}

// Unsaved godoc
// @Summary Current working copy
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/unsaved [get]
func (h *RuleSetHandler) Unsaved(c *gin.Context) {
	ruleSet, err := h.service.GetUnsavedRuleSet(c.Request.Context(), practiceID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ruleSet, middleware.ExtractMeta(c))
}

// CreateUnsaved godoc
// @Summary Get or fork the working copy
// @Tags RuleSets
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.WorkingCopyRequest false "Fork source"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/unsaved [post]
func (h *RuleSetHandler) CreateUnsaved(c *gin.Context) {
	var req dto.WorkingCopyRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req, "working copy"); err != nil {
			response.Error(c, err)
			return
		}
	}
	ruleSet, err := h.service.GetOrCreateUnsavedRuleSet(c.Request.Context(), practiceID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ruleSet, middleware.ExtractMeta(c))
}

// Save godoc
// @Summary Save the working copy as a new version
// @Tags RuleSets
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.SaveRuleSetRequest true "Save payload"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/unsaved/save [post]
func (h *RuleSetHandler) Save(c *gin.Context) {
	var req dto.SaveRuleSetRequest
	if err := bindJSON(c, &req, "save"); err != nil {
		response.Error(c, err)
		return
	}
	ruleSet, err := h.service.SaveUnsavedRuleSet(c.Request.Context(), practiceID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ruleSet, middleware.ExtractMeta(c))
}

// Discard godoc
// @Summary Discard the working copy
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/unsaved [delete]
func (h *RuleSetHandler) Discard(c *gin.Context) {
	result, err := h.service.DiscardUnsavedRuleSet(c.Request.Context(), practiceID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, middleware.ExtractMeta(c))
}

// Activate godoc
// @Summary Activate a saved rule set
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/{ruleSetId}/activate [post]
func (h *RuleSetHandler) Activate(c *gin.Context) {
	ruleSet, err := h.service.ActivateRuleSet(c.Request.Context(), practiceID(c), c.Param("ruleSetId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ruleSet, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a rule set
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/{ruleSetId} [get]
func (h *RuleSetHandler) Get(c *gin.Context) {
	ruleSet, err := h.service.GetRuleSet(c.Request.Context(), practiceID(c), c.Param("ruleSetId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ruleSet, middleware.ExtractMeta(c))
}

// AuditLogs godoc
// @Summary Recent rule set changes
// @Tags RuleSets
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param limit query int false "Max entries (default 100, max 500)"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/audit-logs [get]
func (h *RuleSetHandler) AuditLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	logs, err := h.service.ListAuditLogs(c.Request.Context(), practiceID(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", len(logs))
	response.OK(c, logs, middleware.ExtractMeta(c))
}
