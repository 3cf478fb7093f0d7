package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/middleware"
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/response"
)

type ruleService interface {
	ListRules(ctx context.Context, practiceID, ruleSetID string) ([]models.Rule, error)
	GetRule(ctx context.Context, practiceID, ruleID string) (*models.Rule, error)
	CreateRule(ctx context.Context, practiceID string, req dto.CreateRuleRequest) (*models.MutationResult, error)
	UpdateRule(ctx context.Context, practiceID, ruleID string, req dto.UpdateRuleRequest) (*models.MutationResult, error)
	DeleteRule(ctx context.Context, practiceID, ruleID string, req dto.WorkingCopyRequest) (*models.MutationResult, error)
	ReorderRules(ctx context.Context, practiceID string, req dto.ReorderRulesRequest) (*dto.ReorderRulesResult, error)
	ValidateCondition(req dto.ValidateConditionRequest) dto.ValidateConditionResponse
}

// RuleHandler exposes rule CRUD. Every mutation answers with the id of the
// touched rule and the working copy it now lives in.
type RuleHandler struct {
	service ruleService
}

// NewRuleHandler builds a new handler.
func NewRuleHandler(service ruleService) *RuleHandler {
	return &RuleHandler{service: service}
}

// List godoc
// @Summary Rules of a rule set, by priority
// @Tags Rules
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/{ruleSetId}/rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context(), practiceID(c), c.Param("ruleSetId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", len(rules))
	response.OK(c, rules, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a rule
// @Tags Rules
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rules/{id} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.service.GetRule(c.Request.Context(), practiceID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rule, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create a rule in the working copy
// @Tags Rules
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.CreateRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /practices/{practiceId}/rules [post]
func (h *RuleHandler) Create(c *gin.Context) {
	var req dto.CreateRuleRequest
	if err := bindJSON(c, &req, "rule"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.CreateRule(c.Request.Context(), practiceID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update a rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Rule ID"
// @Param payload body dto.UpdateRuleRequest true "Rule patch"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rules/{id} [put]
func (h *RuleHandler) Update(c *gin.Context) {
	var req dto.UpdateRuleRequest
	if err := bindJSON(c, &req, "rule"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.UpdateRule(c.Request.Context(), practiceID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Delete godoc
// @Summary Delete a rule
// @Tags Rules
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Rule ID"
// @Param sourceRuleSetId query string false "Fork source"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rules/{id} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	req, err := workingCopyQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.DeleteRule(c.Request.Context(), practiceID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Reorder godoc
// @Summary Set rule priorities
// @Tags Rules
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.ReorderRulesRequest true "Priorities"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rules/reorder [post]
func (h *RuleHandler) Reorder(c *gin.Context) {
	var req dto.ReorderRulesRequest
	if err := bindJSON(c, &req, "reorder"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ReorderRules(c.Request.Context(), practiceID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Validate godoc
// @Summary Check a condition tree without saving it
// @Tags Rules
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.ValidateConditionRequest true "Condition"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rules/validate [post]
func (h *RuleHandler) Validate(c *gin.Context) {
	var req dto.ValidateConditionRequest
	if err := bindJSON(c, &req, "condition"); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.service.ValidateCondition(req))
}
