package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/middleware"
	"github.com/noah-isme/practice-rules-api/internal/service"
	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
	"github.com/noah-isme/practice-rules-api/pkg/response"
)

type evaluationService interface {
	EvaluateSlot(ctx context.Context, practiceID string, req dto.EvaluateSlotRequest) (*dto.EvaluateSlotResponse, error)
	SimulateSlots(ctx context.Context, practiceID string, req dto.SimulateSlotsRequest) (*dto.SimulateSlotsResponse, error)
}

type ruleExporter interface {
	ExportRules(ctx context.Context, practiceID, ruleSetID, format string) (*service.ExportResult, error)
}

// EvaluationHandler answers booking questions against a rule set.
type EvaluationHandler struct {
	service  evaluationService
	exporter ruleExporter
}

// NewEvaluationHandler builds a new handler.
func NewEvaluationHandler(service evaluationService, exporter ruleExporter) *EvaluationHandler {
	return &EvaluationHandler{service: service, exporter: exporter}
}

// Evaluate godoc
// @Summary Evaluate one slot
// @Description Runs the rule set (active unless ruleSetId is given) against a slot and returns the first matching decision.
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.EvaluateSlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/evaluations [post]
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateSlotRequest
	if err := bindJSON(c, &req, "evaluation"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.EvaluateSlot(c.Request.Context(), practiceID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, middleware.ExtractMeta(c))
}

// Simulate godoc
// @Summary Evaluate many slots
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.SimulateSlotsRequest true "Slots"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/evaluations/simulate [post]
func (h *EvaluationHandler) Simulate(c *gin.Context) {
	var req dto.SimulateSlotsRequest
	if err := bindJSON(c, &req, "simulation"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.SimulateSlots(c.Request.Context(), practiceID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "slots", len(result.Results))
	response.OK(c, result, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the rules of a rule set
// @Tags Rules
// @Produce text/csv
// @Produce application/pdf
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /practices/{practiceId}/rule-sets/{ruleSetId}/rules/export [get]
func (h *EvaluationHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export is not configured"))
		return
	}
	result, err := h.exporter.ExportRules(c.Request.Context(), practiceID(c), c.Param("ruleSetId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
