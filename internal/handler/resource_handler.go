package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/practice-rules-api/internal/dto"
	"github.com/noah-isme/practice-rules-api/internal/middleware"
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/pkg/response"
)

type resourceService interface {
	ListPractitioners(ctx context.Context, practiceID, ruleSetID string) ([]models.Practitioner, error)
	ListLocations(ctx context.Context, practiceID, ruleSetID string) ([]models.Location, error)
	ListAppointmentTypes(ctx context.Context, practiceID, ruleSetID string) ([]models.AppointmentType, error)
	ListBaseSchedules(ctx context.Context, practiceID, ruleSetID string) ([]models.BaseSchedule, error)

	CreatePractitioner(ctx context.Context, practiceID string, req dto.PractitionerRequest) (*models.MutationResult, error)
	UpdatePractitioner(ctx context.Context, practiceID, practitionerID string, req dto.PractitionerRequest) (*models.MutationResult, error)
	DeletePractitioner(ctx context.Context, practiceID, practitionerID string, req dto.WorkingCopyRequest) (*models.MutationResult, error)

	CreateLocation(ctx context.Context, practiceID string, req dto.LocationRequest) (*models.MutationResult, error)
	UpdateLocation(ctx context.Context, practiceID, locationID string, req dto.LocationRequest) (*models.MutationResult, error)
	DeleteLocation(ctx context.Context, practiceID, locationID string, req dto.WorkingCopyRequest) (*models.MutationResult, error)

	CreateAppointmentType(ctx context.Context, practiceID string, req dto.AppointmentTypeRequest) (*models.MutationResult, error)
	UpdateAppointmentType(ctx context.Context, practiceID, typeID string, req dto.AppointmentTypeRequest) (*models.MutationResult, error)
	DeleteAppointmentType(ctx context.Context, practiceID, typeID string, req dto.WorkingCopyRequest) (*models.MutationResult, error)

	CreateBaseSchedule(ctx context.Context, practiceID string, req dto.BaseScheduleRequest) (*models.MutationResult, error)
	UpdateBaseSchedule(ctx context.Context, practiceID, scheduleID string, req dto.BaseScheduleRequest) (*models.MutationResult, error)
	DeleteBaseSchedule(ctx context.Context, practiceID, scheduleID string, req dto.WorkingCopyRequest) (*models.MutationResult, error)
}

// ResourceHandler exposes practitioners, locations, appointment types and
// base schedules.
type ResourceHandler struct {
	service resourceService
}

// NewResourceHandler builds a new handler.
func NewResourceHandler(service resourceService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

func listed[T any](c *gin.Context, items []T, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", len(items))
	response.OK(c, items, middleware.ExtractMeta(c))
}

func mutated(c *gin.Context, status int, result *models.MutationResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, result)
}

// ListPractitioners godoc
// @Summary Practitioners of a rule set
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/{ruleSetId}/practitioners [get]
func (h *ResourceHandler) ListPractitioners(c *gin.Context) {
	items, err := h.service.ListPractitioners(c.Request.Context(), practiceID(c), c.Param("ruleSetId"))
	listed(c, items, err)
}

// ListLocations godoc
// @Summary Locations of a rule set
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/{ruleSetId}/locations [get]
func (h *ResourceHandler) ListLocations(c *gin.Context) {
	items, err := h.service.ListLocations(c.Request.Context(), practiceID(c), c.Param("ruleSetId"))
	listed(c, items, err)
}

// ListAppointmentTypes godoc
// @Summary Appointment types of a rule set
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/{ruleSetId}/appointment-types [get]
func (h *ResourceHandler) ListAppointmentTypes(c *gin.Context) {
	items, err := h.service.ListAppointmentTypes(c.Request.Context(), practiceID(c), c.Param("ruleSetId"))
	listed(c, items, err)
}

// ListBaseSchedules godoc
// @Summary Base schedules of a rule set
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param ruleSetId path string true "Rule set ID"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/rule-sets/{ruleSetId}/base-schedules [get]
func (h *ResourceHandler) ListBaseSchedules(c *gin.Context) {
	items, err := h.service.ListBaseSchedules(c.Request.Context(), practiceID(c), c.Param("ruleSetId"))
	listed(c, items, err)
}

// CreatePractitioner godoc
// @Summary Create a practitioner
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.PractitionerRequest true "Practitioner"
// @Success 201 {object} response.Envelope
// @Router /practices/{practiceId}/practitioners [post]
func (h *ResourceHandler) CreatePractitioner(c *gin.Context) {
	var req dto.PractitionerRequest
	if err := bindJSON(c, &req, "practitioner"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.CreatePractitioner(c.Request.Context(), practiceID(c), req)
	mutated(c, http.StatusCreated, result, err)
}

// UpdatePractitioner godoc
// @Summary Update a practitioner
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Practitioner ID"
// @Param payload body dto.PractitionerRequest true "Practitioner"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/practitioners/{id} [put]
func (h *ResourceHandler) UpdatePractitioner(c *gin.Context) {
	var req dto.PractitionerRequest
	if err := bindJSON(c, &req, "practitioner"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.UpdatePractitioner(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}

// DeletePractitioner godoc
// @Summary Delete a practitioner and its schedules
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Practitioner ID"
// @Param sourceRuleSetId query string false "Fork source"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/practitioners/{id} [delete]
func (h *ResourceHandler) DeletePractitioner(c *gin.Context) {
	req, err := workingCopyQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.DeletePractitioner(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}

// CreateLocation godoc
// @Summary Create a location
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.LocationRequest true "Location"
// @Success 201 {object} response.Envelope
// @Router /practices/{practiceId}/locations [post]
func (h *ResourceHandler) CreateLocation(c *gin.Context) {
	var req dto.LocationRequest
	if err := bindJSON(c, &req, "location"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.CreateLocation(c.Request.Context(), practiceID(c), req)
	mutated(c, http.StatusCreated, result, err)
}

// UpdateLocation godoc
// @Summary Rename a location
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Location ID"
// @Param payload body dto.LocationRequest true "Location"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/locations/{id} [put]
func (h *ResourceHandler) UpdateLocation(c *gin.Context) {
	var req dto.LocationRequest
	if err := bindJSON(c, &req, "location"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.UpdateLocation(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}

// DeleteLocation godoc
// @Summary Delete a location and its schedules
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Location ID"
// @Param sourceRuleSetId query string false "Fork source"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/locations/{id} [delete]
func (h *ResourceHandler) DeleteLocation(c *gin.Context) {
	req, err := workingCopyQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.DeleteLocation(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}

// CreateAppointmentType godoc
// @Summary Create an appointment type
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.AppointmentTypeRequest true "Appointment type"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /practices/{practiceId}/appointment-types [post]
func (h *ResourceHandler) CreateAppointmentType(c *gin.Context) {
	var req dto.AppointmentTypeRequest
	if err := bindJSON(c, &req, "appointment type"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.CreateAppointmentType(c.Request.Context(), practiceID(c), req)
	mutated(c, http.StatusCreated, result, err)
}

// UpdateAppointmentType godoc
// @Summary Update an appointment type
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Appointment type ID"
// @Param payload body dto.AppointmentTypeRequest true "Appointment type"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/appointment-types/{id} [put]
func (h *ResourceHandler) UpdateAppointmentType(c *gin.Context) {
	var req dto.AppointmentTypeRequest
	if err := bindJSON(c, &req, "appointment type"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.UpdateAppointmentType(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}

// DeleteAppointmentType godoc
// @Summary Delete an appointment type
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Appointment type ID"
// @Param sourceRuleSetId query string false "Fork source"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/appointment-types/{id} [delete]
func (h *ResourceHandler) DeleteAppointmentType(c *gin.Context) {
	req, err := workingCopyQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.DeleteAppointmentType(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}

// CreateBaseSchedule godoc
// @Summary Create a weekly availability block
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param payload body dto.BaseScheduleRequest true "Base schedule"
// @Success 201 {object} response.Envelope
// @Router /practices/{practiceId}/base-schedules [post]
func (h *ResourceHandler) CreateBaseSchedule(c *gin.Context) {
	var req dto.BaseScheduleRequest
	if err := bindJSON(c, &req, "base schedule"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.CreateBaseSchedule(c.Request.Context(), practiceID(c), req)
	mutated(c, http.StatusCreated, result, err)
}

// UpdateBaseSchedule godoc
// @Summary Update a weekly availability block
// @Tags Resources
// @Accept json
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Base schedule ID"
// @Param payload body dto.BaseScheduleRequest true "Base schedule"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/base-schedules/{id} [put]
func (h *ResourceHandler) UpdateBaseSchedule(c *gin.Context) {
	var req dto.BaseScheduleRequest
	if err := bindJSON(c, &req, "base schedule"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.UpdateBaseSchedule(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}

// DeleteBaseSchedule godoc
// @Summary Delete a weekly availability block
// @Tags Resources
// @Produce json
// @Param practiceId path string true "Practice ID"
// @Param id path string true "Base schedule ID"
// @Param sourceRuleSetId query string false "Fork source"
// @Success 200 {object} response.Envelope
// @Router /practices/{practiceId}/base-schedules/{id} [delete]
func (h *ResourceHandler) DeleteBaseSchedule(c *gin.Context) {
	req, err := workingCopyQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.DeleteBaseSchedule(c.Request.Context(), practiceID(c), c.Param("id"), req)
	mutated(c, http.StatusOK, result, err)
}
