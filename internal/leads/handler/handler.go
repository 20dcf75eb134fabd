package handler

import (
	"net/http"

	"pipeline_backend/internal/leads/repository"
	"pipeline_backend/internal/leads/service"
	"pipeline_backend/internal/leads/transport"
	"pipeline_backend/platform/httpkit"
	"pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	intake   *service.IntakeService
	workflow *service.WorkflowService
	val      *validator.Validator
}

func New(intake *service.IntakeService, workflow *service.WorkflowService, val *validator.Validator) *Handler {
	return &Handler{intake: intake, workflow: workflow, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/outcomes", h.SelectableOutcomes)
	rg.POST("/:id/outcomes", h.ApplyOutcome)
	rg.GET("/:id/sla", h.SLAStatus)
	rg.GET("/:id/timeline", h.Timeline)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.intake.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	params := repository.ListParams{}
	if stage := c.Query("stage"); stage != "" {
		params.Stage = &stage
	}
	if owner := c.Query("ownerAgentId"); owner != "" {
		id, err := uuid.Parse(owner)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		params.OwnerAgentID = &id
	}

	leads, err := h.intake.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leads)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	lead, err := h.intake.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// SelectableOutcomes returns the gated outcome list for the lead. Safe to
// poll on every render.
func (h *Handler) SelectableOutcomes(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	resp, err := h.workflow.SelectableOutcomes(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// ApplyOutcome records an outcome for the lead as the authenticated agent.
func (h *Handler) ApplyOutcome(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ApplyOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.workflow.ApplyOutcome(c.Request.Context(), id, identity.AgentID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) SLAStatus(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	resp, err := h.workflow.SLAStatus(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Timeline(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	resp, err := h.workflow.Timeline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) leadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
