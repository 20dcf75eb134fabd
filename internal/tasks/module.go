// Package tasks provides the follow-up task bounded context module:
// scheduling, completion with auto-chaining, and rescheduling.
package tasks

import (
	"time"

	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	leadsrepo "pipeline_backend/internal/leads/repository"
	"pipeline_backend/internal/tasks/handler"
	"pipeline_backend/internal/tasks/repository"
	"pipeline_backend/internal/tasks/service"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"
)

// Module is the tasks bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
	repo    *repository.Repository
}

// NewModule wires the task scheduler. The task repository is shared with
// the leads module, which uses it to insert tasks inside transition
// transactions. The workflow applier comes from the leads module so
// decision-point completions route through the Transition Applier.
func NewModule(repo *repository.Repository, leads *leadsrepo.Repository, workflow service.OutcomeApplier, eventBus events.Bus, val *validator.Validator, location *time.Location, log *logger.Logger) *Module {
	svc := service.New(repo, leads, workflow, eventBus, location, log)

	return &Module{
		handler: handler.New(svc, val),
		svc:     svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "tasks" }

// RegisterRoutes mounts the task routes under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/tasks"))
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
}

// Repository exposes the tasks repository for transition wiring and the
// scheduler's due sweep.
func (m *Module) Repository() *repository.Repository { return m.repo }

// Service exposes the task service for the scheduler binary.
func (m *Module) Service() *service.Service { return m.svc }
