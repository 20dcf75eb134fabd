// Package leads provides the lead pipeline bounded context module: intake,
// outcome gating, SLA evaluation, and the transition workflow.
package leads

import (
	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	"pipeline_backend/internal/leads/handler"
	"pipeline_backend/internal/leads/repository"
	"pipeline_backend/internal/leads/service"
	taskrepo "pipeline_backend/internal/tasks/repository"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	workflow *service.WorkflowService
	intake   *service.IntakeService
	repo     *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
// The tasks repository is shared so follow-up tasks commit inside the same
// transaction as the stage change.
func NewModule(pool *pgxpool.Pool, tasks *taskrepo.Repository, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)

	workflowSvc := service.NewWorkflow(repo, tasks, eventBus, cfg, log)
	intakeSvc := service.NewIntake(repo, eventBus)

	return &Module{
		handler:  handler.New(intakeSvc, workflowSvc, val),
		workflow: workflowSvc,
		intake:   intakeSvc,
		repo:     repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the leads routes under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

// Workflow exposes the workflow service for other modules (the task module
// routes decision-point completions through it).
func (m *Module) Workflow() *service.WorkflowService { return m.workflow }

// Repository exposes the leads repository for the scheduler's SLA sweeper.
func (m *Module) Repository() *repository.Repository { return m.repo }
