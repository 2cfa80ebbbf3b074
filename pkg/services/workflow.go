package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/events"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/otelhelper"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	"github.com/dukex/flowcanvas/pkg/schema"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	schemas     *schema.Validator
	tracer      trace.Tracer
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	newID       func() string
}

// Option configures a Workflow service.
type Option func(*Workflow)

// WithTracer records a span per operation.
func WithTracer(tracer trace.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = tracer
	}
}

// WithEventPublisher publishes lifecycle events after successful writes.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(w *Workflow) {
		w.publisher = publisher
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, opts ...Option) *Workflow {
	w := &Workflow{
		persistence: persistence,
		validate:    newValidate(),
		schemas:     schema.MustNewValidator(),
		tracer:      otelhelper.NoopTracer(),
		logger:      slog.Default().With("module", "workflow_service"),
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// CreateWorkflowRequest is the input of Create.
type CreateWorkflowRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// SaveWorkflowRequest is the input of Save. Nil fields are left as stored;
// a non-nil empty Nodes or Edges clears that entity type.
type SaveWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitnil,min=1,max=100"`
	Description *string        `json:"description,omitempty" validate:"omitnil,max=500"`
	Nodes       *[]models.Node `json:"nodes,omitempty"       validate:"-"`
	Edges       *[]models.Edge `json:"edges,omitempty"       validate:"-"`
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create stores a new, empty workflow owned by ownerID.
func (w *Workflow) Create(ctx context.Context, ownerID string, req CreateWorkflowRequest) (_ *models.Workflow, err error) {
	ctx, span := w.startSpan(ctx, "workflow.create", ownerID, "")
	defer w.endSpan(span, &err)

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)

	fieldErrors, err := w.structErrors("", req)
	if err != nil {
		return nil, err
	}

	if len(fieldErrors) > 0 {
		return nil, NewValidationError("Create", fieldErrors...)
	}

	workflow := &models.Workflow{
		ID:          w.newID(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
		Nodes:       []models.Node{},
		Edges:       []models.Edge{},
	}

	if err := w.persistence.WorkflowRepository().Create(ctx, workflow); err != nil {
		return nil, NewStorageError("Create", err)
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, workflow.ID))

	w.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID, ownerID),
		Name:      workflow.Name,
	})

	return workflow, nil
}

// Get returns the stored form of a workflow: header plus node and edge rows.
func (w *Workflow) Get(ctx context.Context, ownerID, id string) (_ *models.WorkflowRecord, err error) {
	ctx, span := w.startSpan(ctx, "workflow.get", ownerID, id)
	defer w.endSpan(span, &err)

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	record, err := w.persistence.WorkflowRepository().GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, storageError("Get", err)
	}

	return record, nil
}

// List returns the owner's workflows, most recently updated first.
func (w *Workflow) List(ctx context.Context, ownerID string) (_ []*models.WorkflowSummary, err error) {
	ctx, span := w.startSpan(ctx, "workflow.list", ownerID, "")
	defer w.endSpan(span, &err)

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	summaries, err := w.persistence.WorkflowRepository().List(ctx, ownerID)
	if err != nil {
		return nil, NewStorageError("List", err)
	}

	return summaries, nil
}

// Save updates the header fields present in req and fully replaces each
// entity type present in req. It returns the updated workflow header.
func (w *Workflow) Save(ctx context.Context, ownerID, id string, req SaveWorkflowRequest) (_ *models.Workflow, err error) {
	ctx, span := w.startSpan(ctx, "workflow.save", ownerID, id)
	defer w.endSpan(span, &err)

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}

	fieldErrors, err := w.structErrors("", req)
	if err != nil {
		return nil, err
	}

	graphErrors, err := w.graphErrors(req.Nodes, req.Edges)
	if err != nil {
		return nil, err
	}

	fieldErrors = append(fieldErrors, graphErrors...)
	if len(fieldErrors) > 0 {
		return nil, NewValidationError("Save", fieldErrors...)
	}

	changeset, err := reconcile.NewChangeset(id, req.Nodes, req.Edges)
	if err != nil {
		if validationErr := fromChangeset("Save", err); validationErr != nil {
			return nil, validationErr
		}

		return nil, err
	}

	changeset.Name = req.Name
	changeset.Description = req.Description

	record, err := w.persistence.WorkflowRepository().Save(ctx, ownerID, changeset)
	if err != nil {
		if validationErr := fromChangeset("Save", err); validationErr != nil {
			return nil, validationErr
		}

		return nil, storageError("Save", err)
	}

	span.SetAttributes(
		attribute.Int(otelhelper.NodeCountKey, len(record.Nodes)),
		attribute.Int(otelhelper.EdgeCountKey, len(record.Edges)),
	)

	w.publish(ctx, id, events.WorkflowSaved{
		BaseEvent:     events.NewBaseEvent(events.WorkflowSavedEvent, id, ownerID),
		Name:          record.Name,
		NodeCount:     len(record.Nodes),
		EdgeCount:     len(record.Edges),
		NodesReplaced: changeset.ReplaceNodes,
		EdgesReplaced: changeset.ReplaceEdges,
	})

	return record.Header(), nil
}

// Delete removes a workflow with all of its nodes and edges.
func (w *Workflow) Delete(ctx context.Context, ownerID, id string) (err error) {
	ctx, span := w.startSpan(ctx, "workflow.delete", ownerID, id)
	defer w.endSpan(span, &err)

	if err := checkOwner(ownerID); err != nil {
		return err
	}

	if err := w.persistence.WorkflowRepository().Delete(ctx, ownerID, id); err != nil {
		return storageError("Delete", err)
	}

	w.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id, ownerID),
	})

	return nil
}

// Dashboard aggregates the owner's workflows.
func (w *Workflow) Dashboard(ctx context.Context, ownerID string) (_ *models.DashboardStats, err error) {
	ctx, span := w.startSpan(ctx, "workflow.dashboard", ownerID, "")
	defer w.endSpan(span, &err)

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	stats, err := w.persistence.WorkflowRepository().Stats(ctx, ownerID)
	if err != nil {
		return nil, NewStorageError("Dashboard", err)
	}

	return stats, nil
}

func checkOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrUnauthorized
	}

	return nil
}

// storageError keeps not-found errors recognizable and wraps everything else.
func storageError(op string, err error) error {
	if persistence.IsWorkflowNotFound(err) {
		return err
	}

	return NewStorageError(op, err)
}

func (w *Workflow) publish(ctx context.Context, key string, event eventbus.Event) {
	if w.publisher == nil {
		return
	}

	if err := w.publisher.Publish(ctx, key, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to publish workflow event",
			"workflow_id", key,
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

// nolint:spancheck // the span is ended by endSpan
func (w *Workflow) startSpan(ctx context.Context, name, ownerID, workflowID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(otelhelper.OwnerIDKey, ownerID)}
	if workflowID != "" {
		attrs = append(attrs, attribute.String(otelhelper.WorkflowIDKey, workflowID))
	}

	return otelhelper.StartSpan(ctx, w.tracer, name, attrs...)
}

func (w *Workflow) endSpan(span trace.Span, err *error) {
	switch {
	case *err == nil:
	case IsValidationError(*err):
		otelhelper.SetRejected(span, "validation")
	case IsWorkflowNotFound(*err):
		otelhelper.SetRejected(span, "not_found")
	case IsUnauthorized(*err):
		otelhelper.SetRejected(span, "unauthorized")
	default:
		otelhelper.SetError(span, *err)
	}

	span.End()
}
