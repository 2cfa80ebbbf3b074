package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/reconcile"
)

// WorkflowRepository handles workflow-related file operations. Writes go
// through a temporary file and a rename so readers never see a partially
// replaced workflow.
type WorkflowRepository struct {
	root string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{
		root: root,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores an empty workflow.
func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	if !validID(workflow.ID) {
		return persistence.NewWorkflowError("Create", workflow.ID, fmt.Errorf("invalid workflow id %q", workflow.ID))
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	if _, err := os.Stat(wr.path(workflow.ID)); err == nil {
		return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	now := wr.now()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	record := &models.WorkflowRecord{
		ID:          workflow.ID,
		Name:        workflow.Name,
		Description: workflow.Description,
		OwnerID:     workflow.OwnerID,
		Nodes:       []models.NodeRow{},
		Edges:       []models.EdgeRow{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := wr.write(record); err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return nil
}

// GetByID retrieves a workflow owned by ownerID.
func (wr *WorkflowRepository) GetByID(_ context.Context, ownerID, id string) (*models.WorkflowRecord, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	record, err := wr.read(ownerID, id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return record, nil
}

// List returns the owner's workflows, most recently updated first.
func (wr *WorkflowRepository) List(_ context.Context, ownerID string) ([]*models.WorkflowSummary, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	records, err := wr.readAll(ownerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.WorkflowSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, persistence.Summarize(record))
	}

	persistence.SortByUpdated(summaries)

	return summaries, nil
}

// Save applies changeset to the stored workflow and rewrites its file.
func (wr *WorkflowRepository) Save(_ context.Context, ownerID string, changeset *reconcile.Changeset) (*models.WorkflowRecord, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	record, err := wr.read(ownerID, changeset.WorkflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("Save", changeset.WorkflowID, err)
	}

	if err := changeset.Verify(record); err != nil {
		return nil, persistence.NewWorkflowError("Save", changeset.WorkflowID, err)
	}

	changeset.ApplyTo(record)
	record.UpdatedAt = wr.now()

	if err := wr.write(record); err != nil {
		return nil, persistence.NewWorkflowError("Save", changeset.WorkflowID, err)
	}

	return record, nil
}

// Delete removes a workflow and, with it, its nodes and edges.
func (wr *WorkflowRepository) Delete(_ context.Context, ownerID, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if _, err := wr.read(ownerID, id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if err := os.Remove(wr.path(id)); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

// Stats aggregates the owner's workflows for the dashboard.
func (wr *WorkflowRepository) Stats(ctx context.Context, ownerID string) (*models.DashboardStats, error) {
	summaries, err := wr.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return persistence.BuildStats(summaries), nil
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.dir(), id+".json")
}

func (wr *WorkflowRepository) read(ownerID, id string) (*models.WorkflowRecord, error) {
	if !validID(id) {
		return nil, persistence.ErrWorkflowNotFound
	}

	record, err := wr.load(wr.path(id))
	if err != nil {
		return nil, err
	}

	if record.OwnerID != ownerID {
		return nil, persistence.ErrWorkflowNotFound
	}

	return record, nil
}

func (wr *WorkflowRepository) readAll(ownerID string) ([]*models.WorkflowRecord, error) {
	files, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	records := make([]*models.WorkflowRecord, 0, len(files))

	for _, file := range files {
		record, err := wr.load(filepath.Join(wr.dir(), file))
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", strings.TrimSuffix(file, ".json"), err)
		}

		if record.OwnerID == ownerID {
			records = append(records, record)
		}
	}

	return records, nil
}

func (wr *WorkflowRepository) load(path string) (*models.WorkflowRecord, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}

	var record models.WorkflowRecord

	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	if record.Nodes == nil {
		record.Nodes = []models.NodeRow{}
	}

	if record.Edges == nil {
		record.Edges = []models.EdgeRow{}
	}

	return &record, nil
}

func (wr *WorkflowRepository) write(record *models.WorkflowRecord) error {
	if err := os.MkdirAll(wr.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	tmp, err := os.CreateTemp(wr.dir(), "."+record.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write workflow: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write workflow: %w", err)
	}

	if err := os.Rename(tmp.Name(), wr.path(record.ID)); err != nil {
		return fmt.Errorf("failed to replace workflow file: %w", err)
	}

	return nil
}

func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
