package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/flowcanvas/pkg/models"
)

var (
	// ErrDuplicateID marks two submitted nodes, or two submitted edges, sharing an id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrDanglingEdge marks an edge whose source or target is not a node of the workflow.
	ErrDanglingEdge = errors.New("edge references unknown node")

	// ErrInvalidData marks node or edge data holding a non-JSON value.
	ErrInvalidData = errors.New("invalid data")
)

// Issue is one problem found in a submitted graph, tied to the field it
// concerns, e.g. "edges[2].target".
type Issue struct {
	Field string
	Err   error
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %v", i.Field, i.Err)
}

// ChangesetError reports every issue found while preparing or verifying a
// changeset.
type ChangesetError struct {
	Issues []Issue
}

func (e *ChangesetError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Error())
	}

	return "invalid graph: " + strings.Join(parts, "; ")
}

// Is reports whether any issue matches target.
func (e *ChangesetError) Is(target error) bool {
	for _, issue := range e.Issues {
		if errors.Is(issue.Err, target) {
			return true
		}
	}

	return false
}

// Changeset is a full-replace request for one workflow. Only the entity types
// flagged for replacement are touched: every stored row of that type is
// deleted and the submitted rows are inserted in order. Name and Description
// update the header when set.
type Changeset struct {
	WorkflowID   string
	Name         *string
	Description  *string
	ReplaceNodes bool
	Nodes        []models.NodeRow
	ReplaceEdges bool
	Edges        []models.EdgeRow
}

// NewChangeset converts submitted nodes and edges to rows. A nil pointer
// leaves that entity type out of the changeset; a pointer to an empty slice
// clears it. Duplicate ids are rejected, and when both lists are supplied
// every edge must reference a submitted node.
func NewChangeset(workflowID string, nodes *[]models.Node, edges *[]models.Edge) (*Changeset, error) {
	changeset := &Changeset{WorkflowID: workflowID}

	var issues []Issue

	if nodes != nil {
		changeset.ReplaceNodes = true
		changeset.Nodes = NodesToStorage(workflowID, *nodes)
		issues = append(issues, checkNodes(changeset.Nodes)...)
	}

	if edges != nil {
		changeset.ReplaceEdges = true
		changeset.Edges = EdgesToStorage(workflowID, *edges)
		issues = append(issues, checkEdges(changeset.Edges)...)
	}

	if nodes != nil && edges != nil {
		issues = append(issues, referenceIssues(nodeIDs(changeset.Nodes), changeset.Edges)...)
	}

	if len(issues) > 0 {
		return nil, &ChangesetError{Issues: issues}
	}

	return changeset, nil
}

// Empty reports whether the changeset touches no rows.
func (c *Changeset) Empty() bool {
	return c.Name == nil && c.Description == nil && !c.ReplaceNodes && !c.ReplaceEdges
}

// NeedsStoredRows reports whether only one of nodes and edges is replaced,
// so the store must pass the rows it holds to Verify.
func (c *Changeset) NeedsStoredRows() bool {
	return c.ReplaceEdges != c.ReplaceNodes
}

// Verify checks the half of the graph being replaced against the stored half
// it keeps. Submitted edges must reference stored nodes, and stored edges must
// keep referencing submitted nodes. It is a no-op when both or neither are
// replaced.
func (c *Changeset) Verify(stored *models.WorkflowRecord) error {
	var issues []Issue

	switch {
	case !c.NeedsStoredRows():
		return nil
	case c.ReplaceEdges:
		issues = referenceIssues(nodeIDs(stored.Nodes), c.Edges)
	default:
		issues = orphanIssues(nodeIDs(c.Nodes), stored.Edges)
	}

	if len(issues) > 0 {
		return &ChangesetError{Issues: issues}
	}

	return nil
}

// ApplyTo updates the header and replaces the flagged row sets of record in
// place.
func (c *Changeset) ApplyTo(record *models.WorkflowRecord) {
	if c.Name != nil {
		record.Name = *c.Name
	}

	if c.Description != nil {
		record.Description = *c.Description
	}

	if c.ReplaceNodes {
		record.Nodes = append([]models.NodeRow{}, c.Nodes...)
	}

	if c.ReplaceEdges {
		record.Edges = append([]models.EdgeRow{}, c.Edges...)
	}
}

func checkNodes(rows []models.NodeRow) []Issue {
	var issues []Issue

	seen := make(map[string]int, len(rows))

	for i, row := range rows {
		if first, dup := seen[row.ID]; dup {
			issues = append(issues, Issue{
				Field: fmt.Sprintf("nodes[%d].id", i),
				Err:   fmt.Errorf("%w %q, first used by nodes[%d]", ErrDuplicateID, row.ID, first),
			})
		} else {
			seen[row.ID] = i
		}

		if err := row.Data.Validate(); err != nil {
			issues = append(issues, Issue{
				Field: fmt.Sprintf("nodes[%d].data", i),
				Err:   fmt.Errorf("%w: %w", ErrInvalidData, err),
			})
		}
	}

	return issues
}

func checkEdges(rows []models.EdgeRow) []Issue {
	var issues []Issue

	seen := make(map[string]int, len(rows))

	for i, row := range rows {
		if first, dup := seen[row.ID]; dup {
			issues = append(issues, Issue{
				Field: fmt.Sprintf("edges[%d].id", i),
				Err:   fmt.Errorf("%w %q, first used by edges[%d]", ErrDuplicateID, row.ID, first),
			})
		} else {
			seen[row.ID] = i
		}

		if err := row.Data.Validate(); err != nil {
			issues = append(issues, Issue{
				Field: fmt.Sprintf("edges[%d].data", i),
				Err:   fmt.Errorf("%w: %w", ErrInvalidData, err),
			})
		}
	}

	return issues
}

func referenceIssues(ids map[string]struct{}, edges []models.EdgeRow) []Issue {
	var issues []Issue

	for i, edge := range edges {
		if _, ok := ids[edge.SourceNodeID]; !ok {
			issues = append(issues, Issue{
				Field: fmt.Sprintf("edges[%d].source", i),
				Err:   fmt.Errorf("%w %q", ErrDanglingEdge, edge.Source),
			})
		}

		if _, ok := ids[edge.TargetNodeID]; !ok {
			issues = append(issues, Issue{
				Field: fmt.Sprintf("edges[%d].target", i),
				Err:   fmt.Errorf("%w %q", ErrDanglingEdge, edge.Target),
			})
		}
	}

	return issues
}

// orphanIssues reports stored edges left pointing at nodes a save removes.
func orphanIssues(ids map[string]struct{}, stored []models.EdgeRow) []Issue {
	var issues []Issue

	for _, edge := range stored {
		for _, endpoint := range []string{edge.SourceNodeID, edge.TargetNodeID} {
			if _, ok := ids[endpoint]; !ok {
				issues = append(issues, Issue{
					Field: "nodes",
					Err:   fmt.Errorf("%w %q, still used by stored edge %q", ErrDanglingEdge, endpoint, edge.ID),
				})
			}
		}
	}

	return issues
}

func nodeIDs(rows []models.NodeRow) map[string]struct{} {
	ids := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		ids[row.ID] = struct{}{}
	}

	return ids
}
