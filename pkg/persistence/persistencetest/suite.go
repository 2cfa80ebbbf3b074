// Package persistencetest holds the behavioural checks every
// persistence.WorkflowRepository implementation must pass.
package persistencetest

import (
	"testing"

	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	Owner = "user-1"
	Other = "user-2"
)

// OnboardingGraph is a small linear workflow with a branching condition.
func OnboardingGraph() graph.Graph {
	return graph.Graph{
		Nodes: []models.Node{
			{ID: "start-1", Type: models.NodeTypeStart, Position: models.Position{X: 250, Y: 50}, Data: models.Data{"label": "Start"}},
			{ID: "delay-1", Type: models.NodeTypeDelay, Position: models.Position{X: 250.5, Y: 150.25}, Data: models.Data{"label": "Wait a day", "duration": "24h"}},
			{ID: "cond-1", Type: models.NodeTypeCondition, Position: models.Position{X: 250, Y: 250}, Data: models.Data{"expression": "user.active", "tags": []any{"a", "b"}}},
			{ID: "end-1", Type: models.NodeTypeEnd, Position: models.Position{X: 250, Y: 350}, Data: models.Data{}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "start-1", Target: "delay-1", Data: models.Data{}},
			{ID: "e2", Source: "delay-1", Target: "cond-1", Data: models.Data{"animated": true}},
			{ID: "e3", Source: "cond-1", Target: "end-1", SourceHandle: models.HandleTrue, Data: models.Data{}},
		},
	}
}

// Run exercises repo against the full-replace contract. newRepo must return
// an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) persistence.WorkflowRepository) {
	t.Helper()

	t.Run("create starts empty", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Onboarding")

		record, err := repo.GetByID(t.Context(), Owner, id)
		require.NoError(t, err)

		assert.Equal(t, "Onboarding", record.Name)
		assert.Equal(t, Owner, record.OwnerID)
		assert.Empty(t, record.Nodes)
		assert.Empty(t, record.Edges)
		assert.False(t, record.CreatedAt.IsZero())
	})

	t.Run("foreign and missing workflows are not found", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Mine")

		_, err := repo.GetByID(t.Context(), Other, id)
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

		_, err = repo.GetByID(t.Context(), Owner, uuid.NewString())
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

		_, err = repo.Save(t.Context(), Other, changeset(t, id, &graph.Graph{Nodes: []models.Node{}}))
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

		assert.ErrorIs(t, repo.Delete(t.Context(), Other, id), persistence.ErrWorkflowNotFound)
	})

	t.Run("onboarding round trip", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Onboarding")
		g := OnboardingGraph()

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &g))
		require.NoError(t, err)

		assert.Equal(t, g, load(t, repo, id))
	})

	t.Run("saving twice is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Twice")
		g := OnboardingGraph()

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &g))
		require.NoError(t, err)

		_, err = repo.Save(t.Context(), Owner, changeset(t, id, &g))
		require.NoError(t, err)

		assert.Equal(t, g, load(t, repo, id))
	})

	t.Run("empty lists clear the graph", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Clear")
		g := OnboardingGraph()

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &g))
		require.NoError(t, err)

		_, err = repo.Save(t.Context(), Owner, changeset(t, id, &graph.Graph{Nodes: []models.Node{}, Edges: []models.Edge{}}))
		require.NoError(t, err)

		out := load(t, repo, id)
		assert.Empty(t, out.Nodes)
		assert.Empty(t, out.Edges)
	})

	t.Run("saving nodes only leaves edges untouched", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Nodes only")
		g := OnboardingGraph()

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &g))
		require.NoError(t, err)

		moved := g.Clone()
		moved.Nodes[0].Position = models.Position{X: 10, Y: 20}

		nodes := moved.Nodes
		cs, err := reconcile.NewChangeset(id, &nodes, nil)
		require.NoError(t, err)

		_, err = repo.Save(t.Context(), Owner, cs)
		require.NoError(t, err)

		out := load(t, repo, id)
		assert.Equal(t, moved.Nodes, out.Nodes)
		assert.Equal(t, g.Edges, out.Edges)
	})

	t.Run("second save omitting a node removes it", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Shrink")

		first := graph.Graph{
			Nodes: []models.Node{
				{ID: "a", Type: models.NodeTypeStart, Data: models.Data{}},
				{ID: "b", Type: models.NodeTypeLogger, Data: models.Data{"message": "hi"}},
				{ID: "c", Type: models.NodeTypeEnd, Data: models.Data{}},
			},
			Edges: []models.Edge{},
		}

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &first))
		require.NoError(t, err)

		second := graph.Graph{Nodes: []models.Node{first.Nodes[0], first.Nodes[2]}, Edges: []models.Edge{}}

		_, err = repo.Save(t.Context(), Owner, changeset(t, id, &second))
		require.NoError(t, err)

		out := load(t, repo, id)
		require.Len(t, out.Nodes, 2)
		assert.Equal(t, "a", out.Nodes[0].ID)
		assert.Equal(t, "c", out.Nodes[1].ID)
	})

	t.Run("edges only save is checked against stored nodes", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Edges only")
		g := OnboardingGraph()

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &g))
		require.NoError(t, err)

		edges := []models.Edge{{ID: "x", Source: "start-1", Target: "ghost", Data: models.Data{}}}
		cs, err := reconcile.NewChangeset(id, nil, &edges)
		require.NoError(t, err)

		_, err = repo.Save(t.Context(), Owner, cs)
		require.Error(t, err)
		assert.ErrorIs(t, err, reconcile.ErrDanglingEdge)

		assert.Equal(t, g, load(t, repo, id), "failed save leaves rows untouched")

		edges = []models.Edge{{ID: "x", Source: "start-1", Target: "end-1", Data: models.Data{}}}
		cs, err = reconcile.NewChangeset(id, nil, &edges)
		require.NoError(t, err)

		_, err = repo.Save(t.Context(), Owner, cs)
		require.NoError(t, err)

		assert.Equal(t, edges, load(t, repo, id).Edges)
	})

	t.Run("nodes only save keeps stored edges attached", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Orphans")

		first := graph.Graph{
			Nodes: []models.Node{
				{ID: "start-1", Type: models.NodeTypeStart, Data: models.Data{}},
				{ID: "end-1", Type: models.NodeTypeEnd, Data: models.Data{}},
			},
			Edges: []models.Edge{{ID: "e1", Source: "start-1", Target: "end-1", Data: models.Data{}}},
		}

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &first))
		require.NoError(t, err)

		nodes := first.Nodes[:1]
		cs, err := reconcile.NewChangeset(id, &nodes, nil)
		require.NoError(t, err)

		_, err = repo.Save(t.Context(), Owner, cs)
		require.Error(t, err)
		assert.ErrorIs(t, err, reconcile.ErrDanglingEdge)

		stored := load(t, repo, id)
		assert.Equal(t, first, stored, "failed save leaves rows untouched")

		_, err = repo.Save(t.Context(), Owner, changeset(t, id, &stored))
		require.NoError(t, err, "a loaded graph saves back unchanged")
	})

	t.Run("header fields update", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Before")

		name, description := "After", "renamed"
		cs := &reconcile.Changeset{WorkflowID: id, Name: &name, Description: &description}

		saved, err := repo.Save(t.Context(), Owner, cs)
		require.NoError(t, err)
		assert.Equal(t, "After", saved.Name)

		record, err := repo.GetByID(t.Context(), Owner, id)
		require.NoError(t, err)
		assert.Equal(t, "After", record.Name)
		assert.Equal(t, "renamed", record.Description)
		assert.False(t, record.UpdatedAt.Before(record.CreatedAt))
	})

	t.Run("delete cascades", func(t *testing.T) {
		repo := newRepo(t)
		id := create(t, repo, Owner, "Doomed")
		g := OnboardingGraph()

		_, err := repo.Save(t.Context(), Owner, changeset(t, id, &g))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(t.Context(), Owner, id))

		_, err = repo.GetByID(t.Context(), Owner, id)
		assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

		assert.ErrorIs(t, repo.Delete(t.Context(), Owner, id), persistence.ErrWorkflowNotFound)
	})

	t.Run("list and stats are owner scoped", func(t *testing.T) {
		repo := newRepo(t)
		first := create(t, repo, Owner, "First")
		second := create(t, repo, Owner, "Second")
		create(t, repo, Other, "Foreign")

		g := OnboardingGraph()

		_, err := repo.Save(t.Context(), Owner, changeset(t, first, &g))
		require.NoError(t, err)

		summaries, err := repo.List(t.Context(), Owner)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		assert.Equal(t, first, summaries[0].ID, "most recently updated first")
		assert.Equal(t, 4, summaries[0].NodeCount)
		assert.Equal(t, 3, summaries[0].EdgeCount)
		assert.Equal(t, second, summaries[1].ID)
		assert.Equal(t, 0, summaries[1].NodeCount)

		stats, err := repo.Stats(t.Context(), Owner)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalWorkflows)
		assert.Equal(t, 4, stats.TotalNodes)
		require.Len(t, stats.RecentWorkflows, 2)
		assert.Equal(t, second, stats.RecentWorkflows[0].ID, "newest created first")

		empty, err := repo.List(t.Context(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func create(t *testing.T, repo persistence.WorkflowRepository, owner, name string) string {
	t.Helper()

	workflow := &models.Workflow{ID: uuid.NewString(), Name: name, OwnerID: owner}
	require.NoError(t, repo.Create(t.Context(), workflow))

	return workflow.ID
}

func changeset(t *testing.T, id string, g *graph.Graph) *reconcile.Changeset {
	t.Helper()

	var nodes *[]models.Node
	if g.Nodes != nil {
		nodes = &g.Nodes
	}

	var edges *[]models.Edge
	if g.Edges != nil {
		edges = &g.Edges
	}

	cs, err := reconcile.NewChangeset(id, nodes, edges)
	require.NoError(t, err)

	return cs
}

func load(t *testing.T, repo persistence.WorkflowRepository, id string) graph.Graph {
	t.Helper()

	record, err := repo.GetByID(t.Context(), Owner, id)
	require.NoError(t, err)

	return reconcile.FromStorage(record)
}
