package client_test

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/dukex/flowcanvas/pkg/client"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence/file"
	"github.com/dukex/flowcanvas/pkg/services"
	"github.com/dukex/flowcanvas/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appTransport serves client requests from an in-process fiber app.
type appTransport struct {
	app *fiber.App
}

func (t appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req)
}

type fixedIDs struct {
	nodes int
	edges int
}

func (f *fixedIDs) NodeID(nodeType models.NodeType) string {
	f.nodes++

	return string(nodeType) + "-" + string(rune('0'+f.nodes))
}

func (f *fixedIDs) EdgeID() string {
	f.edges++

	return "edge-" + string(rune('0'+f.edges))
}

func newClient(t *testing.T, ownerID string) *client.Client {
	t.Helper()

	service := services.NewWorkflow(file.NewPersistence(t.TempDir()))

	app := fiber.New()
	web.NewAPIHandlers(service, slog.Default()).Register(app)

	return client.New("http://flowcanvas.test/", ownerID, client.WithHTTPClient(&http.Client{
		Transport: appTransport{app: app},
		Timeout:   5 * time.Second,
	}))
}

func TestEditor_SaveAndReopen(t *testing.T) {
	c := newClient(t, "user-1")
	ctx := t.Context()

	created, err := c.Create(ctx, "Onboarding", "")
	require.NoError(t, err)

	editor, err := c.Open(ctx, created.ID, &fixedIDs{})
	require.NoError(t, err)
	assert.Empty(t, editor.Snapshot().Nodes)

	editor.Apply(
		graph.NewPaletteNode(models.NodeTypeStart, models.Position{X: 0, Y: 0}),
		graph.NewPaletteNode(models.NodeTypeEnd, models.Position{X: 0, Y: 200}),
		graph.Connect{Source: "start-1", Target: "end-2"},
		graph.MoveNode{ID: "end-2", Position: models.Position{X: 40, Y: 240}},
	)

	_, err = editor.Save(ctx)
	require.NoError(t, err)

	reopened, err := c.Open(ctx, created.ID, &fixedIDs{})
	require.NoError(t, err)

	got := reopened.Snapshot()
	want := editor.Snapshot()

	require.Len(t, got.Nodes, 2)
	assert.Equal(t, want.Nodes, got.Nodes)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, want.Edges, got.Edges)
	assert.Equal(t, "start-1", got.Edges[0].Source)
	assert.Equal(t, "end-2", got.Edges[0].Target)
	assert.Equal(t, "start node", got.Nodes[0].Data.Label())
}

func TestEditor_FailedSaveKeepsSession(t *testing.T) {
	c := newClient(t, "user-1")
	ctx := t.Context()

	created, err := c.Create(ctx, "Broken", "")
	require.NoError(t, err)

	editor, err := c.Open(ctx, created.ID, &fixedIDs{})
	require.NoError(t, err)

	editor.Apply(
		graph.NewPaletteNode(models.NodeTypeStart, models.Position{}),
		graph.Connect{Source: "start-1", Target: "nowhere"},
	)

	before := editor.Snapshot()

	_, err = editor.Save(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrInvalid)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, apiErr.Errors, 1)
	assert.Equal(t, "edges[0].target", apiErr.Errors[0].Field)

	assert.Equal(t, before, editor.Snapshot())

	stored, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Nodes)

	editor.Apply(graph.RemoveEdge{ID: "edge-1"})

	_, err = editor.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, editor.Reload(ctx))
	assert.Len(t, editor.Snapshot().Nodes, 1)
	assert.Empty(t, editor.Snapshot().Edges)
}

func TestClient_Errors(t *testing.T) {
	c := newClient(t, "user-1")
	ctx := t.Context()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, client.ErrNotFound)

	_, err = c.Create(ctx, "", "")
	assert.ErrorIs(t, err, client.ErrInvalid)

	anonymous := newClient(t, "")

	_, err = anonymous.List(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestClient_ListDashboardDelete(t *testing.T) {
	c := newClient(t, "user-1")
	ctx := t.Context()

	created, err := c.Create(ctx, "Listed", "shown on the dashboard")
	require.NoError(t, err)

	summaries, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, created.ID, summaries[0].ID)

	stats, err := c.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalWorkflows)

	require.NoError(t, c.Delete(ctx, created.ID))

	_, err = c.Get(ctx, created.ID)
	assert.ErrorIs(t, err, client.ErrNotFound)
}
