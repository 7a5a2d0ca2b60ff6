package route

import (
	"strings"
	"testing"

	"github.com/msalah0e/funnel/internal/geom"
	"github.com/msalah0e/funnel/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPoint(t *testing.T, want, got geom.Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
}

func TestPorts(t *testing.T) {
	r := Default()
	assertPoint(t, geom.Pt(300, 190), r.OutPort(geom.Pt(100, 150)))
	assertPoint(t, geom.Pt(400, 190), r.InPort(geom.Pt(400, 150)))
}

func TestStraight(t *testing.T) {
	r := Default()
	rt := r.Compute(geom.Pt(100, 150), geom.Pt(400, 150), graph.StyleStraight, 0.5, nil)

	assert.Equal(t, graph.StyleStraight, rt.Style)
	assert.Equal(t, "M 300 190 L 400 190", rt.D)
	assertPoint(t, geom.Pt(350, 190), rt.Mid)
	assert.Equal(t, rt.D, rt.Hit.D)
	assert.Equal(t, r.HitWidth, rt.Hit.Width)
}

func TestCurvedBulgesAlongDominantAxis(t *testing.T) {
	r := Default()

	t.Run("horizontal", func(t *testing.T) {
		rt := r.Compute(geom.Pt(100, 150), geom.Pt(400, 150), graph.StyleCurved, 0.5, nil)
		require.Len(t, rt.Points, 4)
		assertPoint(t, geom.Pt(350, 190), rt.Points[1])
		assertPoint(t, geom.Pt(350, 190), rt.Points[2])
		assert.Equal(t, "M 300 190 C 350 190, 350 190, 400 190", rt.D)
		assertPoint(t, geom.Pt(350, 190), rt.Mid)
	})

	t.Run("offset capped", func(t *testing.T) {
		rt := r.Compute(geom.Pt(0, 0), geom.Pt(1000, 0), graph.StyleCurved, 0.5, nil)
		assertPoint(t, geom.Pt(400, 40), rt.Points[1])
		assertPoint(t, geom.Pt(800, 40), rt.Points[2])
	})

	t.Run("vertical", func(t *testing.T) {
		rt := r.Compute(geom.Pt(0, 0), geom.Pt(0, 500), graph.StyleCurved, 0.5, nil)
		s, c1, c2, e := rt.Points[0], rt.Points[1], rt.Points[2], rt.Points[3]
		assert.Equal(t, s.X, c1.X, "source control point moves along y only")
		assert.Equal(t, e.X, c2.X, "target control point moves along y only")
		assert.Greater(t, c1.Y, s.Y)
		assert.Less(t, c2.Y, e.Y)
		assert.InDelta(t, 200.0, c1.Y-s.Y, 1e-9, "offset capped at MaxBulge")
	})

	t.Run("backward", func(t *testing.T) {
		rt := r.Compute(geom.Pt(600, 0), geom.Pt(0, 0), graph.StyleCurved, 0.5, nil)
		assertPoint(t, geom.Pt(600, 40), rt.Points[1])
		assertPoint(t, geom.Pt(200, 40), rt.Points[2])
	})

	t.Run("curvature scales offset", func(t *testing.T) {
		rt := r.Compute(geom.Pt(100, 150), geom.Pt(400, 150), graph.StyleCurved, 1, nil)
		assertPoint(t, geom.Pt(400, 190), rt.Points[1])
	})
}

func TestCurvedExplicitControlPoints(t *testing.T) {
	r := Default()
	cps := []geom.Point{geom.Pt(10, 20), geom.Pt(30, 40)}
	rt := r.Compute(geom.Pt(0, 0), geom.Pt(500, 0), graph.StyleCurved, 0.5, cps)
	assertPoint(t, cps[0], rt.Points[1])
	assertPoint(t, cps[1], rt.Points[2])
}

func TestOrthogonal(t *testing.T) {
	r := Default()
	rt := r.Compute(geom.Pt(0, 0), geom.Pt(400, 200), graph.StyleOrthogonal, 0.5, nil)

	require.Len(t, rt.Points, 4)
	assertPoint(t, geom.Pt(200, 40), rt.Points[0])
	assertPoint(t, geom.Pt(300, 40), rt.Points[1])
	assertPoint(t, geom.Pt(300, 240), rt.Points[2])
	assertPoint(t, geom.Pt(400, 240), rt.Points[3])
	assert.Equal(t, "M 200 40 L 300 40 L 300 240 L 400 240", rt.D)
	assertPoint(t, geom.Pt(300, 140), rt.Mid)
}

func TestOrthogonalCollapsesWhenAligned(t *testing.T) {
	r := Default()
	rt := r.Compute(geom.Pt(0, 0), geom.Pt(400, 0.2), graph.StyleOrthogonal, 0.5, nil)
	assert.Len(t, rt.Points, 2)
	assert.Equal(t, graph.StyleOrthogonal, rt.Style)
}

func TestLabelPlacement(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(graph.Node{ID: "a", Position: geom.Pt(100, 150)})
	b, _ := g.AddNode(graph.Node{ID: "b", Position: geom.Pt(400, 150)})
	e, err := g.AddEdge(a.ID, b.ID, "x")
	require.NoError(t, err)
	style := graph.StyleStraight
	e, err = g.UpdateEdge(e.ID, graph.EdgePatch{Style: &style})
	require.NoError(t, err)

	r := Default()
	rt, err := r.Edge(g, e)
	require.NoError(t, err)

	assertPoint(t, geom.Pt(350, 190), rt.Mid)
	assertPoint(t, geom.Pt(350, 176), rt.Label)
	require.NotNil(t, rt.LabelBox)
	assert.InDelta(t, 27.0, rt.LabelBox.W, 1e-9)
	assert.InDelta(t, 336.5, rt.LabelBox.X, 1e-9)
	assert.InDelta(t, 165.0, rt.LabelBox.Y, 1e-9)
	assert.True(t, rt.LabelBox.Contains(rt.Label))
	assert.False(t, rt.LabelBox.Contains(rt.Mid), "pill must not sit on the line")
}

func TestLabelPlacementOrthogonal(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(graph.Node{ID: "a"})
	b, _ := g.AddNode(graph.Node{ID: "b", Position: geom.Pt(400, 200)})
	e, _ := g.AddEdge(a.ID, b.ID, "yes")
	style := graph.StyleOrthogonal
	e, _ = g.UpdateEdge(e.ID, graph.EdgePatch{Style: &style})

	rt, err := Default().Edge(g, e)
	require.NoError(t, err)
	assertPoint(t, geom.Pt(314, 140), rt.Label)
}

func TestNoLabelNoBox(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(graph.Node{ID: "a"})
	b, _ := g.AddNode(graph.Node{ID: "b", Position: geom.Pt(400, 0)})
	e, _ := g.AddEdge(a.ID, b.ID, "")

	rt, err := Default().Edge(g, e)
	require.NoError(t, err)
	assert.Nil(t, rt.LabelBox)
	assert.Equal(t, rt.Mid, rt.Label)
}

func TestHits(t *testing.T) {
	r := Default()
	rt := r.Compute(geom.Pt(100, 150), geom.Pt(400, 150), graph.StyleCurved, 0.5, nil)

	assert.True(t, rt.Hits(geom.Pt(350, 199)))
	assert.False(t, rt.Hits(geom.Pt(350, 201)))

	orth := r.Compute(geom.Pt(0, 0), geom.Pt(400, 200), graph.StyleOrthogonal, 0.5, nil)
	assert.True(t, orth.Hits(geom.Pt(305, 100)), "near the vertical leg")
	assert.False(t, orth.Hits(geom.Pt(250, 140)))
}

func TestDanglingEdgeSkipped(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(graph.Node{ID: "a"})
	b, _ := g.AddNode(graph.Node{ID: "b", Position: geom.Pt(400, 0)})
	ok, _ := g.AddEdge(a.ID, b.ID, "")

	var skipped []string
	r := Default()
	r.OnSkip = func(e graph.Connection, err error) {
		assert.ErrorIs(t, err, ErrDanglingEdge)
		skipped = append(skipped, e.ID)
	}

	ghost := graph.Connection{ID: "ghost", From: "a", To: "gone", Style: graph.StyleCurved, Curvature: 0.5}
	routes := r.RouteEdges(g, []graph.Connection{ok, ghost})
	require.Len(t, routes, 1)
	assert.Equal(t, ok.ID, routes[0].EdgeID)
	assert.Equal(t, []string{"ghost"}, skipped)
}

func TestPreview(t *testing.T) {
	r := Default()
	rt := r.Preview(geom.Pt(0, 0), geom.Pt(500, 300))
	assert.Equal(t, graph.StyleStraight, rt.Style)
	assertPoint(t, geom.Pt(200, 40), rt.Points[0])
	assertPoint(t, geom.Pt(500, 300), rt.Points[1])
}

func TestRenderSVG(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(graph.Node{ID: "a", Label: "Ads & <Search>", Category: graph.CategoryAcquisition})
	b, _ := g.AddNode(graph.Node{ID: "b", Label: "CRM", Position: geom.Pt(400, 100)})
	e, _ := g.AddEdge(a.ID, b.ID, "lead")

	out := RenderSVG(g, Default(), SVGOptions{Title: "Funnel X", Editing: e.ID, Selected: "b"})
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Contains(t, out, "Ads &amp; &lt;Search&gt;")
	assert.Contains(t, out, `class="hit" data-edge-id="`+e.ID+`"`)
	assert.Contains(t, out, `class="edge editing"`)
	assert.Contains(t, out, `class="node-card selected"`)
	assert.Contains(t, out, `class="label-pill"`)
	assert.Contains(t, out, ">lead</text>")
	assert.Contains(t, out, "<title>Funnel X</title>")
}

func TestRenderSVGEmpty(t *testing.T) {
	out := RenderSVG(graph.New(), Default(), SVGOptions{})
	assert.Contains(t, out, `viewBox="0 0 80 80"`)
}
