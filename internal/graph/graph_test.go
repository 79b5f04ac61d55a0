package graph

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/nmapxml/nmapxmltest"
)

func buildTwoHosts(t *testing.T) *Graph {
	t.Helper()
	g, err := Build([]byte(nmapxmltest.TwoHosts), 800, 600)
	require.NoError(t, err)
	return g
}

func TestBuild_Layout(t *testing.T) {
	g := buildTwoHosts(t)

	require.Len(t, g.Nodes, 6)

	main := g.Nodes[0]
	assert.Equal(t, KindHost, main.Kind)
	assert.True(t, main.Main)
	assert.Equal(t, 400.0, main.X)
	assert.Equal(t, 300.0, main.Y)
	assert.Equal(t, MainHostSize, main.Size)
	assert.Equal(t, MainHostColor, main.Color)
	assert.Equal(t, "Host: 192.168.1.1", main.Label)
	assert.Equal(t, noParent, main.Parent)
	assert.Equal(t, "Host Profile", main.Title)

	other := g.Nodes[1]
	assert.Equal(t, KindHost, other.Kind)
	assert.InDelta(t, 600.0, other.X, 1e-9, "radius is min(w,h)/3")
	assert.InDelta(t, 300.0, other.Y, 1e-9)
	assert.Equal(t, HostSize, other.Size)
	assert.Equal(t, HostColor, other.Color)
	assert.Equal(t, 0, other.Parent)

	// three open services on a ring of 80 + 2*3 around the main host
	ring := 86.0
	assert.Equal(t, "21/tcp", g.Nodes[2].Label)
	assert.InDelta(t, 400+ring, g.Nodes[2].X, 1e-9)
	assert.InDelta(t, 400+ring*math.Cos(2*math.Pi/3), g.Nodes[3].X, 1e-9)
	assert.InDelta(t, 300+ring*math.Sin(2*math.Pi/3), g.Nodes[3].Y, 1e-9)
	assert.InDelta(t, 300+ring*math.Sin(4*math.Pi/3), g.Nodes[4].Y, 1e-9)
	for _, n := range g.Nodes[2:5] {
		assert.Equal(t, KindService, n.Kind)
		assert.Equal(t, ServiceSize, n.Size)
		assert.Equal(t, ServiceColor, n.Color)
		assert.Equal(t, 0, n.Parent)
		assert.Equal(t, "Service Profile", n.Title)
	}

	// one open service around the second host, ring of 82
	assert.Equal(t, "443/tcp", g.Nodes[5].Label)
	assert.Equal(t, 1, g.Nodes[5].Parent)
	assert.InDelta(t, 682.0, g.Nodes[5].X, 1e-9)

	assert.Equal(t, []Edge{{0, 1}, {0, 2}, {0, 3}, {0, 4}, {1, 5}}, g.Edges)
}

func TestBuild_ManyHostsRing(t *testing.T) {
	doc := `<nmaprun>` +
		`<host><address addr="10.0.0.1" addrtype="ipv4"/></host>` +
		`<host><address addr="10.0.0.2" addrtype="ipv4"/></host>` +
		`<host><address addr="10.0.0.3" addrtype="ipv4"/></host>` +
		`<host><address addr="10.0.0.4" addrtype="ipv4"/></host>` +
		`<host><address addr="10.0.0.5" addrtype="ipv4"/></host>` +
		`</nmaprun>`

	g, err := Build([]byte(doc), 900, 300)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 5)

	// four others at 0, 90, 180 and 270 degrees on radius 100
	assert.InDelta(t, 550.0, g.Nodes[1].X, 1e-9)
	assert.InDelta(t, 250.0, g.Nodes[2].Y, 1e-9)
	assert.InDelta(t, 350.0, g.Nodes[3].X, 1e-9)
	assert.InDelta(t, 50.0, g.Nodes[4].Y, 1e-9)
}

func TestBuild_Messages(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		code    errors.ErrorCode
		message string
	}{
		{"blank", "  \n", errors.CodeNoScanData, MsgNoResults},
		{"no hosts", nmapxmltest.NoHosts, errors.CodeNotFound, MsgNoHosts},
		{"parse error", nmapxmltest.Truncated, errors.CodeParseFailed, "Error parsing XML: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Build([]byte(tt.doc), 800, 600)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.IsCode(err, tt.code))
			assert.True(t, strings.HasPrefix(errors.UserMessage(err), tt.message))
		})
	}
}

func TestBuild_CanvasNotReady(t *testing.T) {
	g, err := Build([]byte(nmapxmltest.TwoHosts), 1, 600)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)

	_, err = Build(nil, 0, 0)
	assert.True(t, errors.IsCode(err, errors.CodeNoScanData), "blank data is reported before readiness")
}

func TestFrame_Timeline(t *testing.T) {
	g := buildTwoHosts(t)

	f := g.Frame(0)
	require.Len(t, f.Nodes, 1)
	assert.Equal(t, 1.0, f.Nodes[0].Radius)
	assert.False(t, f.Nodes[0].LabelVisible)
	assert.Empty(t, f.Edges)

	f = g.Frame(50 * time.Millisecond)
	require.Len(t, f.Nodes, 2)
	assert.Equal(t, 11.0, f.Nodes[0].Radius)
	assert.Equal(t, 1.0, f.Nodes[1].Radius)
	require.Len(t, f.Edges, 1)
	assert.InDelta(t, 404.0, f.Edges[0].X2, 1e-9, "first of fifty steps is drawn immediately")

	f = g.Frame(69 * time.Millisecond)
	assert.False(t, f.Nodes[0].LabelVisible)
	f = g.Frame(70 * time.Millisecond)
	assert.True(t, f.Nodes[0].LabelVisible)
	assert.Equal(t, MainHostSize, f.Nodes[0].Radius)
	assert.Equal(t, 325.0, f.Nodes[0].LabelY)

	assert.Equal(t, 495*time.Millisecond, g.Duration())
	assert.False(t, g.Frame(494*time.Millisecond).Done)

	f = g.Frame(495 * time.Millisecond)
	assert.True(t, f.Done)
	require.Len(t, f.Nodes, 6)
	require.Len(t, f.Edges, 5)
	for i, e := range f.Edges {
		to := g.Nodes[g.Edges[i].To]
		assert.InDelta(t, to.X, e.X2, 1e-9)
		assert.InDelta(t, to.Y, e.Y2, 1e-9)
	}
}

func TestTimingHelpers(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, AppearAt(2))
	assert.Equal(t, 70*time.Millisecond, GrowDuration(MainHostSize))
	assert.Equal(t, 20*time.Millisecond, GrowDuration(ServiceSize))
	assert.Equal(t, 245*time.Millisecond, LineDuration())
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func openVisualizer(t *testing.T) (*Visualizer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	v := NewVisualizer()
	v.now = clock.now
	_, err := v.Open([]byte(nmapxmltest.TwoHosts), 800, 600)
	require.NoError(t, err)
	return v, clock
}

func TestVisualizer_SingleInstance(t *testing.T) {
	v, _ := openVisualizer(t)
	assert.True(t, v.IsOpen())

	_, err := v.Open([]byte(nmapxmltest.TwoHosts), 800, 600)
	require.Error(t, err)
	assert.Equal(t, "The visualizer window is already open.", errors.UserMessage(err))

	v.Close()
	assert.False(t, v.IsOpen())
	_, ok := v.Frame()
	assert.False(t, ok)

	_, err = v.Open([]byte(nmapxmltest.TwoHosts), 800, 600)
	assert.NoError(t, err)
}

func TestVisualizer_FailedOpenStaysClosed(t *testing.T) {
	v := NewVisualizer()

	_, err := v.Open([]byte(nmapxmltest.NoHosts), 800, 600)
	require.Error(t, err)
	assert.False(t, v.IsOpen())
}

func TestVisualizer_ConfigureLaysOutUnreadyCanvas(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	v := NewVisualizer()
	v.now = clock.now

	g, err := v.Open([]byte(nmapxmltest.TwoHosts), 1, 1)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.True(t, v.IsOpen())

	g, laidOut, err := v.Configure(0, 600)
	require.NoError(t, err)
	assert.False(t, laidOut)
	assert.Empty(t, g.Nodes)

	clock.t = clock.t.Add(time.Second)
	g, laidOut, err = v.Configure(800, 600)
	require.NoError(t, err)
	require.True(t, laidOut)
	require.Len(t, g.Nodes, 6)
	assert.Equal(t, 400.0, g.Nodes[0].X)
	assert.Equal(t, 300.0, g.Nodes[0].Y)

	f, ok := v.Frame()
	require.True(t, ok)
	assert.False(t, f.Done)
	assert.Len(t, f.Nodes, 1)

	v.Drag(10, 10)
	_, laidOut, err = v.Configure(1024, 768)
	require.NoError(t, err)
	assert.False(t, laidOut)
	f, _ = v.Frame()
	assert.Equal(t, 400.0, f.Nodes[0].X)

	v.Close()
	_, laidOut, err = v.Configure(800, 600)
	require.NoError(t, err)
	assert.False(t, laidOut)

	_, err = v.Open([]byte(nmapxmltest.TwoHosts), 800, 600)
	assert.NoError(t, err)
}

func TestVisualizer_FrameUsesClock(t *testing.T) {
	v, clock := openVisualizer(t)

	f, ok := v.Frame()
	require.True(t, ok)
	assert.Len(t, f.Nodes, 1)

	clock.t = clock.t.Add(time.Second)
	f, _ = v.Frame()
	assert.True(t, f.Done)
	assert.Len(t, f.Nodes, 6)
}

func TestVisualizer_DragNode(t *testing.T) {
	v, clock := openVisualizer(t)
	clock.t = clock.t.Add(time.Second)

	v.Press(601, 299)
	v.Drag(611, 304)
	v.Drag(621, 309)
	v.Release()
	v.Drag(700, 700)

	f, _ := v.Frame()
	assert.InDelta(t, 620.0, f.Nodes[1].X, 1e-9)
	assert.InDelta(t, 310.0, f.Nodes[1].Y, 1e-9)
	assert.InDelta(t, 400.0, f.Nodes[0].X, 1e-9, "other nodes stay put")

	// edge to the dragged node follows it
	assert.InDelta(t, 620.0, f.Edges[0].X2, 1e-9)
	assert.InDelta(t, 620.0, f.Edges[4].X1, 1e-9)
}

func TestVisualizer_Pan(t *testing.T) {
	v, clock := openVisualizer(t)
	clock.t = clock.t.Add(time.Second)

	v.Press(10, 10)
	v.Drag(15, 20)
	v.Release()

	f, _ := v.Frame()
	assert.InDelta(t, 405.0, f.Nodes[0].X, 1e-9)
	assert.InDelta(t, 310.0, f.Nodes[0].Y, 1e-9)
	assert.InDelta(t, 687.0, f.Nodes[5].X, 1e-9)
}

func TestVisualizer_Zoom(t *testing.T) {
	v, clock := openVisualizer(t)
	clock.t = clock.t.Add(time.Second)

	v.Zoom(400, 300, 1)
	f, _ := v.Frame()
	assert.InDelta(t, 620.0, f.Nodes[1].X, 1e-9)
	assert.InDelta(t, MainHostSize*ZoomFactor, f.Nodes[0].Radius, 1e-9)

	v.Zoom(400, 300, -1)
	f, _ = v.Frame()
	assert.InDelta(t, 600.0, f.Nodes[1].X, 1e-9)
	assert.InDelta(t, MainHostSize, f.Nodes[0].Radius, 1e-9)

	v.Zoom(400, 300, 0)
	f, _ = v.Frame()
	assert.InDelta(t, 600.0, f.Nodes[1].X, 1e-9)
}

func TestVisualizer_ProfileAt(t *testing.T) {
	v, _ := openVisualizer(t)

	p, ok := v.ProfileAt(486, 300)
	require.True(t, ok)
	assert.Equal(t, 2, p.NodeID)
	assert.Equal(t, "Service Profile", p.Title)
	assert.Contains(t, p.Content, "Port: 21\n")

	p, ok = v.ProfileAt(400, 300)
	require.True(t, ok)
	assert.Equal(t, "Host Profile", p.Title)
	assert.Contains(t, p.Content, "Host IP Address: 192.168.1.1\n")

	_, ok = v.ProfileAt(5, 5)
	assert.False(t, ok)
}
