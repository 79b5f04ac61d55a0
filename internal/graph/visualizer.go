package graph

import (
	"math"
	"sync"
	"time"

	"github.com/anstrom/uplink/internal/errors"
)

// ZoomFactor is applied per wheel notch.
const ZoomFactor = 1.1

// hitSlop widens node hit testing so small service nodes stay clickable.
const hitSlop = 4.0

// Drag modes.
const (
	modeNone = ""
	modeNode = "node"
	modePan  = "pan"
)

// Profile is the detail shown on right-click.
type Profile struct {
	NodeID  int    `json:"node_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Visualizer is the single interactive graph view.
type Visualizer struct {
	mu      sync.Mutex
	now     func() time.Time
	open    bool
	ready   bool
	data    []byte
	graph   *Graph
	started time.Time

	mode  string
	item  int
	lastX float64
	lastY float64
}

// NewVisualizer creates a closed visualizer.
func NewVisualizer() *Visualizer {
	return &Visualizer{now: time.Now}
}

// Open builds the graph and starts its animation. Only one view may be open.
func (v *Visualizer) Open(data []byte, width, height float64) (*Graph, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.open {
		return nil, errors.ErrVisualizerOpen()
	}

	g, err := Build(data, width, height)
	if err != nil {
		return nil, err
	}

	v.open = true
	v.ready = CanvasReady(width, height)
	v.data = data
	v.graph = g
	v.started = v.now()
	v.mode = modeNone
	return g, nil
}

// Configure reports the canvas size of the open view. A view opened before
// its canvas was ready is laid out on the first usable size and its animation
// restarts; later calls change nothing. laidOut reports whether that happened.
func (v *Visualizer) Configure(width, height float64) (g *Graph, laidOut bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.open {
		return nil, false, nil
	}
	if v.ready || !CanvasReady(width, height) {
		return v.graph, false, nil
	}

	g, err = Build(v.data, width, height)
	if err != nil {
		return nil, false, err
	}

	v.ready = true
	v.graph = g
	v.started = v.now()
	v.mode = modeNone
	return g, true, nil
}

// Close releases the view so it can be opened again.
func (v *Visualizer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.open = false
	v.ready = false
	v.data = nil
	v.graph = nil
	v.mode = modeNone
}

// IsOpen reports whether a view is open.
func (v *Visualizer) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Frame returns the current animation frame of the open view.
func (v *Visualizer) Frame() (Frame, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.graph == nil {
		return Frame{}, false
	}
	return v.graph.Frame(v.now().Sub(v.started)), true
}

// nodeAt returns the node under (x, y), closest first.
func (v *Visualizer) nodeAt(x, y float64) (int, bool) {
	best, bestDist := -1, math.MaxFloat64
	for i := range v.graph.Nodes {
		n := &v.graph.Nodes[i]
		d := math.Hypot(n.X-x, n.Y-y)
		if d <= v.graph.Radius(n)+hitSlop && d < bestDist {
			best, bestDist = n.ID, d
		}
	}
	return best, best >= 0
}

// Press starts dragging the node under the pointer, or panning when there is none.
func (v *Visualizer) Press(x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.graph == nil {
		return
	}
	if id, ok := v.nodeAt(x, y); ok {
		v.mode, v.item = modeNode, id
	} else {
		v.mode = modePan
	}
	v.lastX, v.lastY = x, y
}

// Drag moves the pressed node, or every node when panning.
func (v *Visualizer) Drag(x, y float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.graph == nil || v.mode == modeNone {
		return
	}

	dx, dy := x-v.lastX, y-v.lastY
	switch v.mode {
	case modeNode:
		n := &v.graph.Nodes[v.item]
		n.X += dx
		n.Y += dy
	case modePan:
		for i := range v.graph.Nodes {
			v.graph.Nodes[i].X += dx
			v.graph.Nodes[i].Y += dy
		}
	}
	v.lastX, v.lastY = x, y
}

// Release ends a drag or pan.
func (v *Visualizer) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = modeNone
}

// Zoom scales the graph around (x, y). Positive delta zooms in.
func (v *Visualizer) Zoom(x, y float64, delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.graph == nil || delta == 0 {
		return
	}

	factor := ZoomFactor
	if delta < 0 {
		factor = 1 / ZoomFactor
	}
	for i := range v.graph.Nodes {
		n := &v.graph.Nodes[i]
		n.X = x + (n.X-x)*factor
		n.Y = y + (n.Y-y)*factor
	}
	v.graph.Scale *= factor
}

// ProfileAt returns the profile of the node under (x, y).
func (v *Visualizer) ProfileAt(x, y float64) (Profile, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.graph == nil {
		return Profile{}, false
	}
	id, ok := v.nodeAt(x, y)
	if !ok {
		return Profile{}, false
	}
	n := &v.graph.Nodes[id]
	return Profile{NodeID: id, Title: n.Title, Content: n.Profile}, true
}
