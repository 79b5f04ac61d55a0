package graph

import (
	"math"
	"time"
)

// Animation timing.
const (
	NodeInterval = 50 * time.Millisecond
	GrowStep     = 5 * time.Millisecond
	LineStep     = 5 * time.Millisecond
	LineSteps    = 50
	startSize    = 1.0
)

// NodeFrame is a node's appearance at one instant.
type NodeFrame struct {
	ID           int     `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Radius       float64 `json:"radius"`
	LabelY       float64 `json:"label_y"`
	LabelVisible bool    `json:"label_visible"`
}

// EdgeFrame is a partially or fully drawn edge.
type EdgeFrame struct {
	From int     `json:"from"`
	To   int     `json:"to"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
}

// Frame is everything visible at one instant of the draw-in animation.
type Frame struct {
	Elapsed time.Duration `json:"elapsed"`
	Nodes   []NodeFrame   `json:"nodes"`
	Edges   []EdgeFrame   `json:"edges"`
	Done    bool          `json:"done"`
}

// AppearAt is when node id starts drawing.
func AppearAt(id int) time.Duration {
	return time.Duration(id) * NodeInterval
}

// GrowDuration is how long a node of size takes to reach full size.
func GrowDuration(size float64) time.Duration {
	steps := math.Max(size-startSize, 0)
	return time.Duration(steps) * GrowStep
}

// LineDuration is how long an edge takes to reach its child.
func LineDuration() time.Duration {
	return time.Duration(LineSteps-1) * LineStep
}

// Duration is the length of the whole draw-in animation.
func (g *Graph) Duration() time.Duration {
	var end time.Duration
	for i := range g.Nodes {
		n := &g.Nodes[i]
		d := GrowDuration(n.Size)
		if n.Parent != noParent && LineDuration() > d {
			d = LineDuration()
		}
		if t := AppearAt(n.ID) + d; t > end {
			end = t
		}
	}
	return end
}

// Frame returns the graph as drawn elapsed after the animation started.
// Nodes grow by one pixel every GrowStep and show their label at full size.
// Edges advance 1/LineSteps of the way every LineStep.
func (g *Graph) Frame(elapsed time.Duration) Frame {
	f := Frame{Elapsed: elapsed, Done: elapsed >= g.Duration()}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		since := elapsed - AppearAt(n.ID)
		if since < 0 {
			break
		}

		size := startSize + float64(since/GrowStep)
		full := size >= n.Size
		if full {
			size = n.Size
		}
		f.Nodes = append(f.Nodes, NodeFrame{
			ID:           n.ID,
			X:            n.X,
			Y:            n.Y,
			Radius:       size * g.Scale,
			LabelY:       g.LabelY(n),
			LabelVisible: full,
		})

		if n.Parent == noParent {
			continue
		}
		parent := &g.Nodes[n.Parent]
		steps := int(since/LineStep) + 1
		if steps > LineSteps {
			steps = LineSteps
		}
		progress := float64(steps) / LineSteps
		f.Edges = append(f.Edges, EdgeFrame{
			From: parent.ID,
			To:   n.ID,
			X1:   parent.X,
			Y1:   parent.Y,
			X2:   parent.X + (n.X-parent.X)*progress,
			Y2:   parent.Y + (n.Y-parent.Y)*progress,
		})
	}

	return f
}
