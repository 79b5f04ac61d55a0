// Package graph lays out scan results as a spider graph: the first host in
// the middle, the remaining hosts on a ring around it and each host's open
// services on a smaller ring around that host. It also drives the draw-in
// animation and the drag, pan and zoom interaction.
package graph

import (
	stderrors "errors"
	"fmt"
	"math"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/nmapxml"
	"github.com/anstrom/uplink/internal/report"
)

// Node kinds.
const (
	KindHost    = "host"
	KindService = "service"
)

// Drawing constants.
const (
	MainHostSize  = 15.0
	HostSize      = 10.0
	ServiceSize   = 5.0
	MainHostColor = "#00FFFF"
	HostColor     = "#00BFFF"
	ServiceColor  = "#FF5722"
	EdgeColor     = "#00BFFF"
	MessageColor  = "#00BFFF"
	ErrorColor    = "#FF6347"

	serviceRingBase    = 80.0
	serviceRingPerPort = 2.0
	labelGap           = 10.0
	noParent           = -1
)

// Operator-facing messages drawn in place of the graph.
const (
	MsgNoResults = "No scan results to visualize."
	MsgNoHosts   = "No hosts found in the scan results."
)

// Node is a drawn host or service.
type Node struct {
	ID      int     `json:"id"`
	Kind    string  `json:"kind"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Size    float64 `json:"size"`
	Color   string  `json:"color"`
	Label   string  `json:"label"`
	Parent  int     `json:"parent"`
	Main    bool    `json:"main,omitempty"`
	Title   string  `json:"title"`
	Profile string  `json:"profile"`
}

// Edge joins a node to its parent.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Graph is a laid out spider graph. Nodes are in draw order.
type Graph struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
	Nodes  []Node  `json:"nodes"`
	Edges  []Edge  `json:"edges"`
}

// CanvasReady reports whether a canvas is large enough to draw on.
func CanvasReady(width, height float64) bool {
	return width > 1 && height > 1
}

// Build parses data and lays it out on a width by height canvas.
// A canvas of 1px or less in either direction is not ready and yields an empty graph.
func Build(data []byte, width, height float64) (*Graph, error) {
	if nmapxml.IsBlank(data) {
		return nil, errors.New(errors.CodeNoScanData, MsgNoResults)
	}

	g := &Graph{Width: width, Height: height, Scale: 1}
	if !CanvasReady(width, height) {
		return g, nil
	}

	result, err := nmapxml.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseFailed, fmt.Sprintf("Error parsing XML: %v", stderrors.Unwrap(err)), err)
	}
	if len(result.Hosts) == 0 {
		return nil, errors.New(errors.CodeNotFound, MsgNoHosts)
	}

	g.layout(result)
	return g, nil
}

func (g *Graph) layout(result *nmapxml.Result) {
	cx, cy := g.Width/2, g.Height/2
	g.addHost(&result.Hosts[0], cx, cy, true, noParent)

	others := result.Hosts[1:]
	if n := len(others); n > 0 {
		spacing := 2 * math.Pi / float64(n)
		radius := math.Min(g.Width, g.Height) / 3
		for i := range others {
			angle := float64(i) * spacing
			g.addHost(&others[i], cx+radius*math.Cos(angle), cy+radius*math.Sin(angle), false, 0)
		}
	}

	hostCount := len(g.Nodes)
	for i := 0; i < hostCount; i++ {
		hostNode := g.Nodes[i]
		host := &result.Hosts[i]
		open := host.OpenPorts()
		if len(open) == 0 {
			continue
		}

		m := len(open)
		spacing := 2 * math.Pi / float64(m)
		radius := serviceRingBase + serviceRingPerPort*float64(m)
		for j := range open {
			angle := float64(j) * spacing
			g.addService(host, &open[j], hostNode.X+radius*math.Cos(angle), hostNode.Y+radius*math.Sin(angle), hostNode.ID)
		}
	}
}

func (g *Graph) addHost(host *nmapxml.Host, x, y float64, main bool, parent int) {
	size, color := HostSize, HostColor
	if main {
		size, color = MainHostSize, MainHostColor
	}
	g.addNode(Node{
		Kind:    KindHost,
		X:       x,
		Y:       y,
		Size:    size,
		Color:   color,
		Label:   "Host: " + host.Address,
		Parent:  parent,
		Main:    main,
		Title:   report.HostProfileTitle,
		Profile: report.HostProfile(host),
	})
}

func (g *Graph) addService(host *nmapxml.Host, port *nmapxml.Port, x, y float64, parent int) {
	g.addNode(Node{
		Kind:    KindService,
		X:       x,
		Y:       y,
		Size:    ServiceSize,
		Color:   ServiceColor,
		Label:   port.Label(),
		Parent:  parent,
		Title:   report.ServiceProfileTitle,
		Profile: report.ServiceProfile(host, port),
	})
}

func (g *Graph) addNode(n Node) {
	n.ID = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	if n.Parent != noParent {
		g.Edges = append(g.Edges, Edge{From: n.Parent, To: n.ID})
	}
}

// Radius is the drawn radius of a fully grown node at the current zoom.
func (g *Graph) Radius(n *Node) float64 {
	return n.Size * g.Scale
}

// LabelY is where a node's label is drawn.
func (g *Graph) LabelY(n *Node) float64 {
	return n.Y + (n.Size+labelGap)*g.Scale
}
