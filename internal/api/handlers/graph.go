// Package handlers provides HTTP request handlers for the Uplink API.
// This file implements the spider graph view: opening and closing the single
// visualizer, streaming its draw-in animation and forwarding pointer input.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/graph"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
	"github.com/anstrom/uplink/internal/scanning"
)

// Canvas input kinds.
const (
	InputPress     = "press"
	InputDrag      = "drag"
	InputRelease   = "release"
	InputZoom      = "zoom"
	InputConfigure = "configure"
)

// Graph command names accepted over the event socket.
const (
	CommandGraphInput   = "graph_input"
	CommandGraphProfile = "graph_profile"
)

const defaultFrameInterval = 50 * time.Millisecond

// GraphHandler handles the visualizer endpoints.
type GraphHandler struct {
	BaseHandler
	visualizer *graph.Visualizer
	session    *scanning.Session
	hub        *Hub
	width      float64
	height     float64
	interval   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewGraphHandler creates a graph handler. width and height are the canvas
// used when a request does not name one.
func NewGraphHandler(
	visualizer *graph.Visualizer,
	session *scanning.Session,
	hub *Hub,
	width, height int,
	interval time.Duration,
	logger *logging.Logger,
	registry metrics.MetricsRegistry,
) *GraphHandler {
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	base := NewBaseHandler(logger, registry)
	base.logger = base.logger.WithFields("handler", "graph")
	return &GraphHandler{
		BaseHandler: base,
		visualizer:  visualizer,
		session:     session,
		hub:         hub,
		width:       float64(width),
		height:      float64(height),
		interval:    interval,
	}
}

// OpenGraphRequest sizes the canvas.
type OpenGraphRequest struct {
	Width  float64 `json:"width,omitempty" validate:"gte=0,lte=10000"`
	Height float64 `json:"height,omitempty" validate:"gte=0,lte=10000"`
}

// GraphInput is a pointer event on the canvas, or its size for configure.
type GraphInput struct {
	Type   string  `json:"type" validate:"required,oneof=press drag release zoom configure"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Delta  int     `json:"delta,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// PointRequest is a canvas position.
type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OpenGraph handles POST /api/v1/graph - build the graph from the last scan.
func (h *GraphHandler) OpenGraph(w http.ResponseWriter, r *http.Request) {
	req := OpenGraphRequest{}
	if r.ContentLength != 0 {
		if err := parseJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Width == 0 {
		req.Width = h.width
	}
	if req.Height == 0 {
		req.Height = h.height
	}

	g, err := h.Open(req.Width, req.Height)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, g)
}

// Open builds the graph and starts streaming its animation.
func (h *GraphHandler) Open(width, height float64) (*graph.Graph, error) {
	data, err := h.session.Results()
	if err != nil {
		return nil, err
	}

	g, err := h.visualizer.Open(data, width, height)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Graph opened", "nodes", len(g.Nodes), "width", width, "height", height)
	h.count(metrics.MetricGraphsOpened, nil)

	h.startAnimation(g)
	return g, nil
}

// startAnimation announces g and streams its draw-in, replacing any running animation.
func (h *GraphHandler) startAnimation(g *graph.Graph) {
	ctx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	h.mu.Unlock()

	if h.hub != nil {
		h.hub.Publish(EventGraphOpened, g)
		go h.animate(ctx)
	}
}

// animate publishes frames until the draw-in completes or the view closes.
func (h *GraphHandler) animate(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		frame, ok := h.visualizer.Frame()
		if !ok {
			return
		}
		h.hub.Publish(EventGraphFrame, frame)
		if frame.Done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CloseGraph handles DELETE /api/v1/graph.
func (h *GraphHandler) CloseGraph(w http.ResponseWriter, r *http.Request) {
	h.Close()
	w.WriteHeader(http.StatusNoContent)
}

// Close stops the animation and releases the view.
func (h *GraphHandler) Close() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()

	if !h.visualizer.IsOpen() {
		return
	}
	h.visualizer.Close()
	if h.hub != nil {
		h.hub.Publish(EventGraphClosed, nil)
	}
	h.logger.Info("Graph closed")
}

// GetFrame handles GET /api/v1/graph/frame - the current animation frame.
func (h *GraphHandler) GetFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.visualizer.Frame()
	if !ok {
		writeError(w, r, errGraphClosed())
		return
	}
	writeJSON(w, r, http.StatusOK, frame)
}

// Input handles POST /api/v1/graph/input - a pointer event.
func (h *GraphHandler) Input(w http.ResponseWriter, r *http.Request) {
	var in GraphInput
	if err := parseJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	frame, err := h.apply(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, frame)
}

// apply forwards in to the visualizer and broadcasts the resulting frame.
func (h *GraphHandler) apply(in GraphInput) (graph.Frame, error) {
	if !h.visualizer.IsOpen() {
		return graph.Frame{}, errGraphClosed()
	}

	switch in.Type {
	case InputConfigure:
		g, laidOut, err := h.visualizer.Configure(in.Width, in.Height)
		if err != nil {
			return graph.Frame{}, err
		}
		if laidOut {
			h.logger.Info("Graph laid out", "nodes", len(g.Nodes), "width", in.Width, "height", in.Height)
			h.startAnimation(g)
		}
	case InputPress:
		h.visualizer.Press(in.X, in.Y)
	case InputDrag:
		h.visualizer.Drag(in.X, in.Y)
	case InputRelease:
		h.visualizer.Release()
	case InputZoom:
		h.visualizer.Zoom(in.X, in.Y, in.Delta)
	default:
		return graph.Frame{}, errors.New(errors.CodeValidation, fmt.Sprintf("unknown input: %s", in.Type))
	}

	frame, ok := h.visualizer.Frame()
	if !ok {
		return graph.Frame{}, errGraphClosed()
	}
	if h.hub != nil && in.Type != InputPress && in.Type != InputRelease && in.Type != InputConfigure {
		h.hub.Publish(EventGraphFrame, frame)
	}
	return frame, nil
}

// GetProfile handles GET /api/v1/graph/profile?x=&y= - the right-click profile.
func (h *GraphHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	x, err := getQueryParamFloat(r, "x")
	if err != nil {
		writeError(w, r, err)
		return
	}
	y, err := getQueryParamFloat(r, "y")
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.profileAt(x, y)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, profile)
}

func (h *GraphHandler) profileAt(x, y float64) (graph.Profile, error) {
	if !h.visualizer.IsOpen() {
		return graph.Profile{}, errGraphClosed()
	}
	profile, ok := h.visualizer.ProfileAt(x, y)
	if !ok {
		return graph.Profile{}, errors.New(errors.CodeNotFound, "No node at that position")
	}
	return profile, nil
}

// RegisterCommands wires graph input and profile lookups to the event socket.
func (h *GraphHandler) RegisterCommands(hub *Hub) {
	hub.Handle(CommandGraphInput, func(_ context.Context, data json.RawMessage) (interface{}, error) {
		var in GraphInput
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, errors.Wrap(errors.CodeValidation, "invalid graph input", err)
		}
		// The frame is broadcast; the sender needs no separate reply.
		_, err := h.apply(in)
		return nil, err
	})
	hub.Handle(CommandGraphProfile, func(_ context.Context, data json.RawMessage) (interface{}, error) {
		var p PointRequest
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(errors.CodeValidation, "invalid position", err)
		}
		return h.profileAt(p.X, p.Y)
	})
}

func errGraphClosed() error {
	return errors.New(errors.CodeNotFound, "The visualizer is not open.")
}
