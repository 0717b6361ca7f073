package tabs

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/TomasB/hostgeo/internal/icon"
	"github.com/TomasB/hostgeo/internal/metrics"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/session"
	"github.com/TomasB/hostgeo/internal/tab"
	"github.com/gin-gonic/gin"
)

// ResponseRequest reports the source IP of a completed top-level response.
type ResponseRequest struct {
	IP string `json:"ip" binding:"required"`
}

// NavigationRequest reports a completed top-level navigation.
type NavigationRequest struct {
	URL string `json:"url" binding:"required"`
}

// OpenRequest is sent when the popup opens on a tab.
type OpenRequest struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// SourceRequest switches the resolution source of an opened tab.
type SourceRequest struct {
	Source string `json:"source" binding:"required"`
}

// AcceptedResponse carries the sequence number of an issued request.
type AcceptedResponse struct {
	Seq uint64 `json:"seq"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IconUpdater runs the background icon pipeline. *icon.Pipeline implements it.
type IconUpdater interface {
	Update(ctx context.Context, id tab.ID, gen uint64, rawURL string)
}

// Handler adapts browser events and popup actions to the core.
type Handler struct {
	tabs  *tab.Store
	orch  *session.Orchestrator
	board *session.Board
	icons *icon.Store
	iconU IconUpdater

	// spawn runs pipelines detached from the request.
	spawn func(func())
}

// NewHandler creates a tabs handler.
func NewHandler(tabs *tab.Store, orch *session.Orchestrator, board *session.Board, icons *icon.Store, iconU IconUpdater) *Handler {
	return &Handler{
		tabs:  tabs,
		orch:  orch,
		board: board,
		icons: icons,
		iconU: iconU,
		spawn: func(f func()) { go f() },
	}
}

// Register mounts the tab routes on rg.
func (h *Handler) Register(rg gin.IRoutes) {
	rg.POST("/tabs/:id/response", h.CaptureResponse)
	rg.DELETE("/tabs/:id", h.Close)
	rg.POST("/tabs/:id/navigation", h.Navigation)
	rg.POST("/tabs/:id/open", h.Open)
	rg.POST("/tabs/:id/source", h.SwitchSource)
	rg.GET("/tabs/:id/state", h.State)
	rg.GET("/tabs/:id/icon", h.Icon)
}

func (h *Handler) tabID(c *gin.Context) (tab.ID, bool) {
	id, err := tab.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return 0, false
	}
	return id, true
}

// CaptureResponse handles POST /api/v1/tabs/:id/response
func (h *Handler) CaptureResponse(c *gin.Context) {
	id, ok := h.tabID(c)
	if !ok {
		return
	}

	var req ResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	ip := net.ParseIP(req.IP).To4()
	if ip == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid IPv4 address"})
		return
	}

	h.tabs.Record(id, ip)
	metrics.TrackedTabs.Set(float64(h.tabs.Len()))
	slog.Debug("response captured", "tab", id, "ip", req.IP)
	c.Status(http.StatusNoContent)
}

// Close handles DELETE /api/v1/tabs/:id
func (h *Handler) Close(c *gin.Context) {
	id, ok := h.tabID(c)
	if !ok {
		return
	}

	h.tabs.Remove(id)
	h.orch.Forget(id)
	h.icons.Remove(id)
	metrics.TrackedTabs.Set(float64(h.tabs.Len()))
	slog.Debug("tab closed", "tab", id)
	c.Status(http.StatusNoContent)
}

// Navigation handles POST /api/v1/tabs/:id/navigation
func (h *Handler) Navigation(c *gin.Context) {
	id, ok := h.tabID(c)
	if !ok {
		return
	}

	var req NavigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	// taken before spawning so a close racing the pipeline ends this generation
	gen := h.icons.Begin(id)
	ctx := context.WithoutCancel(c.Request.Context())
	h.spawn(func() { h.iconU.Update(ctx, id, gen, req.URL) })
	c.Status(http.StatusAccepted)
}

// Open handles POST /api/v1/tabs/:id/open
func (h *Handler) Open(c *gin.Context) {
	id, ok := h.tabID(c)
	if !ok {
		return
	}

	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	src := resolver.Local
	if req.Source != "" {
		var err error
		if src, err = resolver.ParseSource(req.Source); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	r, seq, err := h.orch.Open(id, req.URL, src)
	if err != nil {
		st, _ := h.board.Get(id)
		c.JSON(http.StatusOK, st)
		return
	}

	h.run(c, r, seq)
}

// SwitchSource handles POST /api/v1/tabs/:id/source
func (h *Handler) SwitchSource(c *gin.Context) {
	id, ok := h.tabID(c)
	if !ok {
		return
	}

	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	src, err := resolver.ParseSource(req.Source)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	r, seq, err := h.orch.Switch(id, src)
	if errors.Is(err, session.ErrNotOpened) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}

	h.run(c, r, seq)
}

func (h *Handler) run(c *gin.Context, r session.Request, seq uint64) {
	ctx := context.WithoutCancel(c.Request.Context())
	h.spawn(func() { h.orch.Run(ctx, r, seq) })
	c.JSON(http.StatusAccepted, AcceptedResponse{Seq: seq})
}

// State handles GET /api/v1/tabs/:id/state
func (h *Handler) State(c *gin.Context) {
	id, ok := h.tabID(c)
	if !ok {
		return
	}

	st, found := h.board.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no state for tab"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Icon handles GET /api/v1/tabs/:id/icon
func (h *Handler) Icon(c *gin.Context) {
	id, ok := h.tabID(c)
	if !ok {
		return
	}

	ic, found := h.icons.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no icon for tab"})
		return
	}

	data, err := ic.EncodePNG()
	if err != nil {
		slog.Error("icon encoding failed", "tab", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "icon encoding failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}
