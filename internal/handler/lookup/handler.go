package lookup

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TomasB/hostgeo/internal/geo"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/session"
	"github.com/TomasB/hostgeo/internal/tab"
	"github.com/gin-gonic/gin"
)

// LookupRequest represents the JSON body for a one-shot lookup.
type LookupRequest struct {
	Hostname string `json:"hostname" binding:"required"`
	Source   string `json:"source" binding:"required"`
	TabID    int    `json:"tab_id"`
}

// LookupResponse represents the JSON response for a one-shot lookup.
type LookupResponse struct {
	IP    string      `json:"ip,omitempty"`
	Geo   *geo.Record `json:"geo,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Handler resolves a hostname and looks up its IP without touching any tab state.
type Handler struct {
	resolvers session.SourceResolver
	lookup    geo.Lookup
}

// NewHandler creates a new lookup handler.
func NewHandler(resolvers session.SourceResolver, lookup geo.Lookup) *Handler {
	return &Handler{resolvers: resolvers, lookup: lookup}
}

// Lookup handles POST /api/v1/lookup
func (h *Handler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LookupResponse{
			Error: "invalid request: " + err.Error(),
		})
		return
	}

	slog.Debug("lookup request received", "hostname", req.Hostname, "source", req.Source)

	src, err := resolver.ParseSource(req.Source)
	if err != nil {
		c.JSON(http.StatusBadRequest, LookupResponse{Error: err.Error()})
		return
	}

	ip, err := h.resolvers.Resolve(c.Request.Context(), src, resolver.Query{Hostname: req.Hostname, TabID: tab.ID(req.TabID)})
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, resolver.ErrInvalidHostname):
			status = http.StatusBadRequest
		case errors.Is(err, resolver.ErrNotCaptured):
			status = http.StatusNotFound
		}
		c.JSON(status, LookupResponse{Error: err.Error()})
		return
	}

	rec, err := h.lookup.Lookup(c.Request.Context(), ip)
	if err != nil {
		slog.Error("geo lookup failed", "ip", ip.String(), "error", err)
		c.JSON(http.StatusBadGateway, LookupResponse{IP: ip.String(), Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, LookupResponse{IP: ip.String(), Geo: rec})
}
