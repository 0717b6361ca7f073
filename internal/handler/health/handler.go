package health

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is usable.
type Check func() error

// Handler manages health check endpoints
type Handler struct {
	checks map[string]Check
}

// NewHandler creates a new health check handler. Ready fails while any of
// checks fails.
func NewHandler(checks map[string]Check) *Handler {
	return &Handler{checks: checks}
}

// Health is the liveness probe endpoint
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready is the readiness probe endpoint
// GET /ready
func (h *Handler) Ready(c *gin.Context) {
	if err := h.Check(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// Check runs the checks in name order and returns the first failure.
func (h *Handler) Check() error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](); err != nil {
			return &CheckError{Name: name, Err: err}
		}
	}
	return nil
}

// CheckError names the failing check.
type CheckError struct {
	Name string
	Err  error
}

func (e *CheckError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e *CheckError) Unwrap() error {
	return e.Err
}
