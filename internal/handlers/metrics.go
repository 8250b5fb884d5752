package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sarrietav-dev/ai-backlog/internal/observability"
)

// MetricsSnapshot serves the in-process counters as JSON. Debug only, not
// meant for scraping.
func MetricsSnapshot(c *gin.Context) {
	m := observability.Current()
	if m == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}
