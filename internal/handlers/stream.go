package handlers

import (
	"github.com/gin-gonic/gin"
)

// streamSetup returns the delta callback for a chunked plain-text response
// together with a probe reporting whether anything was written yet. Headers
// are committed with the first delta, so a failure before that point can
// still answer with a regular JSON error.
func streamSetup(c *gin.Context) (onDelta func(delta string), wrote func() bool) {
	var started bool
	onDelta = func(delta string) {
		if delta == "" {
			return
		}
		if !started {
			c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("X-Accel-Buffering", "no")
			started = true
		}
		_, _ = c.Writer.WriteString(delta)
		c.Writer.Flush()
	}
	wrote = func() bool { return started }
	return onDelta, wrote
}
