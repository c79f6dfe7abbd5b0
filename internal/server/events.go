package server

import (
	"io"

	"github.com/gin-gonic/gin"
)

// handleCatalogEvents streams catalog updates over server-sent events. The
// subscription is torn down when the client disconnects.
func (h *httpHandler) handleCatalogEvents(c *gin.Context) {
	updates, cancel := h.reader.Dispatcher().Subscribe(c.Request.Context())
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case update, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent(string(update.Kind), update)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
