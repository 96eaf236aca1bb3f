package api

import (
	"io"

	"github.com/gin-gonic/gin"

	"table-orders/internal/metrics"
)

// orderFeed streams the device's reconciled order set as server-sent
// events. Each event carries the full current order list plus any
// notifications produced since the previous event.
func (s *Server) orderFeed(c *gin.Context) {
	events, detach, err := s.feeds.Watch(deviceID(c))
	if err != nil {
		s.storeFailure(c, "feed_watch_failed", err)
		return
	}
	defer detach()

	metrics.FeedOpened()
	defer metrics.FeedClosed()

	s.logger.Info("feed_opened", "Order feed opened", requestID(c), map[string]interface{}{
		"device_id": deviceID(c),
	})

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("orders", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
