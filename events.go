package main

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/models"
)

// changeFeedHandler streams committed writes to the dashboard over SSE.
// Each message is the JSON change event; a comment ping every 30s keeps
// proxies from closing the idle connection.
func changeFeedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		sub := config.SubscribeRedis(c.Request.Context(), models.ChangeFeedChannel)
		if sub == nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		msgCh := sub.Channel()
		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return false
				}
				c.SSEvent("change", msg.Payload)
				return true
			case <-ping.C:
				_, err := w.Write([]byte(": ping\n\n"))
				return err == nil
			case <-c.Request.Context().Done():
				return false
			}
		})

		logger.Debug("change feed client disconnected")
	}
}
