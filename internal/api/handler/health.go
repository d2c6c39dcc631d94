package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is set at build time with -ldflags "-X .../handler.Version=..."
var Version = "1.0.0"

// Health reports that the server is up
// GET /
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "TalkToJesus API",
		"version":   Version,
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
