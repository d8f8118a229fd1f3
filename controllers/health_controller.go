package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GET /health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Tripple Kay Cuts backend is running",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
