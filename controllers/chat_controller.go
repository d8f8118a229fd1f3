package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tripplekay/KayCutts/kai"
	"github.com/tripplekay/KayCutts/utils"
)

// POST /api/kai-chat (also mounted at /chat for older clients)
func KaiChat(c *gin.Context) {
	var req struct {
		Message string        `json:"message"`
		History []kai.Message `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		utils.BadRequest(c, "message is required", nil)
		return
	}

	if deps.Kai == nil || !deps.Kai.Configured() {
		utils.LogError("Kai chat requested but assistant is not configured")
		utils.ServiceUnavailable(c, "Kai is taking a break right now. Please try again later or book directly!")
		return
	}

	reply, err := deps.Kai.Chat(c.Request.Context(), req.Message, req.History)
	if err != nil {
		var apiErr *kai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case "insufficient_quota", "invalid_api_key":
				utils.LogError("Kai upstream auth/quota problem: %v", apiErr)
				utils.ServiceUnavailable(c, "Kai is taking a break right now. Please try again later or book directly!")
				return
			}
			utils.LogError("Kai upstream error: %v", apiErr)
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"message": "Kai could not come up with a reply. Please try again.",
			})
			return
		}
		if errors.Is(err, kai.ErrEmptyResponse) {
			utils.LogError("Kai returned an empty reply")
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"message": "Kai could not come up with a reply. Please try again.",
			})
			return
		}
		utils.LogError("Kai chat failed: %v", err)
		utils.ServiceUnavailable(c, "Kai is taking a break right now. Please try again later or book directly!")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reply": reply})
}
