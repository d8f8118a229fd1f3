package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tripplekay/KayCutts/kai"
)

func TestKaiChatRequiresMessage(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")
	router.POST("/api/kai-chat", KaiChat)

	w := doJSON(router, "POST", "/api/kai-chat", gin.H{"message": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKaiChatUnavailableWhenUnconfigured(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")
	deps.Kai = kai.NewClient("", "gpt-4o-mini")
	router.POST("/api/kai-chat", KaiChat)

	w := doJSON(router, "POST", "/api/kai-chat", gin.H{"message": "how much is a fade?"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "taking a break")
}
