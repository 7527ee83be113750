package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/helpdesk-api/internal/interfaces/httpserver/handlers"
)

func registerCaseRoutes(router gin.IRoutes, handler *handlers.CaseHandler) {
	router.POST("/cases", handler.Create)
	router.GET("/cases/:case_id", handler.Get)
	router.PATCH("/cases/:case_id/status", handler.UpdateStatus)
	router.GET("/channels/:channel_id/cases", handler.ListByChannel)
}

func registerMessageRoutes(router gin.IRoutes, handler *handlers.MessageHandler) {
	router.POST("/messages/:message_id/analysis", handler.SetAnalysis)
}
