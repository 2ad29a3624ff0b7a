package router

import (
	"github.com/gin-gonic/gin"

	"github.com/intraday-pulse/pulse/internal/server/handler"
)

func registerChainRoutes(router *gin.RouterGroup, chainHandler *handler.ChainHandler) {
	chain := router.Group("/optionchain")
	{
		chain.GET("/latest", chainHandler.GetLatest)
		chain.GET("/history", chainHandler.GetHistory)
		chain.GET("/analysis", chainHandler.GetAnalysis)
		chain.GET("/recommendations", chainHandler.GetRecommendations)
		chain.POST("/fetch", chainHandler.PostFetch)
	}
}
