package router

import (
	"github.com/gin-gonic/gin"

	"github.com/intraday-pulse/pulse/internal/server/handler"
)

func registerMarketRoutes(router *gin.RouterGroup, marketHandler *handler.MarketHandler) {
	market := router.Group("/market")
	{
		market.GET("/latest", marketHandler.GetLatest)
		market.GET("/history", marketHandler.GetHistory)
		market.GET("/ohlc", marketHandler.GetOHLC)
		market.GET("/status", marketHandler.GetStatus)
	}
}
