package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intraday-pulse/pulse/internal/hub"
	"github.com/intraday-pulse/pulse/internal/server/handler"
)

type Config struct {
	MarketHandler *handler.MarketHandler
	ChainHandler  *handler.ChainHandler
	Hub           *hub.Hub
	Logger        *logrus.Logger
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": cfg.Hub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(cfg.Hub, cfg.Logger, c.Writer, c.Request)
	})

	api := router.Group("/v1/")
	registerMarketRoutes(api, cfg.MarketHandler)
	registerChainRoutes(api, cfg.ChainHandler)

	return router
}
