package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/intraday-pulse/pulse/internal/server/service"
)

type MarketHandler struct {
	marketService *service.MarketService
}

func NewMarketHandler(marketService *service.MarketService) *MarketHandler {
	return &MarketHandler{
		marketService: marketService,
	}
}

func (h *MarketHandler) GetLatest(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")

	resp, err := h.marketService.LatestPrice(symbol)
	if err != nil {
		if errors.Is(err, service.ErrSymbolNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no live price for " + symbol})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MarketHandler) GetHistory(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")
	minutes, err := strconv.Atoi(c.DefaultQuery("minutes", "60"))
	if err != nil || minutes <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minutes must be a positive integer"})
		return
	}

	snapshots, err := h.marketService.History(symbol, minutes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "snapshots": snapshots})
}

func (h *MarketHandler) GetOHLC(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")

	snapshot, err := h.marketService.LatestOHLC(symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no snapshots for " + symbol})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *MarketHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketService.Status())
}
