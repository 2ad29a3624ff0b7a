package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/intraday-pulse/pulse/internal/server/service"
)

type ChainHandler struct {
	chainService *service.ChainService
}

func NewChainHandler(chainService *service.ChainService) *ChainHandler {
	return &ChainHandler{
		chainService: chainService,
	}
}

func (h *ChainHandler) GetLatest(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")

	view, err := h.chainService.Latest(symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no option chain data for " + symbol})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ChainHandler) GetHistory(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	snapshots, err := h.chainService.History(symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "snapshots": snapshots})
}

func (h *ChainHandler) GetAnalysis(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")

	analysis, err := h.chainService.Analysis(symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no option chain data for " + symbol})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (h *ChainHandler) GetRecommendations(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")

	recommendations, err := h.chainService.Recommendations(symbol)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no option chain data for " + symbol})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "recommendations": recommendations})
}

func (h *ChainHandler) PostFetch(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "NIFTY")

	h.chainService.RequestFetch(symbol)
	c.JSON(http.StatusAccepted, gin.H{"symbol": symbol, "message": "fetch queued"})
}
