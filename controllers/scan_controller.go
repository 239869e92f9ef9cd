package controllers

import (
	"errors"
	"net/http"
	"sync/atomic"

	"market-scanner/services/screener"
	"market-scanner/services/strategies"

	"github.com/gin-gonic/gin"
)

// ScanController exposes the scan pipeline over HTTP.
type ScanController struct {
	screener *screener.Screener
	running  atomic.Bool
}

// NewScanController creates a scan controller.
func NewScanController(s *screener.Screener) *ScanController {
	return &ScanController{screener: s}
}

type scanRequest struct {
	Strategies   []string `json:"strategies"`
	ForceUpdate  bool     `json:"force_update"`
	SkipUpdate   bool     `json:"skip_update"`
	LookbackDays int      `json:"lookback_days"`
}

// RunScan executes the full pipeline synchronously. Only one scan runs at a
// time; a second request while one is in flight gets 409.
// POST /api/scan
func (sc *ScanController) RunScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if !sc.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a scan is already running"})
		return
	}
	defer sc.running.Store(false)

	result, err := sc.screener.RunPipeline(c.Request.Context(), req.Strategies, req.ForceUpdate, req.SkipUpdate, req.LookbackDays)
	if err != nil {
		if errors.Is(err, strategies.ErrUnknownStrategy) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateData refreshes the bar database without evaluating strategies.
// POST /api/update
func (sc *ScanController) UpdateData(c *gin.Context) {
	if !sc.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a scan is already running"})
		return
	}
	defer sc.running.Store(false)

	failures, err := sc.screener.UpdateDatabase(c.Request.Context(), nil, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "failed": failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "failed": failures})
}

// GetStatus reports store statistics and data freshness.
// GET /api/status
func (sc *ScanController) GetStatus(c *gin.Context) {
	status, err := sc.screener.DatabaseStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetStrategies lists the registered strategies.
// GET /api/strategies
func (sc *ScanController) GetStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": sc.screener.Strategies()})
}

// GetHistory returns the persisted signal history.
// GET /api/history
func (sc *ScanController) GetHistory(c *gin.Context) {
	history, err := sc.screener.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}
