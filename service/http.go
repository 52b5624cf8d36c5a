package service

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/kiranbh/verdict/shared"
)

// newRouter creates the http router for the service. Responses are gzip
// compressed and the api routes allow cross origin reads.
func (v *Verdict) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", v.handleHome)

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true

	api := router.Group("/api")
	api.Use(cors.New(corsCfg))
	api.GET("/symbols", v.handleSymbols)
	api.GET("/live-candles", v.handleLiveCandles)
	api.GET("/analyze-signals", v.handleAnalyzeSignals)

	return router
}

// handleHome reports service health.
func (v *Verdict) handleHome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "server running",
		"time":    shared.ISTTime().Format(shared.TradeDateLayout + " " + shared.ClockLayout),
	})
}

// handleSymbols reports the full symbol universe.
func (v *Verdict) handleSymbols(c *gin.Context) {
	symbols := v.universe.Symbols()

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"count":   len(symbols),
		"symbols": symbols,
	})
}

// handleLiveCandles reports candles for this worker's universe shard.
func (v *Verdict) handleLiveCandles(c *gin.Context) {
	params := &CandleParams{
		TradeDate: c.Query("trade_date"),
		Latest:    strings.EqualFold(c.Query("latest"), "true"),
	}

	batch, err := v.LiveCandles(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// handleAnalyzeSignals evaluates the current trade signals.
//
// Per symbol upstream failures never surface as transport error codes here,
// they are absorbed by the fetch layer into empty candle sequences.
func (v *Verdict) handleAnalyzeSignals(c *gin.Context) {
	breakoutPercent, err := strconv.ParseFloat(c.Query("breakout_pct"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid breakout_pct"})
		return
	}

	profitPercent, err := strconv.ParseFloat(c.Query("profit_pct"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid profit_pct"})
		return
	}

	params := &AnalyzeParams{
		TradeDate:       c.Query("trade_date"),
		EntryAfter:      c.Query("entry_after"),
		EndBefore:       c.Query("end_before"),
		BreakoutPercent: breakoutPercent,
		ProfitPercent:   profitPercent,
	}

	report, err := v.AnalyzeSignals(c.Request.Context(), params)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, shared.ErrMalformedSignal) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"run_id":           report.RunID,
		"count":            report.Count,
		"response_time_ms": report.ResponseTimeMs,
		"summary":          report.Summary,
		"target_hit":       report.TargetHit,
		"stoploss_hit":     report.StoplossHit,
		"open":             report.Open,
		"not_entered":      report.NotEntered,
	})
}
