package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"github.com/kiranbh/verdict/shared"
)

// newTestVerdict creates a verdict service backed by httptest upstreams and a
// temporary universe file.
func newTestVerdict(t *testing.T, universe string, candleHandler http.HandlerFunc, signalHandler http.HandlerFunc) *Verdict {
	t.Helper()

	candleSvr := httptest.NewServer(candleHandler)
	t.Cleanup(candleSvr.Close)

	signalSvr := httptest.NewServer(signalHandler)
	t.Cleanup(signalSvr.Close)

	universePath := filepath.Join(t.TempDir(), "companies_list.json")
	err := os.WriteFile(universePath, []byte(universe), 0o644)
	assert.NoError(t, err)

	v, err := NewVerdict(&VerdictConfig{
		ListenAddr:       ":0",
		UniverseFilePath: universePath,
		CandleURL:        candleSvr.URL,
		SignalsURL:       signalSvr.URL,
		ShardCount:       1,
		ShardNumber:      1,
		Cancel:           func() {},
	})
	assert.NoError(t, err)

	return v
}

func sessionCandles(symbol string) string {
	entered := time.Date(2024, 1, 15, 9, 30, 0, 0, shared.IST).Unix()

	switch symbol {
	case "SBIN":
		// Breaks out and reaches the target within one candle.
		return fmt.Sprintf(`{"candles":[[%d,100,107,102,106,5000]]}`, entered)
	case "TCS":
		// Breaks out then trades through the stoploss.
		return fmt.Sprintf(`{"candles":[[%d,200,207,185,190,3000]]}`, entered)
	default:
		return `{"candles":[]}`
	}
}

func sessionCandleHandler(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	symbol := segments[len(segments)-1]

	if symbol == "FAILED" {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	fmt.Fprint(w, sessionCandles(symbol))
}

func sessionSignalHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `{"data":[{"symbol":"SBIN","open":100,"qty":10,"stoploss":95},`+
		`{"symbol":"TCS","open":200,"qty":5,"stoploss":190},`+
		`{"symbol":"FAILED","open":50,"qty":1,"stoploss":48}]}`)
}

func TestVerdictConfigValidate(t *testing.T) {
	cfg := &VerdictConfig{
		ListenAddr:       ":5000",
		UniverseFilePath: "companies_list.json",
		CandleURL:        "https://charting.example.com/v1/chart",
		SignalsURL:       "https://signals.example.com/api/today",
		ShardCount:       2,
		ShardNumber:      1,
		Cancel:           func() {},
	}

	// Ensure a fully specified config validates.
	assert.NoError(t, cfg.Validate())

	// Ensure missing inputs are rejected.
	bad := *cfg
	bad.ListenAddr = ""
	bad.ShardNumber = 0
	bad.Cancel = nil
	assert.Error(t, bad.Validate())
}

func TestAnalyzeSignals(t *testing.T) {
	v := newTestVerdict(t, `["SBIN__State Bank of India","TCS__Tata Consultancy Services"]`,
		sessionCandleHandler, sessionSignalHandler)

	report, err := v.AnalyzeSignals(context.Background(), &AnalyzeParams{
		TradeDate:       "2024-01-15",
		BreakoutPercent: 3,
		ProfitPercent:   3,
	})
	assert.NoError(t, err)

	// Ensure every signal is evaluated, including the symbol whose candle
	// fetch failed upstream.
	assert.Equal(t, report.Count, 3)
	assert.True(t, report.RunID != "")

	// Ensure outcomes land in their buckets.
	assert.Equal(t, report.Summary.Entered, 2)
	assert.Equal(t, report.Summary.TargetHit, 1)
	assert.Equal(t, report.Summary.StoplossHit, 1)
	assert.Equal(t, report.Summary.NotEntered, 1)

	assert.Equal(t, len(report.TargetHit), 1)
	assert.Equal(t, report.TargetHit[0].Symbol, "SBIN")
	assert.Equal(t, report.TargetHit[0].PNL, 30.9)

	assert.Equal(t, len(report.StoplossHit), 1)
	assert.Equal(t, report.StoplossHit[0].Symbol, "TCS")

	assert.Equal(t, len(report.NotEntered), 1)
	assert.Equal(t, report.NotEntered[0].Symbol, "FAILED")
}

func TestAnalyzeSignalsEmptySet(t *testing.T) {
	v := newTestVerdict(t, `["SBIN__State Bank of India"]`,
		sessionCandleHandler,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[]}`)
		})

	// Ensure an empty signal set yields a valid zero length report.
	report, err := v.AnalyzeSignals(context.Background(), &AnalyzeParams{
		TradeDate:       "2024-01-15",
		BreakoutPercent: 3,
		ProfitPercent:   3,
	})
	assert.NoError(t, err)
	assert.Equal(t, report.Count, 0)
	assert.Equal(t, report.Summary.Entered, 0)
}

func TestAnalyzeSignalsInvalidWindow(t *testing.T) {
	v := newTestVerdict(t, `["SBIN__State Bank of India"]`,
		sessionCandleHandler, sessionSignalHandler)

	// Ensure an unparseable trade date fails the run.
	_, err := v.AnalyzeSignals(context.Background(), &AnalyzeParams{
		TradeDate:       "15-01-2024",
		BreakoutPercent: 3,
		ProfitPercent:   3,
	})
	assert.Error(t, err)
}

func TestLiveCandles(t *testing.T) {
	candleTimes := []time.Time{
		time.Date(2024, 1, 15, 9, 30, 0, 0, shared.IST),
		time.Date(2024, 1, 15, 9, 33, 0, 0, shared.IST),
		time.Date(2024, 1, 15, 9, 36, 0, 0, shared.IST),
	}

	v := newTestVerdict(t, `["SBIN__State Bank of India","TCS__Tata Consultancy Services"]`,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"candles":[[%d,100,104,99,103,5000],[%d,103,106,102,105,4200],[%d,105,108,104,107,3900]]}`,
				candleTimes[0].Unix(), candleTimes[1].Unix(), candleTimes[2].Unix())
		},
		sessionSignalHandler)

	// Ensure the full batch keys every shard symbol with all candles.
	batch, err := v.LiveCandles(context.Background(), &CandleParams{TradeDate: "2024-01-15"})
	assert.NoError(t, err)
	assert.Equal(t, batch.Mode, "full")
	assert.Equal(t, batch.ShardNumber, 1)
	assert.Equal(t, batch.Count, 2)
	assert.Equal(t, len(batch.Data["SBIN"]), 3)
	assert.Equal(t, len(batch.Data["TCS"]), 3)
	assert.Equal(t, batch.StartTime, "09:30:00")
	assert.Equal(t, batch.EndTime, "09:36:00")

	// Ensure latest mode trims each symbol to the trailing window.
	batch, err = v.LiveCandles(context.Background(), &CandleParams{TradeDate: "2024-01-15", Latest: true})
	assert.NoError(t, err)
	assert.Equal(t, batch.Mode, "latest")
	assert.Equal(t, len(batch.Data["SBIN"]), 1)
	assert.Equal(t, batch.Data["SBIN"][0].Close, float64(107))
	assert.Equal(t, batch.StartTime, "09:36:00")
	assert.Equal(t, batch.EndTime, "09:36:00")
}

func TestCandleTimeRangeEmpty(t *testing.T) {
	// Ensure no candles yield empty range strings.
	start, end := candleTimeRange(map[string][]shared.Candlestick{"SBIN": {}})
	assert.Equal(t, start, "")
	assert.Equal(t, end, "")
}
