// Package service wires the fetch, engine and universe components into the
// signal evaluation service and its http surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/kiranbh/verdict/engine"
	"github.com/kiranbh/verdict/fetch"
	"github.com/kiranbh/verdict/shared"
	"github.com/kiranbh/verdict/universe"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// latestWindowMinutes is the trailing window returned in latest mode.
	latestWindowMinutes = 5

	// shutdownTimeout bounds the http server shutdown.
	shutdownTimeout = time.Second * 5
)

// VerdictConfig represents the configuration struct for the verdict service.
type VerdictConfig struct {
	// ListenAddr is the address the http server listens on.
	ListenAddr string
	// UniverseFilePath is the filepath to the symbol universe file.
	UniverseFilePath string
	// CandleURL is the upstream charting service base url.
	CandleURL string
	// SignalsURL is the upstream signal provider endpoint.
	SignalsURL string
	// ShardCount is the number of horizontal universe shards.
	ShardCount int
	// ShardNumber is the one-based shard this worker serves.
	ShardNumber int
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *VerdictConfig) Validate() error {
	var errs error

	if cfg.ListenAddr == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if cfg.UniverseFilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("universe filepath cannot be an empty string"))
	}
	if cfg.CandleURL == "" {
		errs = errors.Join(errs, fmt.Errorf("candle url cannot be an empty string"))
	}
	if cfg.SignalsURL == "" {
		errs = errors.Join(errs, fmt.Errorf("signals url cannot be an empty string"))
	}
	if cfg.ShardCount < 1 {
		errs = errors.Join(errs, fmt.Errorf("shard count must be at least 1"))
	}
	if cfg.ShardNumber < 1 {
		errs = errors.Join(errs, fmt.Errorf("shard number must be at least 1"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Verdict represents the signal evaluation service.
type Verdict struct {
	cfg          *VerdictConfig
	sessions     *shared.SessionConfig
	fetchManager *fetch.Manager
	universe     *universe.Universe
	jobScheduler *gocron.Scheduler
	server       *http.Server
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewVerdict initializes a new verdict service.
func NewVerdict(cfg *VerdictConfig) (*Verdict, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "verdict").Logger()

	sessions, err := shared.NewSessionConfig()
	if err != nil {
		return nil, fmt.Errorf("creating session config: %w", err)
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		CandleURL:  cfg.CandleURL,
		SignalsURL: cfg.SignalsURL,
		Logger:     &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	jobScheduler := gocron.NewScheduler(shared.IST)

	universeLogger := logger.With().Str("component", "universe").Logger()
	symbolUniverse, err := universe.NewUniverse(&universe.Config{
		FilePath:     cfg.UniverseFilePath,
		JobScheduler: jobScheduler,
		Logger:       &universeLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating symbol universe: %w", err)
	}

	service := &Verdict{
		cfg:          cfg,
		sessions:     sessions,
		fetchManager: fetchMgr,
		universe:     symbolUniverse,
		jobScheduler: jobScheduler,
		logger:       &logger,
	}

	service.server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: service.newRouter(),
	}

	return service, nil
}

// AnalyzeParams represents the parameters of one signal evaluation run.
type AnalyzeParams struct {
	// TradeDate is the optional target trade date.
	TradeDate string
	// EntryAfter is the optional earliest entry time of day.
	EntryAfter string
	// EndBefore is the optional evaluation cutoff time of day.
	EndBefore string
	// BreakoutPercent derives the entry price from the signal open price.
	BreakoutPercent float64
	// ProfitPercent derives the target price from the entry price.
	ProfitPercent float64
}

// AnalyzeReport represents the response of one signal evaluation run.
type AnalyzeReport struct {
	RunID          string `json:"run_id"`
	Count          int    `json:"count"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	*engine.Report
}

// AnalyzeSignals evaluates the current trade signals against intraday candles
// and aggregates their outcomes. An empty signal set yields a valid zero
// length report. All state is scoped to the run and discarded with the
// response.
func (v *Verdict) AnalyzeSignals(ctx context.Context, params *AnalyzeParams) (*AnalyzeReport, error) {
	start := time.Now()

	window, err := v.sessions.ResolveTimeWindow(params.TradeDate, params.EntryAfter, params.EndBefore, shared.ISTTime())
	if err != nil {
		return nil, fmt.Errorf("resolving evaluation window: %w", err)
	}

	v.logger.Debug().Msgf("resolved evaluation window: %s", spew.Sdump(window))

	signalSet, err := v.fetchManager.FetchSignalSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching signal set: %w", err)
	}

	symbols := make([]string, 0, len(signalSet))
	for symbol := range signalSet {
		symbols = append(symbols, symbol)
	}

	candleSets := v.fetchManager.FetchBatchCandles(ctx, symbols, window)

	outcomes := make(map[string]engine.Outcome, len(signalSet))
	for symbol, signal := range signalSet {
		plan := shared.NewTradePlan(signal, params.BreakoutPercent, params.ProfitPercent, window)
		result := engine.Evaluate(candleSets[symbol], plan)

		outcomes[symbol] = engine.Outcome{
			Symbol:   symbol,
			Open:     signal.Open,
			Qty:      signal.Qty,
			Entry:    plan.Entry,
			Target:   plan.Target,
			StopLoss: signal.StopLoss,
			Result:   result,
		}
	}

	report := &AnalyzeReport{
		RunID:          uuid.NewString(),
		Count:          len(outcomes),
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Report:         engine.Aggregate(outcomes),
	}

	return report, nil
}

// CandleParams represents the parameters of one candle batch request.
type CandleParams struct {
	// TradeDate is the optional target trade date.
	TradeDate string
	// Latest trims each symbol's candles to the trailing latest window.
	Latest bool
}

// CandleBatch represents the per symbol candle sequences of one universe
// shard.
type CandleBatch struct {
	Mode            string                          `json:"mode"`
	ShardNumber     int                             `json:"shard_no"`
	IntervalMinutes int                             `json:"interval_minutes"`
	Count           int                             `json:"count"`
	StartTime       string                          `json:"start_time,omitempty"`
	EndTime         string                          `json:"end_time,omitempty"`
	Data            map[string][]shared.Candlestick `json:"data"`
}

// LiveCandles fetches candles for this worker's universe shard over the
// session window of the trade date.
func (v *Verdict) LiveCandles(ctx context.Context, params *CandleParams) (*CandleBatch, error) {
	window, err := v.sessions.ResolveTimeWindow(params.TradeDate, "", "", shared.ISTTime())
	if err != nil {
		return nil, fmt.Errorf("resolving candle window: %w", err)
	}

	symbols := v.universe.Shard(v.cfg.ShardCount, v.cfg.ShardNumber)
	candleSets := v.fetchManager.FetchBatchCandles(ctx, symbols, window)

	batch := &CandleBatch{
		Mode:            "full",
		ShardNumber:     v.cfg.ShardNumber,
		IntervalMinutes: fetch.IntervalMinutes,
		Data:            candleSets,
	}

	if params.Latest {
		batch.Mode = "latest"

		needed := latestWindowMinutes / fetch.IntervalMinutes
		if needed < 1 {
			needed = 1
		}
		for symbol, candles := range candleSets {
			if len(candles) > needed {
				candleSets[symbol] = candles[len(candles)-needed:]
			}
		}
	}

	batch.Count = len(candleSets)
	batch.StartTime, batch.EndTime = candleTimeRange(candleSets)

	return batch, nil
}

// candleTimeRange returns the earliest and latest candle times across the
// provided candle sets as IST clock strings.
func candleTimeRange(candleSets map[string][]shared.Candlestick) (string, string) {
	var first, last time.Time

	for _, candles := range candleSets {
		for idx := range candles {
			date := candles[idx].Date
			if first.IsZero() || date.Before(first) {
				first = date
			}
			if last.IsZero() || date.After(last) {
				last = date
			}
		}
	}

	if first.IsZero() {
		return "", ""
	}

	return shared.TimeOfDayOf(first).String(), shared.TimeOfDayOf(last).String()
}

// Run handles the lifecycle processes of the verdict service.
func (v *Verdict) Run(ctx context.Context) {
	v.jobScheduler.StartAsync()
	defer v.jobScheduler.Stop()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()

		err := v.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			v.logger.Error().Msgf("http server: %v", err)
			v.cfg.Cancel()
		}
	}()

	v.logger.Info().Msgf("verdict service listening on %s", v.cfg.ListenAddr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := v.server.Shutdown(shutdownCtx)
	if err != nil {
		v.logger.Error().Msgf("shutting down http server: %v", err)
	}

	v.wg.Wait()
}
