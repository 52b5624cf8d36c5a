package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kiranbh/verdict/shared"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// maxInflightRequests is the maximum number of concurrent upstream
	// requests per batch. It bounds simultaneous sockets, not cpu work.
	maxInflightRequests = 100
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// CandleURL is the charting service base url.
	CandleURL string
	// SignalsURL is the signal provider endpoint.
	SignalsURL string
	// IntervalMinutes is the candle interval granularity.
	IntervalMinutes int
	// MaxWorkers is the maximum number of concurrent upstream requests.
	MaxWorkers int
	// Timeout is the bounded timeout for one upstream request.
	Timeout time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.CandleURL == "" {
		errs = errors.Join(errs, fmt.Errorf("candle url cannot be an empty string"))
	}
	if cfg.SignalsURL == "" {
		errs = errors.Join(errs, fmt.Errorf("signals url cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager represents the concurrent fetch manager. It fans out one candle
// fetch per symbol bounded by a fixed ceiling, and absorbs per symbol fetch
// failures so one failing upstream symbol cannot fail the batch.
type Manager struct {
	cfg *ManagerConfig
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = IntervalMinutes
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = maxInflightRequests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = RequestTimeout
	}

	return &Manager{cfg: cfg}, nil
}

// newHTTPClient creates an http client whose connection pool is scoped to one
// batch invocation. The returned teardown releases the pool.
func (m *Manager) newHTTPClient() (*http.Client, func()) {
	transport := &http.Transport{
		MaxIdleConns:        m.cfg.MaxWorkers,
		MaxIdleConnsPerHost: m.cfg.MaxWorkers,
		MaxConnsPerHost:     m.cfg.MaxWorkers,
	}

	client := &http.Client{
		Timeout:   m.cfg.Timeout,
		Transport: transport,
	}

	return client, transport.CloseIdleConnections
}

// FetchBatchCandles concurrently fetches candles for the provided symbols over
// the window. Every requested symbol is keyed in the result, a failed fetch
// yields an empty candle sequence for its symbol. Results carry no ordering
// across symbols.
func (m *Manager) FetchBatchCandles(ctx context.Context, symbols []string, window *shared.TimeWindow) map[string][]shared.Candlestick {
	results := make(map[string][]shared.Candlestick, len(symbols))
	if len(symbols) == 0 {
		return results
	}

	httpc, teardown := m.newHTTPClient()
	defer teardown()

	client, err := NewCandleClient(&CandleClientConfig{
		BaseURL:         m.cfg.CandleURL,
		IntervalMinutes: m.cfg.IntervalMinutes,
		HTTPClient:      httpc,
	})
	if err != nil {
		// An unusable client fails every symbol of the batch to empty results.
		m.cfg.Logger.Error().Msgf("creating candle client: %v", err)
		for _, symbol := range symbols {
			results[symbol] = []shared.Candlestick{}
		}
		return results
	}

	var mtx sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(m.cfg.MaxWorkers)

	for idx := range symbols {
		symbol := symbols[idx]
		g.Go(func() error {
			candles, err := client.FetchCandles(ctx, symbol, window)
			if err != nil {
				m.cfg.Logger.Error().Msgf("fetching candles for %s: %v", symbol, err)
				candles = []shared.Candlestick{}
			}

			mtx.Lock()
			results[symbol] = candles
			mtx.Unlock()

			return nil
		})
	}

	// Fetch errors are absorbed above, the wait only synchronizes fan-in.
	_ = g.Wait()

	return results
}

// FetchSignalSet fetches the current trade signals keyed by symbol. Transport
// failures yield an empty set, malformed signal records propagate as a hard
// failure for the request.
func (m *Manager) FetchSignalSet(ctx context.Context) (map[string]shared.Signal, error) {
	httpc, teardown := m.newHTTPClient()
	defer teardown()

	client, err := NewSignalClient(&SignalClientConfig{
		URL:        m.cfg.SignalsURL,
		HTTPClient: httpc,
	})
	if err != nil {
		return nil, fmt.Errorf("creating signal client: %w", err)
	}

	signals, err := client.FetchSignals(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrMalformedSignal) {
			return nil, err
		}

		m.cfg.Logger.Error().Msgf("fetching signals: %v", err)
		return map[string]shared.Signal{}, nil
	}

	return KeyBySymbol(signals), nil
}

// KeyBySymbol keys the provided signals by symbol. Duplicate symbols collapse
// to the last seen signal, intentionally.
func KeyBySymbol(signals []shared.Signal) map[string]shared.Signal {
	keyed := make(map[string]shared.Signal, len(signals))
	for idx := range signals {
		keyed[signals[idx].Symbol] = signals[idx]
	}

	return keyed
}
