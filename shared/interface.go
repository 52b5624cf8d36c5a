package shared

import (
	"context"
)

// CandleFetcher defines the requirements for fetching intraday candle data.
type CandleFetcher interface {
	// FetchCandles fetches intraday candles for the symbol over the window.
	FetchCandles(ctx context.Context, symbol string, window *TimeWindow) ([]Candlestick, error)
}

// SignalFetcher defines the requirements for fetching trade signals.
type SignalFetcher interface {
	// FetchSignals fetches the current list of trade signals.
	FetchSignals(ctx context.Context) ([]Signal, error)
}
