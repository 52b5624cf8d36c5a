package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kiranbh/verdict/shared"
	"github.com/tidwall/gjson"
)

const (
	// IntervalMinutes is the fixed candle interval granularity.
	IntervalMinutes = 3
	// RequestTimeout is the bounded timeout for one upstream request.
	RequestTimeout = time.Second * 20
)

// CandleClientConfig represents the configuration for the candle client.
type CandleClientConfig struct {
	// BaseURL is the charting service base url.
	BaseURL string
	// IntervalMinutes is the candle interval granularity.
	IntervalMinutes int
	// HTTPClient is the http client used for requests. Sharing one client
	// across a batch scopes the connection pool to that batch.
	HTTPClient *http.Client
}

// Validate asserts the config has sane inputs.
func (cfg *CandleClientConfig) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("candle base url cannot be an empty string"))
	}
	if cfg.IntervalMinutes <= 0 {
		errs = errors.Join(errs, fmt.Errorf("candle interval must be positive"))
	}
	if cfg.HTTPClient == nil {
		errs = errors.Join(errs, fmt.Errorf("http client cannot be nil"))
	}

	return errs
}

// CandleClient represents the upstream charting service client.
type CandleClient struct {
	cfg *CandleClientConfig
}

// Ensure the candle client implements the CandleFetcher interface.
var _ shared.CandleFetcher = (*CandleClient)(nil)

// NewCandleClient initializes a new candle client.
func NewCandleClient(cfg *CandleClientConfig) (*CandleClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &CandleClient{cfg: cfg}, nil
}

// formURL creates the full candle request url for the provided symbol.
func (c *CandleClient) formURL(symbol string, window *shared.TimeWindow) string {
	params := url.Values{}
	params.Add("intervalInMinutes", strconv.Itoa(c.cfg.IntervalMinutes))
	params.Add("startTimeInMillis", strconv.FormatInt(window.Start.UnixMilli(), 10))
	params.Add("endTimeInMillis", strconv.FormatInt(window.End.UnixMilli(), 10))

	return fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, url.PathEscape(symbol), params.Encode())
}

// FetchCandles fetches intraday candles for the symbol over the window.
func (c *CandleClient) FetchCandles(ctx context.Context, symbol string, window *shared.TimeWindow) ([]shared.Candlestick, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.formURL(symbol, window), nil)
	if err != nil {
		return nil, fmt.Errorf("creating candle request for %s: %w", symbol, err)
	}

	req.Header.Set("accept", "application/json, text/plain, */*")
	req.Header.Set("x-app-id", "growwWeb")
	req.Header.Set("x-platform", "web")
	req.Header.Set("x-device-type", "charts")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching candles for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading candle response body for %s: %w", symbol, err)
	}

	data := gjson.GetBytes(body, "candles").Array()

	return shared.ParseCandlesticks(data), nil
}
