package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kiranbh/verdict/shared"
	"github.com/tidwall/gjson"
)

// SignalClientConfig represents the configuration for the signal client.
type SignalClientConfig struct {
	// URL is the signal provider endpoint.
	URL string
	// HTTPClient is the http client used for requests.
	HTTPClient *http.Client
}

// Validate asserts the config has sane inputs.
func (cfg *SignalClientConfig) Validate() error {
	var errs error

	if cfg.URL == "" {
		errs = errors.Join(errs, fmt.Errorf("signals url cannot be an empty string"))
	}
	if cfg.HTTPClient == nil {
		errs = errors.Join(errs, fmt.Errorf("http client cannot be nil"))
	}

	return errs
}

// SignalClient represents the upstream signal provider client.
type SignalClient struct {
	cfg *SignalClientConfig
}

// Ensure the signal client implements the SignalFetcher interface.
var _ shared.SignalFetcher = (*SignalClient)(nil)

// NewSignalClient initializes a new signal client.
func NewSignalClient(cfg *SignalClientConfig) (*SignalClient, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &SignalClient{cfg: cfg}, nil
}

// FetchSignals fetches the current list of trade signals. Malformed signal
// records surface as errors wrapping shared.ErrMalformedSignal.
func (c *SignalClient) FetchSignals(ctx context.Context) ([]shared.Signal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating signal request: %w", err)
	}

	req.Header.Set("accept", "application/json, text/plain, */*")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching signals: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching signals: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading signal response body: %w", err)
	}

	data := gjson.GetBytes(body, "data").Array()

	return shared.ParseSignals(data)
}
