package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"github.com/kiranbh/verdict/shared"
)

func testWindow() *shared.TimeWindow {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, shared.IST)
	return &shared.TimeWindow{
		Start:        start,
		End:          time.Date(2024, 1, 15, 15, 30, 0, 0, shared.IST),
		EntryAfter:   shared.TimeOfDay{Hour: 9, Minute: 15},
		SessionClose: shared.TimeOfDay{Hour: 15, Minute: 30},
	}
}

func TestCandleClientConfigValidate(t *testing.T) {
	baseURL := "https://charting.example.com/v1/chart"
	interval := 3
	httpc := &http.Client{}

	tests := []struct {
		name            string
		baseURL         string
		intervalMinutes int
		httpClient      *http.Client
		wantErr         bool
	}{
		{
			name:            "valid config",
			baseURL:         baseURL,
			intervalMinutes: interval,
			httpClient:      httpc,
			wantErr:         false,
		},
		{
			name:            "no base url",
			baseURL:         "",
			intervalMinutes: interval,
			httpClient:      httpc,
			wantErr:         true,
		},
		{
			name:            "no interval",
			baseURL:         baseURL,
			intervalMinutes: 0,
			httpClient:      httpc,
			wantErr:         true,
		},
		{
			name:            "no http client",
			baseURL:         baseURL,
			intervalMinutes: interval,
			httpClient:      nil,
			wantErr:         true,
		},
	}

	for _, test := range tests {
		cfg := &CandleClientConfig{
			BaseURL:         test.baseURL,
			IntervalMinutes: test.intervalMinutes,
			HTTPClient:      test.httpClient,
		}

		err := cfg.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("%s: error = %v, wantErr %v", test.name, err, test.wantErr)
		}
	}
}

func TestFormURL(t *testing.T) {
	window := testWindow()

	client, err := NewCandleClient(&CandleClientConfig{
		BaseURL:         "https://charting.example.com/v1/chart",
		IntervalMinutes: 3,
		HTTPClient:      &http.Client{},
	})
	assert.NoError(t, err)

	// Ensure the candle url carries the symbol path and window parameters.
	url := client.formURL("SBIN", window)
	assert.True(t, strings.HasPrefix(url, "https://charting.example.com/v1/chart/SBIN?"))
	assert.True(t, strings.Contains(url, "intervalInMinutes=3"))
	assert.True(t, strings.Contains(url, fmt.Sprintf("startTimeInMillis=%d", window.Start.UnixMilli())))
	assert.True(t, strings.Contains(url, fmt.Sprintf("endTimeInMillis=%d", window.End.UnixMilli())))
}

func TestFetchCandles(t *testing.T) {
	window := testWindow()

	first := time.Date(2024, 1, 15, 9, 30, 0, 0, shared.IST).Unix()
	second := time.Date(2024, 1, 15, 9, 33, 0, 0, shared.IST).Unix()

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ensure the request identifies itself as the charting web client.
		assert.Equal(t, r.Header.Get("x-app-id"), "growwWeb")
		assert.Equal(t, r.Header.Get("x-platform"), "web")
		assert.Equal(t, r.Header.Get("x-device-type"), "charts")

		fmt.Fprintf(w, `{"candles":[[%d,100,104,99,103,5000],[%d,103,106,102,105,4200]]}`,
			first, second)
	}))
	defer svr.Close()

	client, err := NewCandleClient(&CandleClientConfig{
		BaseURL:         svr.URL,
		IntervalMinutes: 3,
		HTTPClient:      svr.Client(),
	})
	assert.NoError(t, err)

	// Ensure candle tuples parse into candlesticks.
	candles, err := client.FetchCandles(context.Background(), "SBIN", window)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[0].Close, float64(103))
	assert.Equal(t, candles[1].High, float64(106))
	assert.Equal(t, shared.TimeOfDayOf(candles[1].Date).String(), "09:33:00")
}

func TestFetchCandlesUpstreamError(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer svr.Close()

	client, err := NewCandleClient(&CandleClientConfig{
		BaseURL:         svr.URL,
		IntervalMinutes: 3,
		HTTPClient:      svr.Client(),
	})
	assert.NoError(t, err)

	// Ensure a non-ok upstream status surfaces as an error.
	_, err = client.FetchCandles(context.Background(), "SBIN", testWindow())
	assert.Error(t, err)
}
