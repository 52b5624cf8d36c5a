package shared

import (
	"time"

	"github.com/tidwall/gjson"
)

const (
	// millisecondFloor is the smallest timestamp treated as millisecond
	// resolution. Upstream candles arrive in either second or millisecond
	// epochs and must be normalized to seconds before use.
	millisecondFloor = int64(1e12)

	// candleTupleSize is the number of elements in an upstream candle tuple.
	candleTupleSize = 6
)

// Candlestick represents a unit candlestick for a symbol.
type Candlestick struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// NormalizeTimestamp normalizes the provided epoch timestamp to second
// resolution. Normalizing a second resolution timestamp is a no-op.
func NormalizeTimestamp(timestamp int64) int64 {
	if timestamp >= millisecondFloor {
		return timestamp / 1000
	}

	return timestamp
}

// ParseCandlesticks parses candlesticks from the provided json candle tuples
// of the form [timestamp, open, high, low, close, volume]. Candle ordering is
// trusted as provided by the upstream source. Short tuples are skipped.
func ParseCandlesticks(data []gjson.Result) []Candlestick {
	candles := make([]Candlestick, 0, len(data))

	for idx := range data {
		tuple := data[idx].Array()
		if len(tuple) < candleTupleSize {
			continue
		}

		timestamp := NormalizeTimestamp(tuple[0].Int())

		candles = append(candles, Candlestick{
			Date:   time.Unix(timestamp, 0).In(IST),
			Open:   tuple[1].Float(),
			High:   tuple[2].Float(),
			Low:    tuple[3].Float(),
			Close:  tuple[4].Float(),
			Volume: tuple[5].Float(),
		})
	}

	return candles
}
