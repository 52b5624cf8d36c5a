package shared

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformedSignal indicates a signal record missing required numeric
// fields. It is an input contract violation, not a recoverable fetch failure.
var ErrMalformedSignal = errors.New("malformed signal record")

// Signal represents a candidate trade instruction for a symbol.
type Signal struct {
	// Symbol uniquely keys the signal within one evaluation run.
	Symbol string `json:"symbol"`
	// Open is the session reference price used to derive the entry price.
	Open float64 `json:"open"`
	// Qty is the position size.
	Qty float64 `json:"qty"`
	// StopLoss is the exit price limiting losses.
	StopLoss float64 `json:"stoploss"`
}

// ParseSignal parses and validates a signal from the provided json record.
func ParseSignal(record gjson.Result) (Signal, error) {
	signal := Signal{
		Symbol:   record.Get("symbol").String(),
		Open:     record.Get("open").Float(),
		Qty:      record.Get("qty").Float(),
		StopLoss: record.Get("stoploss").Float(),
	}

	switch {
	case signal.Symbol == "":
		return Signal{}, fmt.Errorf("%w: missing symbol", ErrMalformedSignal)
	case signal.Open <= 0:
		return Signal{}, fmt.Errorf("%w: %s has no positive open price", ErrMalformedSignal, signal.Symbol)
	case signal.Qty <= 0:
		return Signal{}, fmt.Errorf("%w: %s has no positive quantity", ErrMalformedSignal, signal.Symbol)
	case signal.StopLoss <= 0:
		return Signal{}, fmt.Errorf("%w: %s has no positive stoploss", ErrMalformedSignal, signal.Symbol)
	}

	return signal, nil
}

// ParseSignals parses signals from the provided json records.
func ParseSignals(data []gjson.Result) ([]Signal, error) {
	signals := make([]Signal, 0, len(data))

	for idx := range data {
		signal, err := ParseSignal(data[idx])
		if err != nil {
			return nil, err
		}

		signals = append(signals, signal)
	}

	return signals, nil
}

// TradePlan represents the derived evaluation parameters for one signal.
type TradePlan struct {
	Symbol   string
	Entry    float64
	Target   float64
	StopLoss float64
	Qty      float64

	// Resolved session times for the candle scan.
	EntryAfter   TimeOfDay
	EndBefore    TimeOfDay
	HasEndBefore bool
	SessionClose TimeOfDay
}

// NewTradePlan derives the trade plan for the provided signal. The entry price
// is the breakout percentage above the signal's reference open price and the
// target price is the profit percentage above the entry price.
func NewTradePlan(signal Signal, breakoutPercent float64, profitPercent float64, window *TimeWindow) TradePlan {
	entry := signal.Open * (1 + breakoutPercent/100)
	target := entry * (1 + profitPercent/100)

	return TradePlan{
		Symbol:       signal.Symbol,
		Entry:        entry,
		Target:       target,
		StopLoss:     signal.StopLoss,
		Qty:          signal.Qty,
		EntryAfter:   window.EntryAfter,
		EndBefore:    window.EndBefore,
		HasEndBefore: window.HasEndBefore,
		SessionClose: window.SessionClose,
	}
}
