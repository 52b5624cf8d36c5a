// Package engine evaluates trade signals against intraday candle sequences.
// Evaluation is pure and deterministic, it performs no i/o.
package engine

import (
	"encoding/json"
	"math"

	"github.com/kiranbh/verdict/shared"
)

// Status represents the outcome of an evaluated trade signal.
type Status int

const (
	NotEntered Status = iota
	Entered
	ExitedTarget
	ExitedStopLoss
	ExitedMarketClose
)

// String stringifies the provided status.
func (s Status) String() string {
	switch s {
	case NotEntered:
		return "NOT_ENTERED"
	case Entered:
		return "ENTERED"
	case ExitedTarget:
		return "EXITED_TARGET"
	case ExitedStopLoss:
		return "EXITED_SL"
	case ExitedMarketClose:
		return "EXITED_MARKET_CLOSE"
	default:
		return "unknown"
	}
}

// MarshalJSON marshals the status to its wire name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Result represents the outcome of evaluating one symbol's candle sequence.
type Result struct {
	Status      Status  `json:"status"`
	EntryTime   string  `json:"entry_time,omitempty"`
	ExitTime    string  `json:"exit_time,omitempty"`
	ExitPrice   float64 `json:"exit_ltp,omitempty"`
	PNL         float64 `json:"pnl,omitempty"`
	ForcedClose bool    `json:"forced_close,omitempty"`
}

// roundTwo rounds the provided value to two decimal places.
func roundTwo(value float64) float64 {
	return math.Round(value*100) / 100
}

// Evaluate scans the provided candle sequence in ascending timestamp order and
// derives the trade outcome for the plan.
//
// An entry is recognized on the first candle at or after the entry after time
// whose high reaches the entry price. Once entered, the same candle is also
// checked for exits, target before stoploss when both conditions hold on one
// candle. A candle past the end before cutoff ends the scan without
// contributing anything, including its close. A position still open when the
// scan ends is force closed at the last observed close, timed at session
// close.
func Evaluate(candles []shared.Candlestick, plan shared.TradePlan) Result {
	var entered bool
	var entryTime string
	var lastClose float64
	var observedClose bool

	for idx := range candles {
		candle := &candles[idx]
		clock := shared.TimeOfDayOf(candle.Date)

		if plan.HasEndBefore && clock.After(plan.EndBefore) {
			break
		}

		lastClose = candle.Close
		observedClose = true

		if !entered && !clock.Before(plan.EntryAfter) && candle.High >= plan.Entry {
			entered = true
			entryTime = clock.String()
		}

		if entered {
			if candle.High >= plan.Target {
				return Result{
					Status:    ExitedTarget,
					EntryTime: entryTime,
					ExitTime:  clock.String(),
					ExitPrice: plan.Target,
					PNL:       roundTwo((plan.Target - plan.Entry) * plan.Qty),
				}
			}

			if candle.Low <= plan.StopLoss {
				return Result{
					Status:    ExitedStopLoss,
					EntryTime: entryTime,
					ExitTime:  clock.String(),
					ExitPrice: plan.StopLoss,
					PNL:       roundTwo((plan.StopLoss - plan.Entry) * plan.Qty),
				}
			}
		}
	}

	if entered && observedClose {
		return Result{
			Status:      ExitedMarketClose,
			EntryTime:   entryTime,
			ExitTime:    plan.SessionClose.String(),
			ExitPrice:   lastClose,
			PNL:         roundTwo((lastClose - plan.Entry) * plan.Qty),
			ForcedClose: true,
		}
	}

	if entered {
		return Result{Status: Entered, EntryTime: entryTime}
	}

	return Result{Status: NotEntered}
}
