package engine

import (
	"sort"
)

// Outcome represents the evaluated outcome of one signal, merged with the
// signal and its derived prices.
type Outcome struct {
	Symbol   string  `json:"symbol"`
	Open     float64 `json:"open"`
	Qty      float64 `json:"qty"`
	Entry    float64 `json:"entry"`
	Target   float64 `json:"target"`
	StopLoss float64 `json:"stoploss"`
	Result
}

// Summary represents the counters summarizing one evaluation run.
type Summary struct {
	Entered      int `json:"entered"`
	TargetHit    int `json:"target_hit"`
	StoplossHit  int `json:"stoploss_hit"`
	MarketClosed int `json:"market_closed"`
	NotEntered   int `json:"not_entered"`
}

// Report represents the categorized outcomes and summary counters for one
// evaluation run. Every evaluated symbol appears in exactly one bucket.
type Report struct {
	Summary     Summary   `json:"summary"`
	TargetHit   []Outcome `json:"target_hit"`
	StoplossHit []Outcome `json:"stoploss_hit"`
	Open        []Outcome `json:"open"`
	NotEntered  []Outcome `json:"not_entered"`
}

// Aggregate folds the provided symbol outcomes into categorized buckets and
// summary counters. It reclassifies, it recomputes nothing. Positions that
// entered and were force closed at session end share the open bucket with
// positions still entered at the end of the scan.
func Aggregate(outcomes map[string]Outcome) *Report {
	report := &Report{
		TargetHit:   []Outcome{},
		StoplossHit: []Outcome{},
		Open:        []Outcome{},
		NotEntered:  []Outcome{},
	}

	symbols := make([]string, 0, len(outcomes))
	for symbol := range outcomes {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		outcome := outcomes[symbol]

		switch outcome.Status {
		case ExitedTarget:
			report.Summary.Entered++
			report.Summary.TargetHit++
			report.TargetHit = append(report.TargetHit, outcome)
		case ExitedStopLoss:
			report.Summary.Entered++
			report.Summary.StoplossHit++
			report.StoplossHit = append(report.StoplossHit, outcome)
		case ExitedMarketClose:
			report.Summary.Entered++
			report.Summary.MarketClosed++
			report.Open = append(report.Open, outcome)
		case Entered:
			report.Summary.Entered++
			report.Open = append(report.Open, outcome)
		default:
			report.Summary.NotEntered++
			report.NotEntered = append(report.NotEntered, outcome)
		}
	}

	return report
}
