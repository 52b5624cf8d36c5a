package shared

import (
	"fmt"
	"time"
)

const (
	// SessionTimeLayout is the format layout for parsing session times in a day.
	SessionTimeLayout = "15:04"
	// ClockLayout is the format layout for stringifying times of day.
	ClockLayout = "15:04:05"
	// TradeDateLayout is the format layout for parsing trade dates.
	TradeDateLayout = "2006-01-02"

	// Market session times (NSE cash segment) in IST.
	MarketOpen  = "09:00"
	MarketClose = "15:30"
	// DefaultEntryAfter is the post-open grace time before entries are recognized.
	DefaultEntryAfter = "09:15"

	// istOffsetSeconds is the fixed IST offset (UTC+5:30). The exchange offset
	// must hold regardless of the host's local time zone.
	istOffsetSeconds = 5*3600 + 30*60
)

// IST is the fixed exchange time zone.
var IST = time.FixedZone("IST", istOffsetSeconds)

// ISTTime returns the current time in IST.
func ISTTime() time.Time {
	return time.Now().In(IST)
}

// TimeOfDay represents a wall clock time within a trading day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses a time of day in either session time ("15:04") or
// clock ("15:04:05") layout.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse(SessionTimeLayout, value)
	if err != nil {
		parsed, err = time.Parse(ClockLayout, value)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("parsing time of day %q: %w", value, err)
		}
	}

	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute(), Second: parsed.Second()}, nil
}

// TimeOfDayOf returns the provided instant's time of day in IST.
func TimeOfDayOf(t time.Time) TimeOfDay {
	ist := t.In(IST)
	return TimeOfDay{Hour: ist.Hour(), Minute: ist.Minute(), Second: ist.Second()}
}

// seconds returns the time of day as seconds since midnight.
func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Before checks whether the provided time of day is before the other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.seconds() < other.seconds()
}

// After checks whether the provided time of day is after the other.
func (t TimeOfDay) After(other TimeOfDay) bool {
	return t.seconds() > other.seconds()
}

// String stringifies the provided time of day.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// At anchors the time of day on the provided date in IST.
func (t TimeOfDay) At(date time.Time) time.Time {
	ist := date.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), t.Hour, t.Minute, t.Second, 0, IST)
}

// SessionConfig represents the trading session parameters used to resolve
// evaluation time windows. It is immutable once constructed.
type SessionConfig struct {
	// Open is the session open time of day.
	Open TimeOfDay
	// Close is the session close time of day.
	Close TimeOfDay
	// EntryAfter is the default earliest entry time of day.
	EntryAfter TimeOfDay
}

// NewSessionConfig initializes the session configuration from the fixed
// exchange session times.
func NewSessionConfig() (*SessionConfig, error) {
	open, err := ParseTimeOfDay(MarketOpen)
	if err != nil {
		return nil, fmt.Errorf("parsing session open: %w", err)
	}

	sessionClose, err := ParseTimeOfDay(MarketClose)
	if err != nil {
		return nil, fmt.Errorf("parsing session close: %w", err)
	}

	entryAfter, err := ParseTimeOfDay(DefaultEntryAfter)
	if err != nil {
		return nil, fmt.Errorf("parsing default entry after time: %w", err)
	}

	cfg := &SessionConfig{
		Open:       open,
		Close:      sessionClose,
		EntryAfter: entryAfter,
	}

	return cfg, nil
}

// TimeWindow represents an absolute evaluation window bounded by the trading
// session, along with the resolved times of day for the evaluation engine.
type TimeWindow struct {
	// Start is the absolute window start instant.
	Start time.Time
	// End is the absolute window end instant.
	End time.Time
	// EntryAfter is the earliest time of day an entry may be recognized.
	EntryAfter TimeOfDay
	// EndBefore is the latest time of day candles are evaluated.
	EndBefore TimeOfDay
	// HasEndBefore indicates whether an end before cutoff is set.
	HasEndBefore bool
	// SessionClose is the session close time of day, used for forced closes.
	SessionClose TimeOfDay
}

// ResolveTimeWindow turns an optional trade date and optional entry after and
// end before times of day into an absolute evaluation window.
//
// For the current date the window ends now, for past dates it ends at session
// close. The window starts at the session open of the provided date. When no
// date is provided the window starts at the most recent session open, which is
// the previous day's open if the current time is before today's open.
func (cfg *SessionConfig) ResolveTimeWindow(tradeDate string, entryAfter string, endBefore string, now time.Time) (*TimeWindow, error) {
	now = now.In(IST)

	window := &TimeWindow{
		EntryAfter:   cfg.EntryAfter,
		SessionClose: cfg.Close,
	}

	if entryAfter != "" {
		parsed, err := ParseTimeOfDay(entryAfter)
		if err != nil {
			return nil, fmt.Errorf("parsing entry after time: %w", err)
		}
		window.EntryAfter = parsed
	}

	if endBefore != "" {
		parsed, err := ParseTimeOfDay(endBefore)
		if err != nil {
			return nil, fmt.Errorf("parsing end before time: %w", err)
		}
		window.EndBefore = parsed
		window.HasEndBefore = true
	}

	switch {
	case tradeDate != "":
		date, err := time.ParseInLocation(TradeDateLayout, tradeDate, IST)
		if err != nil {
			return nil, fmt.Errorf("parsing trade date: %w", err)
		}

		window.Start = cfg.Open.At(date)
		if date.Year() == now.Year() && date.YearDay() == now.YearDay() {
			window.End = now
		} else {
			window.End = cfg.Close.At(date)
		}
	default:
		date := now
		if TimeOfDayOf(now).Before(cfg.Open) {
			date = now.AddDate(0, 0, -1)
		}

		window.Start = cfg.Open.At(date)
		window.End = now
	}

	return window, nil
}
