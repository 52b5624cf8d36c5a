// Package universe loads and shards the static symbol universe file.
package universe

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// symbolSeparator splits a universe entry into symbol and company name.
	symbolSeparator = "__"

	// reloadTime is the daily pre-open universe reload time (IST).
	reloadTime = "08:45"
)

// Config represents the configuration for the symbol universe.
type Config struct {
	// FilePath is the filepath to the universe file.
	FilePath string
	// JobScheduler is the scheduler for the daily reload job.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.FilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("universe filepath cannot be an empty string"))
	}
	if cfg.JobScheduler == nil {
		errs = errors.Join(errs, fmt.Errorf("job scheduler cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Universe represents the symbol universe. Entries are static reference data,
// refreshed daily before session open, never mutated by evaluations.
type Universe struct {
	cfg        *Config
	entries    []string
	entriesMtx sync.RWMutex
}

// NewUniverse initializes the symbol universe and schedules its daily reload.
func NewUniverse(cfg *Config) (*Universe, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	u := &Universe{cfg: cfg}

	err = u.Reload()
	if err != nil {
		return nil, err
	}

	_, err = cfg.JobScheduler.Every(1).Day().At(reloadTime).Do(func() {
		rErr := u.Reload()
		if rErr != nil {
			cfg.Logger.Error().Msgf("reloading universe: %v", rErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling universe reload: %w", err)
	}

	return u, nil
}

// Reload reloads the universe entries from the configured file.
func (u *Universe) Reload() error {
	readb, err := os.ReadFile(u.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("reading universe from file with path '%s': %w", u.cfg.FilePath, err)
	}

	data := gjson.ParseBytes(readb).Array()
	entries := make([]string, 0, len(data))
	for idx := range data {
		entries = append(entries, data[idx].String())
	}

	u.entriesMtx.Lock()
	u.entries = entries
	u.entriesMtx.Unlock()

	return nil
}

// symbolOf extracts the ticker symbol from a universe entry.
func symbolOf(entry string) string {
	symbol, _, _ := strings.Cut(entry, symbolSeparator)
	return strings.TrimSpace(symbol)
}

// Symbols returns the deduplicated, sorted ticker symbols of the universe.
// Entries lacking the symbol separator are skipped.
func (u *Universe) Symbols() []string {
	u.entriesMtx.RLock()
	defer u.entriesMtx.RUnlock()

	seen := make(map[string]struct{}, len(u.entries))
	symbols := make([]string, 0, len(u.entries))

	for _, entry := range u.entries {
		if !strings.Contains(entry, symbolSeparator) {
			continue
		}

		symbol := symbolOf(entry)
		if _, ok := seen[symbol]; ok {
			continue
		}

		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Shard returns the ticker symbols of one contiguous universe shard. Shards
// are fixed size slices of the entry list selected by the one-based shard
// number, with the shard number clamped to the last available shard.
func (u *Universe) Shard(shardCount int, shardNumber int) []string {
	u.entriesMtx.RLock()
	defer u.entriesMtx.RUnlock()

	total := len(u.entries)
	if total == 0 {
		return []string{}
	}

	if shardCount < 1 {
		shardCount = 1
	}
	shardSize := total / shardCount
	if shardSize < 1 {
		shardSize = 1
	}

	maxShard := (total + shardSize - 1) / shardSize
	if shardNumber > maxShard {
		shardNumber = maxShard
	}
	if shardNumber < 1 {
		shardNumber = 1
	}

	start := (shardNumber - 1) * shardSize
	end := start + shardSize
	if end > total {
		end = total
	}

	symbols := make([]string, 0, end-start)
	for _, entry := range u.entries[start:end] {
		symbols = append(symbols, symbolOf(entry))
	}

	return symbols
}
