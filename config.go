package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// defaultListenAddr is the default http listen address.
	defaultListenAddr = ":5000"
	// defaultUniverseFile is the default symbol universe filepath.
	defaultUniverseFile = "companies_list.json"
	// defaultCandleURL is the charting service base url (NSE cash segment).
	defaultCandleURL = "https://groww.in/v1/api/charting_service/v2/chart/delayed/exchange/NSE/segment/CASH"
	// defaultSignalsURL is the signal provider endpoint.
	defaultSignalsURL = "https://project-get-entry.vercel.app/api/signals"
	// defaultShardCount is the default number of universe shards.
	defaultShardCount = 2
	// defaultShardNumber is the default shard served by this worker.
	defaultShardNumber = 1
)

// Config is the configuration struct for the service.
type Config struct {
	// ListenAddr is the http listen address.
	ListenAddr string
	// UniverseFile is the filepath to the symbol universe file.
	UniverseFile string
	// CandleURL is the upstream charting service base url.
	CandleURL string
	// SignalsURL is the upstream signal provider endpoint.
	SignalsURL string
	// ShardCount is the number of horizontal universe shards.
	ShardCount int
	// ShardNumber is the one-based universe shard served by this worker.
	ShardNumber int

	registeredFlags map[string]bool
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.ListenAddr == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if cfg.UniverseFile == "" {
		errs = errors.Join(errs, fmt.Errorf("universe filepath cannot be an empty string"))
	}
	if cfg.CandleURL == "" {
		errs = errors.Join(errs, fmt.Errorf("candle url cannot be an empty string"))
	}
	if cfg.SignalsURL == "" {
		errs = errors.Join(errs, fmt.Errorf("signals url cannot be an empty string"))
	}
	if cfg.ShardCount < 1 {
		errs = errors.Join(errs, fmt.Errorf("shard count must be at least 1"))
	}
	if cfg.ShardNumber < 1 || cfg.ShardNumber > cfg.ShardCount {
		errs = errors.Join(errs, fmt.Errorf("shard number must be between 1 and the shard count"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// applyDefaults fills unset config fields with their defaults.
func (cfg *Config) applyDefaults() {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.UniverseFile == "" {
		cfg.UniverseFile = defaultUniverseFile
	}
	if cfg.CandleURL == "" {
		cfg.CandleURL = defaultCandleURL
	}
	if cfg.SignalsURL == "" {
		cfg.SignalsURL = defaultSignalsURL
	}
	if cfg.ShardCount == 0 {
		cfg.ShardCount = defaultShardCount
	}
	if cfg.ShardNumber == 0 {
		cfg.ShardNumber = defaultShardNumber
	}
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("listenaddr", &cfg.ListenAddr, "the http listen address")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("universefile", &cfg.UniverseFile, "the symbol universe filepath")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("candleurl", &cfg.CandleURL, "the charting service base url")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("signalsurl", &cfg.SignalsURL, "the signal provider endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("shardcount", &cfg.ShardCount, "the number of universe shards")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("shardnum", &cfg.ShardNumber, "the universe shard served by this worker")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.applyDefaults()

	return cfg.Validate()
}
