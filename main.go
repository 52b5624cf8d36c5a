package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/kiranbh/verdict/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verdictCfg := service.VerdictConfig{
		ListenAddr:       cfg.ListenAddr,
		UniverseFilePath: cfg.UniverseFile,
		CandleURL:        cfg.CandleURL,
		SignalsURL:       cfg.SignalsURL,
		ShardCount:       cfg.ShardCount,
		ShardNumber:      cfg.ShardNumber,
		Cancel:           cancel,
	}
	verdict, err := service.NewVerdict(&verdictCfg)
	if err != nil {
		log.Printf("creating verdict service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	verdict.Run(ctx)
}
