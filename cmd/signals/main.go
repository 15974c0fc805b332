package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"invest-signals/internal/logger"
	"invest-signals/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		tickers    = flag.String("tickers", "", "comma-separated tickers (overrides config universe)")
		asOfFlag   = flag.String("as-of", "", "analysis date YYYY-MM-DD (default today)")
		modeFlag   = flag.String("mode", "", "analysis mode RULE_BASED or LLM (overrides config)")
		pretty     = flag.Bool("pretty", false, "indent JSON output")
	)
	flag.Parse()

	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Warn(ctx, "Interrupt received, cancelling analysis")
		cancel()
	}()

	cfg, err := loadConfig(ctx, *configPath)
	must(err)
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
		must(cfg.Validate())
	}

	universe := cfg.Universe.Static
	if *tickers != "" {
		universe = splitTickers(*tickers)
	}

	asOf := time.Now()
	if *asOfFlag != "" {
		asOf, err = time.Parse("2006-01-02", *asOfFlag)
		must(err)
	}

	compressOldSignals(ctx, cfg)

	p := buildPipeline(ctx, cfg)

	logger.Info(ctx, "Starting analysis",
		"tickers", len(universe),
		"as_of", asOf.Format("2006-01-02"),
		"mode", cfg.Mode,
		"data_source", cfg.DataSource,
	)

	signals, err := p.AnalyzeBatch(ctx, universe, asOf)
	if err != nil {
		logger.ErrorWithErr(ctx, "Batch analysis aborted", err)
	}

	var out []byte
	if *pretty {
		out, _ = json.MarshalIndent(signals, "", "  ")
	} else {
		out, _ = json.Marshal(signals)
	}
	fmt.Println(string(out))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = trace.Shutdown(shutdownCtx)

	if err != nil {
		os.Exit(1)
	}
}

func splitTickers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
