// cmd/tools/data-loader/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"product-analytics/internal/common/config"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/loader"
)

func main() {
	tables := flag.String("tables", "articles,customers,transactions", "Comma separated tables to load, in order")
	chunkSize := flag.Int("chunk-size", 0, "Rows per COPY (0 uses loader.chunk_size)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Driver != "postgres" {
		fmt.Fprintf(os.Stderr, "data-loader supports postgres only, got %q\n", cfg.Database.Driver)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, "data-loader")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := loader.NewS3Store(cfg.Loader)
	if err != nil {
		log.Error("S3 client init failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	copier, err := loader.NewPgxCopier(ctx, cfg.Database.Postgres.GetURL())
	if err != nil {
		log.Error("PostgreSQL connection failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer copier.Close(context.Background())

	size := cfg.Loader.ChunkSize
	if *chunkSize > 0 {
		size = *chunkSize
	}
	l := loader.New(&loader.Config{Prefixes: cfg.Loader.Prefixes, ChunkSize: size}, store, copier, log)

	for _, table := range strings.Split(*tables, ",") {
		table = strings.TrimSpace(table)
		if table == "" {
			continue
		}
		start := time.Now()
		log.Info("Loading table", map[string]interface{}{"table": table, "chunkSize": size})

		result, err := l.LoadTable(ctx, table)
		if err != nil {
			fields := map[string]interface{}{"table": table, "error": err.Error()}
			if result != nil {
				fields["rowsWritten"] = result.Rows
			}
			log.Error("Table load failed", fields)
			os.Exit(1)
		}
		log.Info("Table loaded", map[string]interface{}{
			"table":      table,
			"objects":    result.Objects,
			"rows":       result.Rows,
			"chunks":     result.Chunks,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}
