package main

import (
	"context"
	"flag"
	"log"

	"thrx-be/internal/config"
	"thrx-be/pkg/store"
)

// migrate copies every stored chat from one store backend to another,
// e.g. from the embedded pebble files to postgres:
//
//	go run ./cmd/migrate -from pebble -to postgres
//
// Connection settings come from the usual STORE_* and DB_CONNECTION_STRING
// variables. Keys already present in the target are overwritten.
func main() {
	from := flag.String("from", store.DriverPebble, "source store driver")
	to := flag.String("to", store.DriverPostgres, "target store driver")
	dryRun := flag.Bool("dry-run", false, "list the keys without copying")
	flag.Parse()

	if *from == *to {
		log.Fatal("Error: -from and -to must differ")
	}

	// 1. Load Environment Variables
	cfg := config.Load()

	// 2. Open both backends
	src, err := store.Open(storeConfig(cfg, *from))
	if err != nil {
		log.Fatalf("Error: Failed to open %s store: %v", *from, err)
	}
	defer src.Close()

	dst, err := store.Open(storeConfig(cfg, *to))
	if err != nil {
		log.Fatalf("Error: Failed to open %s store: %v", *to, err)
	}
	defer dst.Close()

	// 3. Copy key by key
	ctx := context.Background()
	keys, err := src.ListKeys(ctx, "")
	if err != nil {
		log.Fatalf("Error: Failed to list keys: %v", err)
	}
	log.Printf("Copying %d keys from %s to %s...", len(keys), *from, *to)

	copied := 0
	for _, key := range keys {
		if *dryRun {
			log.Printf("  %s", key)
			continue
		}
		value, err := src.Get(ctx, key)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			log.Fatalf("Error: Failed to read %s: %v", key, err)
		}
		if err := dst.Set(ctx, key, value); err != nil {
			log.Fatalf("Error: Failed to write %s: %v", key, err)
		}
		copied++
	}

	log.Printf("✅ Migration finished: %d keys copied", copied)
}

func storeConfig(cfg *config.Config, driver string) store.Config {
	return store.Config{
		Driver:        driver,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		DSN:           cfg.Store.DSN,
	}
}
