package main

import (
	"context"
	"time"

	"github.com/sells-group/recon-cli/internal/loader"
	"github.com/sells-group/recon-cli/internal/schema"
	"github.com/sells-group/recon-cli/internal/store"
)

// initStore opens the configured session store with migrations applied.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
	})
}

func sessionTTL() time.Duration {
	return time.Duration(cfg.Store.SessionTTLHours) * time.Hour
}

func schemaOptions() schema.Options {
	return schema.Options{
		SampleSize:       cfg.Schema.SampleSize,
		AcceptThreshold:  cfg.Schema.AcceptThreshold,
		AutoMatchCutover: cfg.Schema.AutoMatchCutover,
	}
}

func loaderOptions() loader.Options {
	return loader.Options{MaxHeaderScan: cfg.Loader.MaxHeaderScan}
}
