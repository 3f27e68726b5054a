// Command favorites is a small CLI that drives the Favorites-list sample
// domain (github.com/getpup/foldstore/examples/favorites) against a real
// store.Adapter selected from a YAML config file, in the spirit of the
// teacher's own examples/*/main.go demo programs.
//
// Usage:
//
//	go run github.com/getpup/foldstore/cmd/favorites -config favorites.yaml -client alice add   coffee
//	go run github.com/getpup/foldstore/cmd/favorites -config favorites.yaml -client alice remove coffee
//	go run github.com/getpup/foldstore/cmd/favorites -config favorites.yaml -client alice list
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/getpup/foldstore/cache"
	"github.com/getpup/foldstore/category"
	"github.com/getpup/foldstore/config"
	"github.com/getpup/foldstore/decider"
	"github.com/getpup/foldstore/es/access"
	"github.com/getpup/foldstore/es/adapters/relational"
	"github.com/getpup/foldstore/es/adapters/sqlite"
	"github.com/getpup/foldstore/es/store"
	"github.com/getpup/foldstore/examples/favorites"
)

func main() {
	var (
		configPath = flag.String("config", "favorites.yaml", "Path to a foldstore config.Config YAML file")
		clientID   = flag.String("client", "", "Client ID whose favorites list to operate on")
	)
	flag.Parse()

	if *clientID == "" {
		log.Fatal("favorites: -client is required")
	}
	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("favorites: expected a subcommand: add <name> | remove <name> | list")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("favorites: %v", err)
	}

	adapter, closeAdapter, err := openAdapter(cfg)
	if err != nil {
		log.Fatalf("favorites: %v", err)
	}
	defer closeAdapter()

	strategy, err := strategyFor(cfg.AccessStrategy)
	if err != nil {
		log.Fatalf("favorites: %v", err)
	}

	catCfg := category.Config[favorites.State, favorites.Event]{Strategy: strategy}
	if cfg.Cache.Policy != config.CacheNone {
		catCfg.Cache = cache.New[favorites.State](cachePolicy(cfg.Cache.Policy), time.Duration(cfg.Cache.Window))
	}

	cat, err := favorites.NewCategory(adapter, catCfg)
	if err != nil {
		log.Fatalf("favorites: NewCategory: %v", err)
	}

	stream, err := favorites.StreamFor(*clientID)
	if err != nil {
		log.Fatalf("favorites: %v", err)
	}

	d := decider.New(cat, stream)
	ctx := context.Background()

	switch cmd := args[0]; cmd {
	case "add":
		if len(args) != 2 {
			log.Fatal("favorites: add requires exactly one name")
		}
		if err := d.Transact(ctx, favorites.AddDecision(args[1])); err != nil {
			log.Fatalf("favorites: add %s: %v", args[1], err)
		}
	case "remove":
		if len(args) != 2 {
			log.Fatal("favorites: remove requires exactly one name")
		}
		if err := d.Transact(ctx, favorites.RemoveDecision(args[1])); err != nil {
			log.Fatalf("favorites: remove %s: %v", args[1], err)
		}
	case "list":
		list, err := decider.Query(ctx, d, favorites.List)
		if err != nil {
			log.Fatalf("favorites: list: %v", err)
		}
		for _, name := range list {
			fmt.Println(name)
		}
	default:
		log.Fatalf("favorites: unknown subcommand %q", cmd)
	}
}

// openAdapter builds the store.Adapter cfg.Backend names. Only sqlite is
// wired up here: the CLI is a local demo tool, and sqlite needs no
// external service running to try it out. Postgres/MySQL/document all
// plug into the same category.Config unchanged, via the relational and
// document adapter packages.
func openAdapter(cfg config.Config) (store.Adapter, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLite.Path, err)
		}
		if err := sqlite.EnsureSchema(db, ""); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		adapter := sqlite.New(db, relationalConfig(cfg))
		return adapter, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend for this CLI: %q (only %q is wired up)", cfg.Backend, config.BackendSQLite)
	}
}

// strategyFor maps cfg.AccessStrategy onto a concrete access.Strategy for
// this domain. Favorites lists never compact, so only the two strategies
// that need no domain-specific origin/snapshot predicate are wired up here;
// the other three are rejected with an explanation rather than silently
// falling back to Unoptimized.
func strategyFor(kind config.AccessStrategyKind) (access.Strategy[favorites.State, favorites.Event], error) {
	switch kind {
	case config.AccessUnoptimized, "":
		return favorites.Strategy(), nil
	case config.AccessLatestKnownEvent:
		return access.LatestKnownEvent[favorites.State, favorites.Event](), nil
	default:
		return nil, fmt.Errorf("access strategy %q needs a domain-specific snapshot predicate this demo doesn't define", kind)
	}
}

func relationalConfig(cfg config.Config) relational.Config {
	return relational.Config{
		BatchSize:     cfg.BatchSize,
		MaxBatchReads: cfg.MaxBatchReads,
	}
}

func cachePolicy(kind config.CachePolicyKind) cache.Policy {
	if kind == config.CacheFixed {
		return cache.Fixed
	}
	return cache.Sliding
}
