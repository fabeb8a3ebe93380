package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/roach88/gridpred/internal/engine"
	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/sqlindex"
)

// Runtime is a grid built from a configuration: one partition per
// configured partition, each with its own registry of indexes.
type Runtime struct {
	Grid       *Grid
	Partitions []*engine.Partition

	store *sqlindex.Store
}

// Build creates the partitions and indexes g declares. SQLite-backed
// indexes of all partitions share one store at g.SQLitePath.
//
// The caller must Close the runtime.
func Build(ctx context.Context, g *Grid, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Grid: g}

	if g.UsesSQLite() {
		store, err := sqlindex.Open(g.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open index store: %w", err)
		}
		rt.store = store
	}

	for p := range g.Partitions {
		name := fmt.Sprintf("%s-%d", g.Name, p)
		reg, err := rt.buildRegistry(ctx, name)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Partitions = append(rt.Partitions, engine.NewPartition(name, reg))
	}

	logger.Debug("grid built",
		"grid", g.Name,
		"partitions", g.Partitions,
		"indexes", len(g.Indexes),
		"sqlite", rt.store != nil,
	)
	return rt, nil
}

func (rt *Runtime) buildRegistry(ctx context.Context, partition string) (*index.Registry, error) {
	reg := index.NewRegistry()
	for _, name := range rt.Grid.IndexNames() {
		cfg := rt.Grid.Indexes[name]
		kind, err := cfg.ValueKind()
		if err != nil {
			return nil, err
		}
		var idx index.Index
		switch {
		case cfg.Type == TypeHash:
			idx = index.NewHash(name, cfg.Attribute, kind)
		case cfg.Backend == BackendSQLite:
			sx, err := rt.store.Index(ctx, partition+"/"+name, cfg.Attribute, kind)
			if err != nil {
				reg.Close()
				return nil, fmt.Errorf("partition %s: %w", partition, err)
			}
			idx = sx
		default:
			idx = index.NewSorted(name, cfg.Attribute, kind)
		}
		if err := reg.Add(idx); err != nil {
			reg.Close()
			return nil, fmt.Errorf("partition %s: %w", partition, err)
		}
	}
	return reg, nil
}

// Route returns the partition that owns key.
func (rt *Runtime) Route(key string) *engine.Partition {
	return rt.Partitions[xxhash.Sum64String(key)%uint64(len(rt.Partitions))]
}

// Load routes every entry to its partition.
func (rt *Runtime) Load(ctx context.Context, entries ...index.Entry) error {
	for _, e := range entries {
		if err := rt.Route(e.Key).Put(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries across all partitions.
func (rt *Runtime) Len() int {
	n := 0
	for _, p := range rt.Partitions {
		n += p.Len()
	}
	return n
}

// Close releases every registry and the SQLite store.
func (rt *Runtime) Close() error {
	var result *multierror.Error
	for _, p := range rt.Partitions {
		if reg := p.Registry(); reg != nil {
			if err := reg.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		rt.store = nil
	}
	return result.ErrorOrNil()
}

// QueryOptions returns the executor options the grid implies.
func (g *Grid) QueryOptions() []engine.Option {
	var opts []engine.Option
	if g.MaxScan > 0 {
		opts = append(opts, engine.WithMaxScan(g.MaxScan))
	}
	return opts
}
