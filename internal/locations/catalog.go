// Package locations assembles the flattened warehouse > zone > location list
// offered when putting away received goods.
package locations

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/platform/cache"
)

// DefaultConcurrency bounds parallel warehouse detail fetches.
const DefaultConcurrency = 4

// Source is the remote warehouse API.
type Source interface {
	ListWarehouses(ctx context.Context) ([]erpapi.Warehouse, error)
	GetWarehouse(ctx context.Context, id string) (erpapi.Warehouse, error)
}

// Option is one selectable putaway location.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Flatten lists every location of a detailed warehouse in zone then
// location order, labelled with warehouseCode.
func Flatten(warehouseCode string, detail erpapi.Warehouse) []Option {
	var options []Option
	for _, zone := range detail.Zones {
		for _, loc := range zone.Locations {
			options = append(options, Option{
				ID:    loc.ID,
				Label: warehouseCode + " > " + zone.Code + " > " + loc.Code,
			})
		}
	}
	return options
}

// Build lists warehouses, fetches each detail with at most concurrency
// requests in flight and flattens the result in warehouse order.
func Build(ctx context.Context, src Source, concurrency int) ([]Option, error) {
	warehouses, err := src.ListWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	parts := make([][]Option, len(warehouses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, wh := range warehouses {
		g.Go(func() error {
			detail, err := src.GetWarehouse(gctx, wh.ID)
			if err != nil {
				return fmt.Errorf("warehouse %s: %w", wh.Code, err)
			}
			parts[i] = Flatten(wh.Code, detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	options := make([]Option, 0)
	for _, part := range parts {
		options = append(options, part...)
	}
	return options, nil
}

// Catalog serves the location list from a versioned Redis cache and
// collapses concurrent misses into one build.
type Catalog struct {
	source      Source
	cache       *cache.Versioned
	concurrency int
	logger      *slog.Logger
	group       singleflight.Group
}

// NewCatalog constructs a Catalog. A nil cache rebuilds on every call.
func NewCatalog(source Source, store *cache.Versioned, concurrency int, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{source: source, cache: store, concurrency: concurrency, logger: logger}
}

// Options returns the flattened catalog.
func (c *Catalog) Options(ctx context.Context) ([]Option, error) {
	key, err := c.cache.BuildKey(ctx, "options")
	if err != nil {
		c.logger.Warn("location cache unavailable", slog.Any("error", err))
		return Build(ctx, c.source, c.concurrency)
	}
	// The flight outlives any single caller's cancellation but keeps its values.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		var options []Option
		err := c.cache.FetchJSON(flightCtx, key, &options, func(ctx context.Context) (any, error) {
			return Build(ctx, c.source, c.concurrency)
		})
		return options, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Option), nil
	}
}

// Invalidate drops the cached catalog; the next read rebuilds it.
func (c *Catalog) Invalidate(ctx context.Context) error {
	_, err := c.cache.Bump(ctx)
	return err
}

// Refresh invalidates and rebuilds the catalog, returning its size.
func (c *Catalog) Refresh(ctx context.Context) (int, error) {
	if err := c.Invalidate(ctx); err != nil {
		return 0, fmt.Errorf("invalidate locations: %w", err)
	}
	options, err := c.Options(ctx)
	if err != nil {
		return 0, err
	}
	return len(options), nil
}
