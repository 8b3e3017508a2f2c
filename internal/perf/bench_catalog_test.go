package perf

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/erpapi/erpapitest"
	"github.com/odyssey-erp/erp-console/internal/locations"
	"github.com/odyssey-erp/erp-console/internal/platform/cache"
)

const (
	warehouses        = 12
	zonesPerWarehouse = 3
	locationsPerZone  = 5
)

func seededAPI(tb testing.TB) (*erpapitest.Server, *erpapi.Client) {
	tb.Helper()
	srv := erpapitest.New(tb)
	for w := 0; w < warehouses; w++ {
		wh := erpapi.Warehouse{Code: fmt.Sprintf("W%02d", w)}
		for z := 0; z < zonesPerWarehouse; z++ {
			zone := erpapi.Zone{Code: fmt.Sprintf("Z%d", z)}
			for l := 0; l < locationsPerZone; l++ {
				zone.Locations = append(zone.Locations, erpapi.Location{Code: fmt.Sprintf("L%02d", l)})
			}
			wh.Zones = append(wh.Zones, zone)
		}
		srv.AddWarehouse(wh)
	}
	client, err := erpapi.NewClient(erpapi.Options{BaseURL: srv.BaseURL(), Timeout: 5 * time.Second})
	require.NoError(tb, err)
	return srv, client
}

func BenchmarkLocationsBuild(b *testing.B) {
	_, client := seededAPI(b)
	for _, concurrency := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("concurrency=%d", concurrency), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				options, err := locations.Build(context.Background(), client, concurrency)
				if err != nil {
					b.Fatal(err)
				}
				if len(options) != warehouses*zonesPerWarehouse*locationsPerZone {
					b.Fatalf("unexpected catalog size %d", len(options))
				}
			}
		})
	}
}

func BenchmarkCatalogCachedOptions(b *testing.B) {
	_, client := seededAPI(b)
	mr := miniredis.RunT(b)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = rdb.Close() })
	catalog := locations.NewCatalog(client, cache.NewVersioned(rdb, "locations", time.Minute), 4, nil)
	if _, err := catalog.Options(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := catalog.Options(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

func TestConcurrentColdReadsBuildOnce(t *testing.T) {
	srv, client := seededAPI(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	catalog := locations.NewCatalog(client, cache.NewVersioned(rdb, "locations", time.Minute), 4, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := catalog.Options(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 1, srv.Calls("GET /warehouses"))
	require.Equal(t, warehouses, srv.Calls("GET /warehouses/{id}"))

	before := srv.TotalCalls()
	for i := 0; i < 50; i++ {
		_, err := catalog.Options(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, before, srv.TotalCalls())
}
