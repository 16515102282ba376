package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dm/solrctl/internal/client"
	"github.com/dm/solrctl/internal/model"
)

// FetchCoreStatus reads import status, index statistics and document count
// for core concurrently and assembles a snapshot. If any read fails the
// whole fetch fails with the first error.
func FetchCoreStatus(ctx context.Context, c client.SolrClient, core string) (*model.CoreStatus, error) {
	var (
		status *client.ImportStatus
		stats  *client.IndexStats
		count  int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		status, err = c.GetImportStatus(gctx, core)
		return err
	})

	g.Go(func() error {
		var err error
		stats, err = c.GetIndexStats(gctx, core)
		return err
	})

	g.Go(func() error {
		var err error
		count, err = c.GetDocumentCount(gctx, core)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if status == nil || stats == nil {
		return nil, fmt.Errorf("FetchCoreStatus: incomplete response (unexpected nil)")
	}

	return model.NewCoreStatus(c.BaseURL(), core, status, stats, count, time.Now()), nil
}

// FetchReplicaStatus reads only the statistics page of core. Replica cores
// have no import handler, so the snapshot carries just the index version
// and the searcher's document count.
func FetchReplicaStatus(ctx context.Context, c client.SolrClient, core string) (*model.CoreStatus, error) {
	stats, err := c.GetIndexStats(ctx, core)
	if err != nil {
		return nil, err
	}
	return &model.CoreStatus{
		Server:        c.BaseURL(),
		Core:          core,
		IndexVersion:  stats.IndexVersion,
		DocumentCount: stats.NumDocs,
		FetchedAt:     time.Now(),
	}, nil
}

// Target names a core on a specific server.
type Target struct {
	Client client.SolrClient
	Core   string
}

// FetchFunc reads one snapshot of a core.
type FetchFunc func(ctx context.Context, c client.SolrClient, core string) (*model.CoreStatus, error)

// FetchPair fetches two cores, possibly on different servers, concurrently.
func FetchPair(ctx context.Context, fetch FetchFunc, left, right Target) (*model.CoreStatus, *model.CoreStatus, error) {
	var a, b *model.CoreStatus

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = fetch(gctx, left.Client, left.Core)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = fetch(gctx, right.Client, right.Core)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
