// Command runstr-aggregd runs the aggregation engine against an in-memory
// relay stand-in. Events enter through the HTTP intake endpoint, flow
// through the ingest queue into the local event log, and come back out as
// derived views: leaderboards, rosters, captain status. It is the demo and
// smoke-test surface; embedders wire a real protocol client through
// eventstore.Store instead.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/eventstore"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/http/api"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/mq/queue"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/adapters/mq/worker"
	app "github.com/RUNSTR-LLC/RUNSTR-sub003/internal/app"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/config"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	standingsInterval = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logger.Error(err))
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log level, keeping info", logger.Error(err))
	}

	store := eventstore.NewMemoryStore()
	teamID, competitionID := seed(store)

	engine := app.New(
		app.WithStore(store),
		app.WithPolicy(cfg.CachePolicy()),
		app.WithCachePath(cfg.CachePath),
		app.WithQueryLimit(cfg.QueryLimit),
		app.WithTeamScanLimit(cfg.TeamScanLimit),
		app.WithScanTimeout(time.Duration(cfg.ScanTimeoutMS)*time.Millisecond),
		app.WithRetryBackoff(time.Duration(cfg.RetryBackoffMS)*time.Millisecond),
		app.WithAuthorChunkSize(cfg.AuthorChunkSize),
	)
	if err := engine.Start(ctx); err != nil {
		log.Error(ctx, "failed to start engine", logger.Error(err))
		return
	}
	defer engine.Stop()

	// Ingest pipeline: HTTP intake -> queue -> workers -> event log, with
	// cache invalidation on every applied event.
	intake := queue.NewInMemoryQueue(queue.WithCapacity(cfg.IngestQueueCapacity))
	pool := worker.NewPool(cfg.IngestWorkers, intake, store, engine)
	pool.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	api.NewServer(engine, intake, engine).Register(mux)

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "api server listening", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "api server failed", logger.Error(err))
			stop()
		}
	}()

	go logStandings(ctx, engine, teamID, competitionID, log)

	<-ctx.Done()
	log.Info(context.Background(), "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "api server shutdown timed out", logger.Error(err))
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "ingest pool shutdown failed", logger.Error(err))
	}
}

// logStandings periodically recomputes and logs the demo leaderboard.
func logStandings(ctx context.Context, engine *app.Service, teamID, competitionID string, log logger.Logger) {
	ticker := time.NewTicker(standingsInterval)
	defer ticker.Stop()

	for {
		result, err := engine.ComputeLeaderboard(ctx, competitionID, teamID, nil)
		if err != nil {
			log.Warn(ctx, "leaderboard unavailable", logger.Error(err))
		} else {
			for _, entry := range result.Entries {
				log.Info(ctx, "standing",
					logger.Int("rank", entry.Rank),
					logger.String("identity", entry.Identity),
					logger.Float64("score", entry.Score),
					logger.Int("activities", entry.Activities),
					logger.Bool("partial", entry.Partial),
				)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// seed publishes a sample team, roster, competition, and activities so the
// daemon has something to aggregate before any events arrive over HTTP.
func seed(store *eventstore.MemoryStore) (teamID, competitionID string) {
	const (
		captain = "npub-captain"
		teamTag = "demo-team"
		compTag = "demo-5k-week"
	)
	now := time.Now().Unix()

	store.Publish(model.Event{
		Author:    captain,
		Kind:      model.KindTeamMetadata,
		CreatedAt: now - 7*24*3600,
		Tags:      [][]string{{model.TagIdentifier, teamTag}, {"name", "Demo Running Club"}},
	})
	store.Publish(model.Event{
		Author:    captain,
		Kind:      model.KindTeamRoster,
		CreatedAt: now - 6*24*3600,
		Tags: [][]string{
			{model.TagIdentifier, teamTag},
			{model.TagMember, "npub-alice"},
			{model.TagMember, "npub-bob"},
		},
	})

	def, _ := json.Marshal(model.Competition{
		Start: now - 3*24*3600,
		End:   now + 4*24*3600,
		Rule:  "distance",
		Open:  true,
	})
	store.Publish(model.Event{
		Author:    captain,
		Kind:      model.KindCompetitionDefinition,
		CreatedAt: now - 3*24*3600,
		Tags:      [][]string{{model.TagIdentifier, compTag}, {model.TagTeam, teamTag}},
		Content:   string(def),
	})

	for _, run := range []struct {
		author   string
		distance string
		offset   int64
	}{
		{"npub-alice", "5.0", -2 * 24 * 3600},
		{"npub-alice", "7.5", -24 * 3600},
		{"npub-bob", "10.2", -18 * 3600},
	} {
		store.Publish(model.Event{
			Author:    run.author,
			Kind:      model.KindActivityRecord,
			CreatedAt: now + run.offset,
			Tags:      [][]string{{model.TagDistance, run.distance}, {model.TagDuration, "2400"}},
		})
	}

	return teamTag, compTag
}
