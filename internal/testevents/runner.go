package testevents

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
)

// settleDelay gives the ingest pipeline time to drain before standings are
// read back.
const settleDelay = 2 * time.Second

// Run executes a complete synthetic traffic run: health check, generate,
// submit, settle, verify.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("testevents")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting synthetic traffic run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("membersPerTeam", cfg.MembersPerTeam),
		logger.Int("activitiesPerMember", cfg.ActivitiesPerMember),
		logger.Int64("seed", cfg.Seed),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	fixtures := generate(cfg)
	var events []Event
	for _, f := range fixtures {
		events = append(events, f.Events...)
	}
	stats.EventsGenerated = len(events)

	if err := submit(ctx, cfg, c, events, stats); err != nil {
		return fmt.Errorf("submission: %w", err)
	}

	log.Info(ctx, "waiting for ingest to settle")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settleDelay):
	}

	for _, f := range fixtures {
		result, err := c.leaderboard(ctx, f.CompetitionID)
		if err != nil {
			return fmt.Errorf("verification: %w", err)
		}
		if err := verify(f, result); err != nil {
			return fmt.Errorf("verification of %s: %w", f.CompetitionID, err)
		}
		stats.BoardsVerified++
		if cfg.Verbose {
			log.Info(ctx, "standings verified",
				logger.String("competition", f.CompetitionID),
				logger.Int("entries", len(result.Entries)),
			)
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "run complete",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("boardsVerified", stats.BoardsVerified),
		logger.Duration("duration", stats.Duration),
	)
	return nil
}

// submit pushes events through the intake endpoint with a bounded worker
// group. Backpressure responses are retried once after a short pause.
func submit(ctx context.Context, cfg *Config, c *client, events []Event, stats *Stats) error {
	var (
		wg         sync.WaitGroup
		successful atomic.Int64
		rejected   atomic.Int64
		failed     atomic.Int64
	)

	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}
	jobs := make(chan Event)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				status, err := c.submit(ctx, e)
				if err == nil && status == http.StatusTooManyRequests {
					time.Sleep(100 * time.Millisecond)
					status, err = c.submit(ctx, e)
				}
				switch {
				case err != nil:
					failed.Add(1)
				case status == http.StatusAccepted:
					successful.Add(1)
				case status == http.StatusTooManyRequests:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	for _, e := range events {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- e:
		}
	}
	close(jobs)
	wg.Wait()

	stats.EventsSubmitted = len(events)
	stats.EventsSuccessful = int(successful.Load())
	stats.EventsRejected = int(rejected.Load())
	stats.EventsFailed = int(failed.Load())

	if stats.EventsFailed > 0 {
		return fmt.Errorf("%d of %d events failed to submit", stats.EventsFailed, stats.EventsSubmitted)
	}
	return nil
}
