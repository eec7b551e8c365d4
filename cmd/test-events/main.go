// Command test-events drives synthetic relay traffic against a running
// aggregation daemon and verifies the standings it computes.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/testevents"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeams               = 5
	defaultMembersPerTeam      = 8
	defaultActivitiesPerMember = 10
	defaultTimeout             = 30 * time.Second
	defaultRunTimeout          = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9090", "Base URL of the daemon")
		teams      = flag.Int("teams", defaultTeams, "Number of teams to fabricate")
		members    = flag.Int("members", defaultMembersPerTeam, "Members per team")
		activities = flag.Int("activities", defaultActivitiesPerMember, "Activity records per member")
		workers    = flag.Int("workers", runtime.NumCPU()*2, "Concurrent submission workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "RNG seed; same seed reproduces the run")
		verbose    = flag.Bool("verbose", false, "Log every verified board")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &testevents.Config{
		BaseURL:             *baseURL,
		Teams:               *teams,
		MembersPerTeam:      *members,
		ActivitiesPerMember: *activities,
		Workers:             *workers,
		Timeout:             *timeout,
		Seed:                *seed,
		Verbose:             *verbose,
	}
	if err := testevents.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
