package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then defaults apply", func() {
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.MetricsAddr, ShouldEqual, ":9090")
			So(cfg.QueryLimit, ShouldEqual, 500)
			So(cfg.TeamScanLimit, ShouldEqual, 1000)
			So(cfg.AuthorChunkSize, ShouldEqual, 50)
			So(cfg.CachePath, ShouldBeEmpty)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RUNSTR_LOG_LEVEL", "debug")
	t.Setenv("RUNSTR_QUERY_LIMIT", "250")
	t.Setenv("RUNSTR_CACHE_PATH", "/tmp/runstr-cache.json")

	Convey("Given RUNSTR_ environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then env values win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.QueryLimit, ShouldEqual, 250)
			So(cfg.CachePath, ShouldEqual, "/tmp/runstr-cache.json")

			Convey("And untouched fields keep their defaults", func() {
				So(cfg.TeamScanLimit, ShouldEqual, 1000)
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`log_level: warn
metrics_addr: ":9100"
query_limit: 100
cache_ttl_ms:
  roster: 60000
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RUNSTR_CONFIG", path)

	Convey("Given a YAML config file", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then file values layer over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.LogLevel, ShouldEqual, "warn")
			So(cfg.MetricsAddr, ShouldEqual, ":9100")
			So(cfg.QueryLimit, ShouldEqual, 100)
			So(cfg.CacheTTLMS["roster"], ShouldEqual, 60000)
		})
	})
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("query_limit: 100\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RUNSTR_CONFIG", path)
	t.Setenv("RUNSTR_QUERY_LIMIT", "42")

	Convey("Given both a file and an env override", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the environment wins", func() {
			So(err, ShouldBeNil)
			So(cfg.QueryLimit, ShouldEqual, 42)
		})
	})
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("RUNSTR_QUERY_LIMIT", "0")

	Convey("Given an invalid query limit", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCachePolicy(t *testing.T) {
	Convey("Given TTL and persistence overrides in the config", t, func() {
		cfg := config.New(context.Background())
		cfg.PersistFloorMS = 600_000
		cfg.CacheTTLMS = map[string]int64{
			"roster":          60_000,
			"balance-history": 3_600_000,
		}

		Convey("When the policy table is built", func() {
			p := cfg.CachePolicy()

			Convey("Then overrides land without code changes", func() {
				So(p.TTLFor(cache.CategoryRoster), ShouldEqual, time.Minute)
				So(p.TTLFor(cache.Category("balance-history")), ShouldEqual, time.Hour)
				So(p.ShouldPersist(time.Minute), ShouldBeFalse)
				So(p.ShouldPersist(time.Hour), ShouldBeTrue)
			})

			Convey("Then untouched categories keep their default bands", func() {
				So(p.TTLFor(cache.CategoryProfile), ShouldEqual, 6*time.Hour)
			})
		})
	})
}
