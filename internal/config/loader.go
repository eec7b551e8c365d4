package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/cache"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if RUNSTR_CONFIG is set
//  3. env (prefix RUNSTR_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("RUNSTR_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: RUNSTR_METRICS_ADDR, RUNSTR_QUERY_LIMIT, ...
	// Map env keys like RUNSTR_QUERY_LIMIT -> query_limit (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("RUNSTR_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "runstr_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.QueryLimit <= 0 {
		return nil, errors.New("query_limit must be positive")
	}
	if cfg.AuthorChunkSize <= 0 {
		return nil, errors.New("author_chunk_size must be positive")
	}
	return &cfg, nil
}

// CachePolicy builds the cache policy table from the config's overrides.
func (c *Config) CachePolicy() *cache.Policy {
	opts := []cache.PolicyOption{}
	if c.PersistFloorMS > 0 {
		opts = append(opts, cache.WithPersistFloor(time.Duration(c.PersistFloorMS)*time.Millisecond))
	}
	for category, ms := range c.CacheTTLMS {
		opts = append(opts, cache.WithTTL(cache.Category(category), time.Duration(ms)*time.Millisecond))
	}
	return cache.NewPolicy(opts...)
}
