package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ereiarrus/complementsbot/auth"
	"github.com/ereiarrus/complementsbot/docstore"
	"github.com/ereiarrus/complementsbot/docstore/kvstore"
	"github.com/ereiarrus/complementsbot/docstore/pgstore"
	"github.com/ereiarrus/complementsbot/docstore/sqlstore"
	"github.com/ereiarrus/complementsbot/metrics"
	"github.com/ereiarrus/complementsbot/resolve"
	"github.com/ereiarrus/complementsbot/twitch"
)

// Load loads the bot configuration from TOML, then applies secrets from the
// environment. Environment variables take precedence over the file.
func Load(ctx context.Context, r io.Reader) (*Config, *toml.MetaData, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	if err := env.Parse(&cfg.Secrets); err != nil {
		return nil, nil, fmt.Errorf("couldn't read secrets from environment: %w", err)
	}
	if cfg.Secrets.DatabaseURL != "" {
		cfg.DB.DSN = cfg.Secrets.DatabaseURL
	}
	return &cfg, &md, nil
}

// Config is the marshaled structure of the bot's configuration.
type Config struct {
	// Owner is the table of metadata about the owner.
	Owner Owner `toml:"owner"`
	// DB is the table of database settings.
	DB DBCfg `toml:"db"`
	// HTTP is the table of HTTP API settings.
	HTTP HTTPCfg `toml:"http"`
	// TMI is the configuration for connecting to Twitch chat.
	TMI ClientCfg `toml:"tmi"`
	// Resolve is the configuration of the identity resolver.
	Resolve ResolveCfg `toml:"resolve"`

	// Secrets are loaded from the environment, never from the file.
	Secrets Secrets `toml:"-"`
}

// Owner is metadata about the bot owner.
type Owner struct {
	// Name is the Twitch login of the owner.
	Name string `toml:"name"`
	// Contact describes owner contact information.
	Contact string `toml:"contact"`
}

// DBCfg is the configuration of the channel configuration database.
type DBCfg struct {
	// DSN selects the backend by its scheme: badger:<dir> (badger:mem for an
	// in-memory database), sqlite:<file or URI>, or postgres://...
	DSN string `toml:"dsn"`
	// KVFlag is a Badger superflag string for the badger backend.
	KVFlag string `toml:"kvflag"`
}

// HTTPCfg is the configuration of the HTTP API.
type HTTPCfg struct {
	// Listen is the address on which to serve. If empty, no API is served.
	Listen string `toml:"listen"`
}

// ClientCfg is the configuration for Twitch chat.
type ClientCfg struct {
	// Prefix is the command prefix.
	Prefix string `toml:"prefix"`
	// Rate is the global rate limit for sent messages.
	Rate Rate `toml:"rate"`
}

// ResolveCfg is the configuration of the identity resolver.
type ResolveCfg struct {
	// Backoff is the base wait between retries in seconds.
	Backoff float64 `toml:"backoff"`
	// Timeout is the HTTP client timeout in seconds.
	Timeout float64 `toml:"timeout"`
}

// Rate is a rate limit configuration.
type Rate struct {
	Every float64 `toml:"every"`
	Num   int     `toml:"num"`
}

// Secrets are credentials which come only from the environment.
type Secrets struct {
	// TMIToken is the chat OAuth token, with or without the oauth: prefix.
	TMIToken string `env:"TMI_TOKEN"`
	// ClientID and ClientSecret are the application credentials used for the
	// client credentials flow.
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	// DatabaseURL overrides db.dsn when set.
	DatabaseURL string `env:"DATABASE_URL"`
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.Owner.Name,
		&cfg.Owner.Contact,
		&cfg.DB.DSN,
		&cfg.DB.KVFlag,
		&cfg.HTTP.Listen,
		&cfg.TMI.Prefix,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// openStore opens the document store named by the DSN scheme.
func openStore(ctx context.Context, cfg DBCfg) (docstore.Store, error) {
	dsn := cfg.DSN
	switch {
	case dsn == "":
		return nil, errors.New("no database configured; set db.dsn or DATABASE_URL")
	case strings.HasPrefix(dsn, "badger:"):
		dir := strings.TrimPrefix(dsn, "badger:")
		if dir == "mem" {
			dir = ""
		}
		slog.DebugContext(ctx, "using badger", slog.String("path", dir), slog.String("flags", cfg.KVFlag))
		s, err := kvstore.Open(dir, cfg.KVFlag)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		file := strings.TrimPrefix(dsn, "sqlite:")
		slog.DebugContext(ctx, "using sqlite", slog.String("path", file))
		db, err := sqlitex.NewPool(file, sqlitex.PoolOptions{})
		if err != nil {
			return nil, fmt.Errorf("couldn't open sqlite db: %w", err)
		}
		s, err := sqlstore.Open(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		slog.DebugContext(ctx, "using postgres")
		db, err := pgstore.Connect(dsn)
		if err != nil {
			return nil, fmt.Errorf("couldn't open postgres db: %w", err)
		}
		s, err := pgstore.Open(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database scheme in %q", dsn)
	}
}

// newResolver creates the identity resolver and the token source backing it.
func newResolver(cfg *Config, m *metrics.Metrics) *resolve.Resolver {
	timeout := fseconds(cfg.Resolve.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	oc := oauth2.Config{
		ClientID:     cfg.Secrets.ClientID,
		ClientSecret: cfg.Secrets.ClientSecret,
		Endpoint:     auth.TwitchEndpoint,
	}
	tokens := auth.ClientCredentialsFlow(oc, client, func() { metrics.Observe(m.TokenRefreshes, 1) })
	backoff := fseconds(cfg.Resolve.Backoff)
	if backoff <= 0 {
		backoff = time.Second
	}
	return &resolve.Resolver{
		Client:   twitch.Client{HTTP: client, ID: cfg.Secrets.ClientID},
		Tokens:   tokens,
		Backoff:  backoff,
		Requests: m.ResolveRequests,
		Latency:  m.ResolveLatency,
	}
}

func newLimiter(r Rate) *rate.Limiter {
	if r.Num <= 0 || r.Every <= 0 {
		// Twitch's limit for unverified bots, 20 messages per 30 seconds.
		return rate.NewLimiter(rate.Every(1500*time.Millisecond), 20)
	}
	return rate.NewLimiter(rate.Every(fseconds(r.Every)), r.Num)
}
