package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/metrics"
	"github.com/ereiarrus/complementsbot/resolve"
)

var app = cli.Command{
	Name:  "complementsbot",
	Usage: "Twitch chat bot that complements people",

	Flags: []cli.Flag{
		&flagConfig,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:  "resolve",
			Usage: "Translate between Twitch logins and user IDs",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "by",
					Usage: "Kind of the given keys, either login or id",
					Value: "login",
					Action: func(ctx context.Context, cmd *cli.Command, s string) error {
						switch s {
						case "login", "id":
							return nil
						default:
							return errors.New("--by must be login or id")
						}
					},
				},
			},
			ArgsUsage: "KEYS...",
			Action:    cliResolve,
		},
		{
			Name:   "channels",
			Usage:  "List joined channels",
			Action: cliChannels,
		},
	},
	Action: cliRun,

	Authors: []any{
		"Ereiarrus",
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig loads the config file named by the --config flag.
func loadConfig(ctx context.Context, cmd *cli.Command) (*Config, error) {
	// A missing .env is fine. Variables already in the environment win.
	_ = godotenv.Load(".env")
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("couldn't open config file: %w", err)
	}
	defer r.Close()
	cfg, _, err := Load(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("couldn't load config: %w", err)
	}
	return cfg, nil
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	m := newMetrics()
	docs, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	robo := New(docs, newResolver(cfg, m), m, runtime.GOMAXPROCS(0))
	defer robo.Close()
	robo.SetOwner(ctx, cfg.Owner)
	if err := robo.InitTwitch(ctx, cfg.TMI, cfg.Secrets.TMIToken); err != nil {
		return err
	}
	return robo.Run(ctx, cfg.HTTP.Listen)
}

func cliResolve(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	keys := cmd.Args().Slice()
	if len(keys) == 0 {
		return errors.New("no keys to resolve")
	}
	dir := resolve.NameToID
	if cmd.String("by") == "id" {
		dir = resolve.IDToName
	}
	res := newResolver(cfg, newMetrics())
	out, err := res.Resolve(ctx, keys, dir)
	if err != nil {
		return err
	}
	for i, k := range keys {
		fmt.Printf("%s\t%s\n", k, out[i])
	}
	return nil
}

func cliChannels(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	docs, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer docs.Close()
	store := chanstore.New(docs, newResolver(cfg, newMetrics()))
	ids, err := store.JoinedChannels(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		name, err := chanstore.GetOrDefault(ctx, store, id, chanstore.Username)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", id, name)
	}
	return nil
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}

// metrics configuration
func newMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		TMIMsgsCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "complementsbot",
					Subsystem: "tmi",
					Name:      "messages",
					Help:      "Number of PRIVMSGs received from TMI.",
				},
			),
		),
		TMICommandCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "complementsbot",
					Subsystem: "tmi",
					Name:      "commands",
					Help:      "Number of command invocations received in Twitch chat.",
				},
			),
		),
		ComplementsSent: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "complementsbot",
					Subsystem: "complements",
					Name:      "sent",
					Help:      "Number of complements sent, by whether they were commanded or random.",
				},
				[]string{"kind"},
			),
		),
		ResolveRequests: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "complementsbot",
					Subsystem: "resolve",
					Name:      "requests",
					Help:      "Number of requests made to the Twitch users endpoint.",
				},
			),
		),
		TokenRefreshes: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "complementsbot",
					Subsystem: "auth",
					Name:      "token_refreshes",
					Help:      "Number of app access tokens obtained.",
				},
			),
		),
		ResolveLatency: metrics.NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
					Namespace: "complementsbot",
					Subsystem: "resolve",
					Name:      "latency",
					Help:      "How long it takes to resolve a set of keys in seconds",
				},
				[]string{"direction"},
			),
		),
		CommandLatency: metrics.NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 5, 10},
					Namespace: "complementsbot",
					Subsystem: "commands",
					Name:      "latency",
					Help:      "How long it takes to run a chat command in seconds",
				},
				[]string{"command"},
			),
		),
	}
}
