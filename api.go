package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof" // register handlers
	"regexp"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ereiarrus/complementsbot/chanstore"
	"github.com/ereiarrus/complementsbot/resolve"
)

func (robo *Robot) api(ctx context.Context, listen string, mux *http.ServeMux, metrics []prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorMemStatsMetricsDisabled(),
		collectors.WithGoCollectorRuntimeMetrics(
			collectors.GoRuntimeMetricsRule{
				Matcher: regexp.MustCompile(`^(/gc/gogc:percent|/gc/gomemlimit:bytes|/gc/heap/allocs:bytes|/gc/heap/allocs:objects|/gc/heap/goal:bytes|/memory/classes/heap/released:bytes|/memory/classes/heap/stacks:bytes|/memory/classes/total:bytes|/sched/gomaxprocs:threads|/sched/goroutines:goroutines|/sched/latencies:seconds)$`),
			},
		),
	))
	reg.MustRegister(metrics...)
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, opts))
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	robo.routes(mux)
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("couldn't start API server: %w", err)
	}
	srv := http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}
	go func() {
		slog.InfoContext(ctx, "HTTP API server", slog.Any("addr", l.Addr()))
		err := srv.Serve(l)
		if err == http.ErrServerClosed {
			return
		}
		slog.ErrorContext(ctx, "HTTP API server closed", slog.Any("err", err))
	}()
	<-ctx.Done()
	// The context is now done, so it is obviously the wrong choice for
	// managing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// routes registers the bot's own API routes.
func (robo *Robot) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/channel/{id}", robo.apiChannel)
	mux.HandleFunc("GET /api/resolve", robo.apiResolve)
}

func jsonerror(w http.ResponseWriter, status int, msg string) {
	v := struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  msg,
		Status: status,
	}
	b, err := json.Marshal(&v)
	if err != nil {
		panic(err)
	}
	w.WriteHeader(status)
	w.Write(b)
}

func (robo *Robot) apiChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "channel"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	id := r.PathValue("id")
	s, err := robo.store.Settings(ctx, id)
	switch {
	case err == nil: // do nothing
	case errors.Is(err, chanstore.ErrNoChannel):
		log.WarnContext(ctx, "no such channel", slog.String("id", id))
		jsonerror(w, http.StatusNotFound, "no such channel")
		return
	default:
		log.ErrorContext(ctx, "couldn't get settings", slog.String("id", id), slog.Any("err", err))
		jsonerror(w, http.StatusInternalServerError, err.Error())
		return
	}
	u := struct {
		Data   chanstore.Settings `json:"data"`
		Status int                `json:"status"`
	}{
		Data:   s,
		Status: http.StatusOK,
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}

func (robo *Robot) apiResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With(slog.String("api", "resolve"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()
	var (
		keys []string
		dir  resolve.Direction
	)
	switch {
	case q.Has("login") && q.Has("id"):
		jsonerror(w, http.StatusBadRequest, "use exactly one of login or id")
		return
	case q.Has("login"):
		keys, dir = q["login"], resolve.NameToID
	case q.Has("id"):
		keys, dir = q["id"], resolve.IDToName
	default:
		jsonerror(w, http.StatusBadRequest, "use exactly one of login or id")
		return
	}
	out, err := robo.resolver.Resolve(ctx, keys, dir)
	switch {
	case err == nil: // do nothing
	case errors.Is(err, resolve.ErrMalformed):
		log.WarnContext(ctx, "bad request", slog.Any("keys", keys), slog.Any("err", err))
		jsonerror(w, http.StatusBadRequest, err.Error())
		return
	default:
		log.ErrorContext(ctx, "couldn't resolve", slog.Any("keys", keys), slog.Any("err", err))
		jsonerror(w, http.StatusBadGateway, err.Error())
		return
	}
	type pair struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	u := struct {
		Data      []pair `json:"data"`
		Direction string `json:"direction"`
		Status    int    `json:"status"`
	}{
		Data:      make([]pair, len(keys)),
		Direction: dir.String(),
		Status:    http.StatusOK,
	}
	for i, k := range keys {
		u.Data[i] = pair{Key: k, Value: out[i]}
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}
