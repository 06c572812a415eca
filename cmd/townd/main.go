package main

import (
    "context"
    "errors"
    "flag"
    "log"
    "net/http"
    "os"
    "os/signal"
    "path/filepath"
    "strings"
    "syscall"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "towngraph/internal/config"
    "towngraph/internal/logger"
    "towngraph/internal/metrics"
    "towngraph/internal/model"
    "towngraph/internal/pulse"
    "towngraph/internal/rank"
    "towngraph/internal/sched"
    "towngraph/internal/service"
    "towngraph/internal/store"
    "towngraph/internal/throttle"
)

func main() {
    cfgPath := flag.String("config", "", "path to yaml config")
    flag.Parse()

    cfg, err := config.Load(*cfgPath)
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    lg, err := logger.New(cfg.LogMode)
    if err != nil {
        log.Fatalf("logger: %v", err)
    }
    defer lg.Sync()

    st, err := openStore(cfg)
    if err != nil {
        lg.Error("store init failed", "err", err)
        os.Exit(1)
    }

    pulseDir := cfg.PulseDir
    if pulseDir == "" {
        pulseDir = filepath.Join(cfg.DataDir, "pulse")
    }
    feed := pulse.NewFileProvider(pulseDir)

    engine := rank.NewEngine(st, feed, lg)
    metrics.RegisterDefault()

    routeOpts := rank.Options{ActiveSeasons: cfg.ActiveSeasons}

    lim, err := openLimiter(cfg)
    if err != nil {
        lg.Error("throttle init failed", "err", err)
        os.Exit(1)
    }
    svc := service.New(engine, st, lim, lg)

    suggestions := sched.New(sched.PulseSource(feed), sched.StoreActivitySource(st, 48*time.Hour), model.ArtifactSuggestions, sched.SuggestionStaleness, st)
    routes := sched.New(sched.PulseSource(feed), sched.StoreActivitySource(st, 48*time.Hour), model.ArtifactRoutes, sched.RouteStaleness, st)

    suggestRunner := sched.NewRunner(suggestions, func(ctx context.Context, t model.Target) error {
        _, err := engine.RecomputeSuggestions(ctx, t.TownID)
        return err
    }, lg, cfg.Workers)
    routeRunner := sched.NewRunner(routes, func(ctx context.Context, t model.Target) error {
        return engine.RecomputeAllWindows(ctx, t.TownID, routeOpts)
    }, lg, cfg.Workers)
    suggestRunner.Batch = cfg.Batch
    routeRunner.Batch = cfg.Batch
    suggestRunner.Interval = cfg.ScanInterval()
    routeRunner.Interval = cfg.ScanInterval()
    suggestRunner.Start()
    routeRunner.Start()

    mux := http.NewServeMux()
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.HandleFunc("/ops/recompute", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodPost {
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
            return
        }
        town := r.URL.Query().Get("town")
        if town == "" {
            http.Error(w, "town required", http.StatusBadRequest)
            return
        }
        if err := svc.RecomputeNow(r.Context(), town, routeOpts); err != nil {
            if errors.Is(err, service.ErrThrottled) {
                http.Error(w, "recompute cooling down", http.StatusTooManyRequests)
                return
            }
            lg.Error("recompute trigger failed", "town", town, "err", err)
            http.Error(w, "recompute failed", http.StatusInternalServerError)
            return
        }
        w.WriteHeader(http.StatusAccepted)
    })

    srv := &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
    go func() {
        lg.Info("townd listening", "addr", cfg.Listen)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            lg.Error("server error", "err", err)
            os.Exit(1)
        }
    }()

    sig := make(chan os.Signal, 1)
    signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
    <-sig
    close(suggestRunner.Stop)
    close(routeRunner.Stop)
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
}

func openStore(cfg config.Config) (store.Store, error) {
    if strings.TrimSpace(cfg.DatabaseURL) != "" {
        pg, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if err := pg.EnsureSchema(context.Background()); err != nil {
            return nil, err
        }
        return pg, nil
    }
    return store.NewFile(filepath.Join(cfg.DataDir, "towns"))
}

func openLimiter(cfg config.Config) (throttle.Limiter, error) {
    if strings.TrimSpace(cfg.RedisURL) != "" {
        return throttle.NewRedis(cfg.RedisURL)
    }
    return throttle.NewMemory(), nil
}
