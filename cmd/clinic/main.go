package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/pgup-sistemas/Titanium-clinic/internal/api"
	"github.com/pgup-sistemas/Titanium-clinic/internal/audit"
	"github.com/pgup-sistemas/Titanium-clinic/internal/auth"
	"github.com/pgup-sistemas/Titanium-clinic/internal/backup"
	"github.com/pgup-sistemas/Titanium-clinic/internal/cache"
	"github.com/pgup-sistemas/Titanium-clinic/internal/config"
	"github.com/pgup-sistemas/Titanium-clinic/internal/consent"
	"github.com/pgup-sistemas/Titanium-clinic/internal/dispatch"
	"github.com/pgup-sistemas/Titanium-clinic/internal/outreach"
	"github.com/pgup-sistemas/Titanium-clinic/internal/repo"
	"github.com/pgup-sistemas/Titanium-clinic/internal/report"
	"github.com/pgup-sistemas/Titanium-clinic/internal/scheduler"
	"github.com/pgup-sistemas/Titanium-clinic/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := storage.Migrate(db); err != nil {
		log.Fatal(err)
	}

	patients := repo.NewSQLitePatientRepo(db)
	templates := repo.NewSQLiteTemplateRepo(db)
	ledger := repo.NewSQLiteLedgerRepo(db)
	history := repo.NewSQLiteHistoryRepo(db)
	settings := repo.NewSQLiteSettingsRepo(db)
	users := repo.NewSQLiteUserRepo(db)

	auditLog := audit.New(db)
	consentSvc := consent.NewService(patients, settings, auditLog)
	authSvc := auth.NewService(users)

	tracker := outreach.NewTracker()
	selector := outreach.NewSelector(templates, patients, tracker)
	limits := outreach.NewLimitsController(ledger, settings)
	hours := outreach.NewHoursGate(settings)
	dispatcher := dispatch.NewWhatsAppWeb()

	engine := outreach.NewEngine(patients, history, selector, limits, hours, consentSvc, dispatcher, auditLog)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		engine.WithCache(cache.NewRedisCache(rdb, cfg.Redis.TTL))
	}

	backupMgr := backup.NewManager(cfg.Database.Path, cfg.Backup.Dir)
	backupRunner := backup.NewRunner(backupMgr, settings)

	sched, err := scheduler.New("backup", cfg.Backup.CheckInterval, backupRunner.Tick)
	if err != nil {
		log.Fatal(err)
	}
	sched.Start()
	defer sched.Stop()

	reports := report.NewService(db, patients, ledger)

	handler := api.NewHandler(engine, patients, history, consentSvc, reports, authSvc, sched)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: loggingMiddleware(api.Router(handler)),
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Address, "redis", cfg.Redis.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
