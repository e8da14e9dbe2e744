package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	issuerhandler "zoopr/internal/issuer/handler"
	issuermetrics "zoopr/internal/issuer/metrics"
	issuermodels "zoopr/internal/issuer/models"
	issuerservice "zoopr/internal/issuer/service"
	issuerstore "zoopr/internal/issuer/store"
	"zoopr/internal/ledger"
	passhandler "zoopr/internal/pass/handler"
	passmetrics "zoopr/internal/pass/metrics"
	passmodels "zoopr/internal/pass/models"
	passservice "zoopr/internal/pass/service"
	passstore "zoopr/internal/pass/store"
	"zoopr/internal/platform/config"
	"zoopr/internal/platform/database"
	"zoopr/internal/platform/logger"
	"zoopr/internal/platform/middleware"
	"zoopr/internal/roles"
	"zoopr/internal/voucher"
	"zoopr/pkg/platform/events"
)

const (
	issuerInitialTotalCap = 100_000
	stageLabel            = "SEED"
	stageCap              = 1_000
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing zoopr issuance engine",
		"addr", cfg.Addr,
		"chain_id", cfg.ChainID,
		"contract", cfg.ContractAddress.Hex(),
		"admin", cfg.Admin.Hex(),
	)

	ctx := context.Background()

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close() //nolint:errcheck

	passStage := passmodels.StageDetail{Label: stageLabel, StageCap: stageCap, Fee: config.DefaultPassFee()}
	untStage := issuermodels.StageDetail{Label: stageLabel, StageCap: stageCap, Fee: config.DefaultMintingFee()}

	var (
		passStore passservice.Store
		untStore  issuerservice.Store
	)
	if pool != nil {
		log.Info("using postgres stores")
		ps, err := passstore.NewPostgres(ctx, pool.DB(), passStage)
		if err != nil {
			log.Error("pass store init failed", "error", err)
			os.Exit(1)
		}
		us, err := issuerstore.NewPostgres(ctx, pool.DB(), untStage, issuerInitialTotalCap)
		if err != nil {
			log.Error("unt store init failed", "error", err)
			os.Exit(1)
		}
		passStore, untStore = ps, us
	} else {
		log.Info("using in-memory stores")
		passStore = passstore.NewInMemory(passStage)
		untStore = issuerstore.NewInMemory(untStage, issuerInitialTotalCap)
	}

	roleSet := roles.New(cfg.Admin)
	funds := ledger.New()
	domain := voucher.NewDomain(cfg.ChainID, cfg.ContractAddress)
	publisher := events.NewSlogPublisher(log)

	passSvc := passservice.New(passStore, funds, roleSet, cfg.PassTokenURI,
		passservice.WithLogger(log),
		passservice.WithPublisher(publisher),
		passservice.WithMetrics(passmetrics.New()),
	)
	untSvc := issuerservice.New(untStore, passSvc, funds, roleSet, domain,
		issuerservice.WithLogger(log),
		issuerservice.WithPublisher(publisher),
		issuerservice.WithMetrics(issuermetrics.New()),
	)

	router := newRouter(cfg, log, pool, passSvc, untSvc)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func newRouter(cfg config.Server, log *slog.Logger, pool *database.Pool, passSvc *passservice.Service, untSvc *issuerservice.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Health(r.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	passH := passhandler.New(passSvc, log)
	untH := issuerhandler.New(untSvc, log)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		passH.Register(r)
		untH.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAdminJWT(cfg.JWTSigningKey, log))
		passH.RegisterAdmin(r)
		untH.RegisterAdmin(r)
	})

	return r
}
