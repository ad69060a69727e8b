package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"streamvault/api"
	"streamvault/config"
	"streamvault/handlers"
	"streamvault/internal/database"
	"streamvault/services/catalog"
	"streamvault/services/credentials"
	"streamvault/services/downloads"
	"streamvault/services/metadata"
	"streamvault/services/prober"
	"streamvault/services/resume"
	"streamvault/services/scheduler"
	"streamvault/services/search"
	"streamvault/services/transfer"
	"streamvault/services/xtream"
	"streamvault/utils"
)

func main() {
	configPath := flag.String("config", "data/config.json", "path to the configuration file")
	flag.Parse()

	cfgManager, err := config.NewManager(*configPath)
	if err != nil {
		log.Fatalf("[main] loading config: %v", err)
	}
	cfg := cfgManager.Get()

	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   filepath.Join(cfg.DataDir, "logs", "streamvault.log"),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}))

	db, err := database.NewDB(database.Config{DatabasePath: cfg.DatabasePath()})
	if err != nil {
		log.Fatalf("[main] opening database: %v", err)
	}
	defer db.Close()

	creds, err := credentials.NewService(cfg.DataDir)
	if err != nil {
		log.Fatalf("[main] opening credential store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := xtream.NewClient(nil)
	catalogSvc := catalog.NewService(client, db.Catalog, catalog.Options{IncludeLive: cfg.IncludeLive})
	index := search.NewIndex()
	catalogSvc.Subscribe(index.SetCatalog)

	osFs := afero.NewOsFs()
	facility := transfer.NewHTTPFacility(osFs, nil)
	defer facility.Close()
	ledger := downloads.NewService(db.Downloads, facility, osFs, cfg.DownloadDir(), nil)
	ledger.Start(ctx)

	resumeSvc := resume.NewService(db.Resume)

	var metadataClient *metadata.Client
	if cfg.MetadataAPIKey != "" {
		metadataClient = metadata.NewClient(cfg.MetadataAPIKey, metadata.WithCacheDir(cfg.MetadataCacheDir()))
	}

	// Warm the catalog when a previous login is still valid.
	if session, err := creds.Load(); err == nil {
		go catalogSvc.Start(ctx, session)
	}

	sched := scheduler.NewService(catalogSvc, creds, scheduler.DefaultRefreshInterval)
	sched.Start(ctx)
	defer sched.Stop()

	authHandler := handlers.NewAuthHandler(prober.NewProber(nil), creds, cfgManager)
	catalogHandler := handlers.NewCatalogHandler(catalogSvc, index, client, creds)
	downloadsHandler := handlers.NewDownloadsHandler(ledger, client, creds)
	resumeHandler := handlers.NewResumeHandler(resumeSvc)
	metadataHandler := handlers.NewMetadataHandler(metadataClient)

	router := utils.NewRouter()

	// Login is rate limited per IP: 5 attempts per minute.
	loginLimiter := api.NewIPRateLimiter(rate.Every(12*time.Second), 5)
	defer loginLimiter.Stop()
	router.Handle("/api/auth/login",
		api.RateLimit(loginLimiter)(http.HandlerFunc(authHandler.Login))).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/status", authHandler.Status).Methods(http.MethodGet)

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(api.RequireSession(creds))
	protected.HandleFunc("/catalog", catalogHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/refresh", catalogHandler.Refresh).Methods(http.MethodPost)
	protected.HandleFunc("/catalog/search", catalogHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/categories/{kind}", catalogHandler.Categories).Methods(http.MethodGet)
	protected.HandleFunc("/series/{id}", catalogHandler.SeriesInfo).Methods(http.MethodGet)
	protected.HandleFunc("/epg/{id}", catalogHandler.EPG).Methods(http.MethodGet)
	protected.HandleFunc("/streams/{kind}/{id}/url", catalogHandler.StreamURL).Methods(http.MethodGet)
	protected.HandleFunc("/downloads", downloadsHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/downloads", downloadsHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/downloads/{id}", downloadsHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/downloads/{id}/file", downloadsHandler.File).Methods(http.MethodGet)
	protected.HandleFunc("/downloads/{id}", downloadsHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/resume/{kind}/{id}", resumeHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/resume/{kind}/{id}", resumeHandler.Set).Methods(http.MethodPut)
	protected.HandleFunc("/resume/{kind}/{id}", resumeHandler.Clear).Methods(http.MethodDelete)
	protected.HandleFunc("/metadata/movies", metadataHandler.SearchMovies).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
