package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"bilingualmanga/internal/anki"
	"bilingualmanga/internal/app"
	"bilingualmanga/internal/auth"
	"bilingualmanga/internal/manga"
	"bilingualmanga/internal/ocr"
	"bilingualmanga/internal/segmenter"
	synchub "bilingualmanga/internal/sync"
	"bilingualmanga/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, toml or json)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using system environment variables")
	}

	cfg, err := utils.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := app.NewLogger(os.Stdout, cfg)

	a, err := app.Open(cfg, log)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	job, err := a.SegmentJob()
	if err != nil {
		log.Error("segment job", "error", err)
		os.Exit(1)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", synchub.WSHandler(a.Hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db_driver": cfg.DB.Driver})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := a.Hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Reading (public)
	mangaGroup := router.Group("/manga")
	manga.NewHandler(a.Manga).RegisterRoutes(mangaGroup)
	ocr.NewHandler(a.Ocr).RegisterRoutes(mangaGroup)

	// Auth
	auth.NewHandler(cfg.Auth.PasswordHash, a.Tokens).RegisterRoutes(router.Group("/auth"))
	requireToken := auth.Middleware(a.Tokens)

	// Segmentation and flashcards (writes need a token)
	segmenter.NewHandler(job).RegisterRoutes(router.Group("/segment", requireToken))
	anki.NewHandler(a.Exporter()).RegisterRoutes(router.Group("/anki"), router.Group("/anki", requireToken))

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	var wg gosync.WaitGroup

	if cfg.Events.Addr != "" {
		tcpSrv := synchub.NewServer(cfg.Events.Addr, a.Hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http api server listening", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	log.Info("shutting down servers")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}

	wg.Wait()
	log.Info("servers stopped")
}
