package main

import (
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"bilingualmanga/internal/app"
	"bilingualmanga/internal/grpcserver"
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

	listener, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Error("grpc listen", "addr", cfg.GRPC.Addr, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(log)))
	grpcserver.RegisterReaderServer(grpcServer, grpcserver.NewServer(a.Manga, a.Ocr))

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("shutdown signal received", "signal", sig.String())
		grpcServer.GracefulStop()
	}()

	log.Info("grpc server listening", "addr", cfg.GRPC.Addr, "service", grpcserver.ServiceName)
	if err := grpcServer.Serve(listener); err != nil {
		log.Error("grpc server stopped", "error", err)
		os.Exit(1)
	}
}
