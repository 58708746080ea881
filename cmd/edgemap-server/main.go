package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/edge-map-service/internal/config"
	"github.com/ironsheep/edge-map-service/internal/imaging"
	"github.com/ironsheep/edge-map-service/internal/logger"
	"github.com/ironsheep/edge-map-service/internal/pipeline"
	"github.com/ironsheep/edge-map-service/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("edgemap-server %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Backends:   %s\n", strings.Join(pipeline.Backends(), ", "))
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("edgemap-server starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit))

	if err := run(cfg, log); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	backend, err := pipeline.NewBackend(cfg.Backend, pipeline.BackendOptions{
		Luminance:   imaging.Luminance(cfg.Luminance),
		JPEGQuality: cfg.JPEGQuality,
		MaxPixels:   cfg.MaxPixels,
	})
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	metrics := server.NewMetrics()
	p := pipeline.New(backend, pipeline.WithObserver(metrics))
	srv := server.New(cfg, p, log, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func printHelp() {
	fmt.Println("edgemap-server - HTTP service returning Canny edge maps of uploaded images")
	fmt.Println()
	fmt.Println("Usage: edgemap-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  EDGEMAP_ADDR=:8080              Listen address")
	fmt.Println("  EDGEMAP_LOG_LEVEL=info          debug, info, warn, error")
	fmt.Println("  EDGEMAP_LOG_FORMAT=json         json or console")
	fmt.Println("  EDGEMAP_BACKEND=native          native, or opencv when built with -tags gocv")
	fmt.Println("  EDGEMAP_LUMINANCE=bt601         bt601, bt709 or lightness")
	fmt.Println("  EDGEMAP_JPEG_QUALITY=95         Output JPEG quality, 1-100")
	fmt.Println("  EDGEMAP_MAX_BODY_BYTES=10485760 Largest accepted upload")
	fmt.Println("  EDGEMAP_MAX_PIXELS=16000000     Largest accepted image area, 0 for no limit")
	fmt.Println("  EDGEMAP_READ_TIMEOUT=60s        HTTP read timeout")
	fmt.Println("  EDGEMAP_WRITE_TIMEOUT=60s       HTTP write timeout")
	fmt.Println("  EDGEMAP_SHUTDOWN_TIMEOUT=10s    Grace period for in-flight requests")
	fmt.Println("  EDGEMAP_ENV_FILE=.env           Dotenv file to load")
	fmt.Println()
	fmt.Println("Send an image with: curl --data-binary @photo.png -o edges.jpg localhost:8080/api/edges")
}
