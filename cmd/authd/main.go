package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"helix-auth/go-backend/internal/api"
	"helix-auth/go-backend/internal/bootstrap/config"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	listen := flag.String("listen", "", "listen address, host:port or tcp multiaddr (optional)")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	dataDir := flag.String("data-dir", "", "Directory for daemon local data (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("authd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *listen != "" {
		_ = os.Setenv("HELIX_LISTEN", *listen)
	}
	if *dataDir != "" {
		_ = os.Setenv("HELIX_DATA_DIR", *dataDir)
	}

	srv, err := api.NewServer(config.LoadFromPath(*configPath))
	if err != nil {
		log.Fatalf("authd failed to initialize: %v", err)
	}

	log.Println("authd starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("authd failed: %v", err)
	}
	log.Println("authd stopped")
}
