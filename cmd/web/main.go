// Command web runs the macropulse HTTP API server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"macropulse/internal/app"
	"macropulse/internal/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
