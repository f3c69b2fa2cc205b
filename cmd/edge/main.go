// Package main starts the point-of-sale offline edge.
//
// This process fronts all client traffic with the interception proxy and
// keeps the product catalog synchronized into durable local storage so the
// terminal stays usable without connectivity.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	edgecmd "github.com/lumapos/edge/internal/cmd/edge"
	"github.com/lumapos/edge/internal/platform/config"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg, err := edgecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		config.Exitf("invalid configuration: %v", err)
	}
	log.SetPrefix("[EDGE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := edgecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
