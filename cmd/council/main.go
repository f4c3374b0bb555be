package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	councilcmd "github.com/louisbranch/council.space/internal/cmd/council"
)

func main() {
	cfg, err := councilcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[COUNCIL] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := councilcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
