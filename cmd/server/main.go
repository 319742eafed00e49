package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"redislite/internal/config"
	"redislite/internal/server"
)

// parseReplicaof splits a "<host> <port>" argument, the same two-field
// form real redis-server accepts for --replicaof.
func parseReplicaof(arg string) (string, int, error) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return "", 0, fmt.Errorf(`expected "<host> <port>", got %q`, arg)
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", fields[1], err)
	}
	return fields[0], port, nil
}

func main() {
	port := flag.Int("port", 6379, "Port to listen on")
	replicaof := flag.String("replicaof", "", `upstream primary as "<host> <port>"; starts this node as a replica`)
	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.Port = *port

	if *replicaof != "" {
		masterHost, masterPort, err := parseReplicaof(*replicaof)
		if err != nil {
			log.Fatalf("invalid -replicaof: %v", err)
		}
		cfg.Role = config.RoleSlave
		cfg.MasterHost = masterHost
		cfg.MasterPort = masterPort
	}

	srv := server.New(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutting down server...")
		srv.Shutdown()
		os.Exit(0)
	}()

	log.Printf("starting redislite on %s:%d", cfg.Host, cfg.Port)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
