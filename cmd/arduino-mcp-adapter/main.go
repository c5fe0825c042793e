// Command arduino-mcp-adapter bridges MCP-over-HTTP JSON-RPC to an
// Arduino-class device on a serial line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/librescoot/arduino-mcp-adapter/internal/config"
	"github.com/librescoot/arduino-mcp-adapter/internal/link"
	"github.com/librescoot/arduino-mcp-adapter/internal/manifest"
	"github.com/librescoot/arduino-mcp-adapter/internal/mcpserver"
	"github.com/librescoot/arduino-mcp-adapter/internal/scriptrunner"
	"github.com/librescoot/arduino-mcp-adapter/internal/telemetry"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	log.Printf("starting arduino-mcp-adapter")
	log.Printf("serial device: %s (baud %d)", cfg.Line, cfg.Baud)
	log.Printf("manifest directory: %s", cfg.ManifestDir)

	var telemetryPub *telemetry.Publisher
	if cfg.RedisAddr != "" {
		telemetryPub, err = telemetry.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, nil)
		if err != nil {
			log.Printf("telemetry disabled: failed to connect to redis at %s: %v", cfg.RedisAddr, err)
			telemetryPub = nil
		} else {
			log.Printf("publishing telemetry to redis at %s", cfg.RedisAddr)
			defer telemetryPub.Close()
		}
	}

	linkLog := log.New(os.Stderr, "[link] ", log.LstdFlags|log.Lmicroseconds)
	sup := link.New(cfg.Line, cfg.Baud, linkLog, func(st link.State) {
		telemetryPub.StateChange(st.Phase.String(), st.DeviceID, st.Message)
	})
	sup.Start()
	defer sup.Stop()

	registry := manifest.NewRegistry(cfg.ManifestDir)

	endpoint := fmt.Sprintf("http://127.0.0.1:%d/mcp", cfg.Port)
	scripts := scriptrunner.New(endpoint)

	server := mcpserver.New(cfg.Port, sup, registry, scripts, telemetryPub, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Printf("shutting down")
}
