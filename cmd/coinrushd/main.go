// coinrushd is the authoritative game server: it owns the world state,
// runs the fixed-tick simulation, and serves clients over TCP and
// websocket.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"coinrush/internal/game"
	"coinrush/internal/logging"
	"coinrush/internal/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "optional YAML tuning overlay")
	flag.Parse()

	cfg, err := game.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := logging.NewConsolePublisher(log.Default(), logging.SeverityInfo)
	hub := server.NewHub(cfg, publisher, 0)

	ln, err := server.Listen(cfg.Addr())
	if err != nil {
		log.Fatalf("bind %s: %v", cfg.Addr(), err)
	}
	log.Printf("tcp listening on %s", ln.Addr())

	go hub.Run(ctx)

	if cfg.HTTPPort > 0 {
		httpSrv := &http.Server{Addr: cfg.HTTPAddr(), Handler: server.Mux(hub)}
		go func() {
			log.Printf("http listening on %s (ws endpoint: /ws)", cfg.HTTPAddr())
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("http server failed: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpSrv.Close()
		}()
	}

	if err := hub.ServeTCP(ctx, ln); err != nil {
		log.Fatalf("tcp server failed: %v", err)
	}
	log.Printf("shutting down")
}
