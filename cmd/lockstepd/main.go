// Command lockstepd runs the authoritative lockstep simulation server: it
// accepts websocket connections, multiplexes them across concurrently
// running game sessions, and ticks each at a fixed rate. Grounded on the
// teacher's main.go, generalized to a cobra command tree.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironclad-rts/core/internal/config"
	"github.com/ironclad-rts/core/internal/logging"
	"github.com/ironclad-rts/core/internal/match"
	"github.com/ironclad-rts/core/internal/registry"
	"github.com/ironclad-rts/core/internal/transport"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lockstepd",
		Short: "Authoritative lockstep RTS simulation server",
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var (
		port     int
		maxGames int
		tickRate float64
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/WebSocket server and session manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, maxGames, tickRate, logLevel)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP listen port")
	cmd.Flags().IntVar(&maxGames, "max-games", 0, "override MAX_CONCURRENT_GAMES (0 = use config/env default)")
	cmd.Flags().Float64Var(&tickRate, "tick-rate", 0, "override TICK_RATE (0 = use config/env default)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	return cmd
}

func runServe(port, maxGames int, tickRate float64, logLevel string) error {
	logger := logging.NewLogrus(logLevel)

	cfg := config.Load().WithOverrides(maxGames, tickRate)

	reg := registry.NewStaticRegistry()
	sessions := match.NewSessionManager(reg, logger, cfg.MaxConcurrentGames)

	srv := transport.NewServer(sessions, logger)
	mux := srv.Mux(cfg.AllowedOrigins)
	srv.RegisterCreateSession(mux, cfg.Game)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting lockstepd", logging.Fields{"port": port, "max_games": cfg.MaxConcurrentGames, "tick_rate": cfg.Game.TickRate})

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("lockstepd: server failed to start: %w", err)
	case sig := <-sigChan:
		logger.Info("shutting down", logging.Fields{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", logging.Fields{"error": err.Error()})
	}
	logger.Info("server stopped", nil)
	return nil
}
