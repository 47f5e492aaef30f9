package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/clawclub/clawclub/internal/server"
	"github.com/clawclub/clawclub/internal/trigger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run continuously: scheduled polls, webhook triggers, and a status API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	scheduler := trigger.NewScheduler(d.arbiter)
	if err := scheduler.RegisterPoll(d.cfg.PollCron); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	webhook := trigger.NewWebhookHandler(d.arbiter)
	srv := server.NewServer(d.cfg, d.state, d.registry, webhook)

	addr := serveAddr
	if addr == "" {
		addr = d.cfg.ListenAddr
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // webhook handlers block on a full invocation
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Str("poll_cron", d.cfg.PollCron).
		Str("agent_id", d.cfg.AgentID).
		Str("pool", d.cfg.Pool).
		Msg("clawclub_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}
