package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Pszemocny/4-in-a-row/internal/advisor"
	"github.com/Pszemocny/4-in-a-row/internal/hub"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
	"github.com/Pszemocny/4-in-a-row/internal/metrics"
	"github.com/Pszemocny/4-in-a-row/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket game server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Error closing store", logger.Fields{"error": err.Error()})
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	adv := advisor.New(advisor.WithDepth(cfg.AdvisorDepth), advisor.WithObserver(m))
	h := hub.NewHub(adv, st, m)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.New(h, st, reg).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting server", logger.Fields{
			"addr":  cfg.Addr(),
			"depth": adv.Depth(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", logger.Fields{"error": err.Error()})
		return err
	}
	logger.Info("Server stopped", nil)
	return nil
}
